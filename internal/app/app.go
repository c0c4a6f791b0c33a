package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/postdesk/internal/actions"
	"github.com/samvad-hq/postdesk/internal/config"
	"github.com/samvad-hq/postdesk/internal/domain"
	"github.com/samvad-hq/postdesk/internal/logger"
	"github.com/samvad-hq/postdesk/internal/page"
	"github.com/samvad-hq/postdesk/internal/session"
	"github.com/samvad-hq/postdesk/internal/ui"
	"github.com/samvad-hq/postdesk/pkg/blogapi"
	"github.com/samvad-hq/postdesk/pkg/httpclient"
	"github.com/samvad-hq/postdesk/pkg/publishers"
)

// ErrTriggerNotOffered is returned when a post page has no trigger for the requested action.
var ErrTriggerNotOffered = errors.New("action not offered on this post")

// Options carries the terminal streams and the optional resty diagnostics sink.
type Options struct {
	In          io.Reader
	Out         io.Writer
	AssumeYes   bool
	RestyLogger resty.Logger
}

// App is the postdesk runtime. It owns the HTTP client and its persisted
// session, the terminal views, the action dispatcher and the event publishers.
type App struct {
	cfg        *config.Config
	log        logger.Logger
	cookies    httpclient.CookieStore
	api        *blogapi.Client
	term       *ui.Terminal
	nav        *ui.Navigator
	dispatcher *actions.Dispatcher
	fanout     *publishers.Fanout
	store      session.Store
	site       *url.URL
}

// New builds the runtime from config and restores any saved session.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}

	site, err := siteURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	client, err := httpclient.New(httpclient.Options{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.RequestTimeout,
		Logger:      log,
		RestyLogger: opts.RestyLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("init http client: %w", err)
	}

	store, err := session.NewStore(cfg.SessionStoreType, cfg.SessionPath, session.Options{
		SessionTTL:      cfg.SessionTTL,
		CleanupInterval: cfg.SessionCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}
	log.DebugObj("session store initialized", "session_config", map[string]any{
		"type":                     cfg.SessionStoreType,
		"path":                     cfg.SessionPath,
		"session_ttl_seconds":      int(cfg.SessionTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.SessionCleanupInterval.Seconds()),
	})

	a := &App{
		cfg:     cfg,
		log:     log,
		cookies: client,
		api:     blogapi.New(client),
		store:   store,
		site:    site,
	}
	a.restoreSession()

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.fanout = fanout

	a.term = ui.NewTerminal(opts.In, opts.Out, opts.AssumeYes)
	a.nav = ui.NewNavigator(a.term, a.api, page.NewReader(client, cfg.BaseURL, log), cfg.ListingPath)

	postActions, err := actions.NewPostActions(actions.Options{
		API:         a.api,
		Notifier:    a.term,
		Navigator:   a.nav,
		Events:      fanout,
		Log:         log,
		ListingPath: cfg.ListingPath,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dispatcher = actions.NewDispatcher()
	if err := postActions.Register(a.dispatcher); err != nil {
		a.Close()
		return nil, fmt.Errorf("register actions: %w", err)
	}

	return a, nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]string{"id": cfg.ID, "type": cfg.Type})
	}
	log.DebugObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// siteURL is the origin session cookies are scoped to.
func siteURL(base string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", base)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

func (a *App) siteKey() string {
	return a.site.Scheme + "://" + a.site.Host
}

func (a *App) restoreSession() {
	cookies, err := a.store.Load(a.siteKey())
	if err != nil {
		a.log.WarnObj("session restore failed", "session_error", map[string]any{
			"site":  a.siteKey(),
			"error": err.Error(),
		})
		return
	}
	if len(cookies) == 0 {
		return
	}
	for _, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
	}
	a.cookies.SetCookies(a.site, cookies)
	a.log.DebugObj("session restored", "session_meta", map[string]any{
		"site":    a.siteKey(),
		"cookies": len(cookies),
	})
}

func (a *App) saveSession() error {
	cookies := a.cookies.Cookies(a.site)
	for _, c := range cookies {
		c.Path = "/"
	}
	if err := a.store.Save(a.siteKey(), cookies); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete runs the delete action for a post.
func (a *App) Delete(ctx context.Context, id string) error {
	a.nav.Focus(id)
	return a.dispatcher.Dispatch(ctx, page.Context(id, "", ""), domain.Trigger{Action: domain.ActionDelete})
}

// ChangeStatus runs the change-status action for a post.
func (a *App) ChangeStatus(ctx context.Context, id, status string) error {
	a.nav.Focus(id)
	return a.dispatcher.Dispatch(ctx, page.Context(id, "", ""), domain.Trigger{
		Action:    domain.ActionChangeStatus,
		NewStatus: strings.TrimSpace(status),
	})
}

// Trigger opens the post page and activates the trigger it offers for action.
func (a *App) Trigger(ctx context.Context, id, action string) error {
	pg, err := a.nav.Open(ctx, id)
	if err != nil {
		return err
	}
	tr, ok := pg.Trigger(strings.TrimSpace(action))
	if !ok {
		return fmt.Errorf("%w: %q on post %s", ErrTriggerNotOffered, action, pg.Post.ID)
	}
	return a.dispatcher.Dispatch(ctx, pg.Post, tr)
}

// Actions lists the registered action names.
func (a *App) Actions() []string {
	return a.dispatcher.Actions()
}

// Show prints a post fetched from the API.
func (a *App) Show(ctx context.Context, id string) error {
	post, err := a.api.GetPost(ctx, id)
	if err != nil {
		return err
	}
	a.term.RenderPost(post)
	return nil
}

// List prints one page of published posts.
func (a *App) List(ctx context.Context, opts blogapi.ListOptions) error {
	pg, err := a.api.ListPosts(ctx, opts)
	if err != nil {
		return err
	}
	a.term.RenderListing(pg)
	return nil
}

// Create publishes a new post.
func (a *App) Create(ctx context.Context, p blogapi.NewPost) error {
	res, err := a.api.CreatePost(ctx, p)
	if err != nil {
		return err
	}
	a.term.Alert(res.Message)
	return nil
}

// Register creates an account.
func (a *App) Register(ctx context.Context, name, password, confirm string) error {
	msg, err := a.api.Register(ctx, name, password, confirm)
	if err != nil {
		return err
	}
	a.term.Alert(msg)
	return nil
}

// Login authenticates and persists the session cookie.
func (a *App) Login(ctx context.Context, name, password string) error {
	msg, err := a.api.Login(ctx, name, password)
	if err != nil {
		return err
	}
	if err := a.saveSession(); err != nil {
		return err
	}
	a.term.Alert(msg)
	return nil
}

// Logout ends the session on the server and forgets it locally.
func (a *App) Logout(ctx context.Context) error {
	msg, err := a.api.Logout(ctx)
	if clearErr := a.store.Clear(a.siteKey()); clearErr != nil {
		a.log.WarnObj("session clear failed", "session_error", clearErr.Error())
	}
	if err != nil {
		return err
	}
	a.term.Alert(msg)
	return nil
}

// Me prints the logged in user.
func (a *App) Me(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	a.term.RenderUser(u)
	return nil
}

// Terminal exposes the terminal for prompts issued by the command layer.
func (a *App) Terminal() *ui.Terminal {
	return a.term
}

// Close releases publishers and the session store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if err := a.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// IsHTTPStatus reports whether err carries an HTTP failure with the given status.
func IsHTTPStatus(err error, status int) bool {
	var httpErr *httpclient.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}

// IsUnauthorized reports whether err means the session is missing or expired.
func IsUnauthorized(err error) bool {
	return IsHTTPStatus(err, http.StatusUnauthorized)
}

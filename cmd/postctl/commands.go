package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/samvad-hq/postdesk/internal/app"
	"github.com/samvad-hq/postdesk/internal/config"
	"github.com/samvad-hq/postdesk/pkg/blogapi"
	"github.com/samvad-hq/postdesk/pkg/httpclient"
	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage")

// quietError marks API failures the action already logged or alerted;
// main exits non-zero without printing them.
type quietError struct{ err error }

func (q quietError) Error() string { return q.err.Error() }
func (q quietError) Unwrap() error { return q.err }

// quiet wraps err only when it came back from the blog API. Validation and
// prompt errors never reach the action's log, so they stay printable.
func quiet(err error) error {
	if !isAPIError(err) {
		return err
	}
	return quietError{err: err}
}

func isAPIError(err error) bool {
	var (
		httpErr      *httpclient.HTTPError
		transportErr *httpclient.TransportError
		decodeErr    *httpclient.DecodeError
	)
	return errors.As(err, &httpErr) || errors.As(err, &transportErr) || errors.As(err, &decodeErr)
}

// runner executes a parsed command against the runtime.
type runner func(ctx context.Context, a *app.App, args []string) error

type command struct {
	usage   string
	summary string
	nargs   int
	// setup registers the command's flags and returns its runner.
	setup func(fs *pflag.FlagSet) runner
}

var commands = map[string]command{
	"delete": {
		usage:   "delete <post-id>",
		summary: "delete a post after confirmation, then show the listing",
		nargs:   1,
		setup: func(*pflag.FlagSet) runner {
			return func(ctx context.Context, a *app.App, args []string) error {
				return quiet(a.Delete(ctx, args[0]))
			}
		},
	},
	"status": {
		usage:   "status <post-id> <new-status>",
		summary: "change a post's status (published, draft) and reload it",
		nargs:   2,
		setup: func(*pflag.FlagSet) runner {
			return func(ctx context.Context, a *app.App, args []string) error {
				return quiet(a.ChangeStatus(ctx, args[0], args[1]))
			}
		},
	},
	"trigger": {
		usage:   "trigger <post-id> <action>",
		summary: "open a post page and activate one of its actions",
		nargs:   2,
		setup: func(*pflag.FlagSet) runner {
			return func(ctx context.Context, a *app.App, args []string) error {
				return a.Trigger(ctx, args[0], args[1])
			}
		},
	},
	"show": {
		usage:   "show <post-id>",
		summary: "print a post",
		nargs:   1,
		setup: func(*pflag.FlagSet) runner {
			return func(ctx context.Context, a *app.App, args []string) error {
				return a.Show(ctx, args[0])
			}
		},
	},
	"list": {
		usage:   "list [--author id] [--tag name] [--page n] [--page-size n]",
		summary: "list published posts",
		nargs:   0,
		setup: func(fs *pflag.FlagSet) runner {
			opts := blogapi.ListOptions{}
			fs.IntVar(&opts.AuthorID, "author", 0, "only posts by this author id")
			fs.StringVar(&opts.Tag, "tag", "", "only posts with this tag")
			fs.IntVar(&opts.Page, "page", 1, "page number")
			fs.IntVar(&opts.PageSize, "page-size", 3, "posts per page (3-100)")
			return func(ctx context.Context, a *app.App, _ []string) error {
				return a.List(ctx, opts)
			}
		},
	},
	"create": {
		usage:   "create --title t [--content c] [--description d] [--tag name...]",
		summary: "create a post",
		nargs:   0,
		setup: func(fs *pflag.FlagSet) runner {
			p := blogapi.NewPost{}
			fs.StringVar(&p.Title, "title", "", "post title")
			fs.StringVar(&p.Content, "content", "", "post body")
			fs.StringVar(&p.Description, "description", "", "short description")
			fs.StringSliceVar(&p.Tags, "tag", nil, "tag name (repeatable)")
			return func(ctx context.Context, a *app.App, _ []string) error {
				return a.Create(ctx, p)
			}
		},
	},
	"login": {
		usage:   "login <name> [--password p]",
		summary: "log in and keep the session",
		nargs:   1,
		setup: func(fs *pflag.FlagSet) runner {
			password := fs.String("password", "", "password (defaults to "+config.EnvPrefix+"_PASSWORD or a prompt)")
			return func(ctx context.Context, a *app.App, args []string) error {
				pw, err := secret(a, *password, "Password")
				if err != nil {
					return err
				}
				return a.Login(ctx, args[0], pw)
			}
		},
	},
	"register": {
		usage:   "register <name> [--password p]",
		summary: "create an account",
		nargs:   1,
		setup: func(fs *pflag.FlagSet) runner {
			password := fs.String("password", "", "password (defaults to "+config.EnvPrefix+"_PASSWORD or a prompt)")
			return func(ctx context.Context, a *app.App, args []string) error {
				pw, err := secret(a, *password, "Password")
				if err != nil {
					return err
				}
				confirm := pw
				if *password == "" && os.Getenv(config.EnvPrefix+"_PASSWORD") == "" {
					if confirm, err = a.Terminal().Prompt("Confirm password"); err != nil {
						return err
					}
				}
				return a.Register(ctx, args[0], pw, confirm)
			}
		},
	},
	"logout": {
		usage:   "logout",
		summary: "end the session",
		nargs:   0,
		setup: func(*pflag.FlagSet) runner {
			return func(ctx context.Context, a *app.App, _ []string) error {
				return a.Logout(ctx)
			}
		},
	},
	"me": {
		usage:   "me",
		summary: "show the logged in user",
		nargs:   0,
		setup: func(*pflag.FlagSet) runner {
			return func(ctx context.Context, a *app.App, _ []string) error {
				return a.Me(ctx)
			}
		},
	},
}

func secret(a *app.App, flagValue, label string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(config.EnvPrefix + "_PASSWORD"); env != "" {
		return env, nil
	}
	return a.Terminal().Prompt(label)
}

// invocation is a command line resolved to a runner and its positional args.
type invocation struct {
	name      string
	args      []string
	assumeYes bool
	run       runner
}

func parse(argv []string, stderr io.Writer) (*invocation, error) {
	if len(argv) == 0 || argv[0] == "help" || argv[0] == "-h" || argv[0] == "--help" {
		usage(stderr)
		return nil, errUsage
	}

	name := argv[0]
	cmd, ok := commands[name]
	if !ok {
		usage(stderr)
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	fs := pflag.NewFlagSet("postctl "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	yes := fs.BoolP("yes", "y", false, "answer yes to confirmations")
	run := cmd.setup(fs)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: postctl %s\n\n%s\n\nflags:\n", cmd.usage, cmd.summary)
		fs.PrintDefaults()
	}

	if err := fs.Parse(argv[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, errUsage
		}
		return nil, fmt.Errorf("%w: %s: %v", errUsage, name, err)
	}
	if fs.NArg() != cmd.nargs {
		fs.Usage()
		return nil, fmt.Errorf("%w: %s: expected %s, got %d", errUsage, name, plural(cmd.nargs, "argument"), fs.NArg())
	}

	return &invocation{name: name, args: fs.Args(), assumeYes: *yes, run: run}, nil
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: postctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "configuration is read from %s_* environment variables and configs/.env\n", config.EnvPrefix)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

// exitCode maps a command error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	case app.IsUnauthorized(err):
		return 3
	default:
		return 1
	}
}

// isQuiet reports whether main should skip printing err. A bare errUsage
// follows a usage listing already written to stderr; wrapped usage errors
// carry their own message and are printed.
func isQuiet(err error) bool {
	var q quietError
	return errors.As(err, &q) || err == errUsage || errors.Is(err, context.Canceled)
}

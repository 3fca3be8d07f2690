// Command reclaimctl manages the reclaimed materials inventory from a
// terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/erazemk/reclaim/internal/client"
	"github.com/erazemk/reclaim/internal/config"
	"github.com/erazemk/reclaim/internal/session"
)

// command is one subcommand. run receives the arguments after its name.
type command struct {
	summary string
	run     func(ctx context.Context, app *app, args []string) error
}

var commands = map[string]command{
	"login":    {"sign in and store the session", cmdLogin},
	"logout":   {"revoke the token and forget the session", cmdLogout},
	"whoami":   {"show the signed-in user", cmdWhoami},
	"passwd":   {"change your password", cmdPasswd},
	"register": {"create an account (admin)", cmdRegister},
	"list":     {"list materials", cmdList},
	"show":     {"show one material", cmdShow},
	"create":   {"create a material", cmdCreate},
	"update":   {"change fields of a material", cmdUpdate},
	"delete":   {"delete a material", cmdDelete},
	"stats":    {"show inventory statistics", cmdStats},
	"activity": {"show the audit trail", cmdActivity},
	"import":   {"import materials from an .xlsx file", cmdImport},
	"export":   {"export all materials to an .xlsx file", cmdExport},
	"template": {"download the import template", cmdTemplate},
	"picture":  {"manage material pictures", cmdPicture},
	"taxonomy": {"list material types and their fields", cmdTaxonomy},
}

// app carries what every command needs.
type app struct {
	client  *client.Client
	session *session.Session
}

func usage(flags *pflag.FlagSet) {
	fmt.Fprintf(os.Stdout, "Usage: reclaimctl [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stdout, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stdout, "\nFlags:\n%s", flags.FlagUsages())
}

func main() {
	flags := pflag.NewFlagSet("reclaimctl", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	config.ClientFlags(flags)
	flags.Usage = func() { usage(flags) }

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if flags.NArg() == 0 {
		usage(flags)
		os.Exit(2)
	}

	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", name)
		usage(flags)
		os.Exit(2)
	}

	a, err := setup(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, a, flags.Args()[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setup(flags *pflag.FlagSet) (*app, error) {
	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(flags); err != nil {
		return nil, err
	}

	sess := session.New(session.FileStore{Path: cfg.Client.SessionPath})
	if err := sess.Hydrate(); err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	c := client.New(cfg.Client.APIURL, sess)
	c.OnUnauthorized = func() {
		fmt.Fprintln(os.Stderr, "session expired, run reclaimctl login")
	}
	return &app{client: c, session: sess}, nil
}

// guard checks the session the way the app's router would for route and
// fails early with a hint instead of sending an unauthenticated request.
func (a *app) guard(route string) error {
	d := a.session.Guard(route)
	if d.Allow {
		return nil
	}
	if d.Redirect == session.RouteLogin {
		return errors.New("not signed in, run reclaimctl login")
	}
	return fmt.Errorf("no such page: %s", route)
}

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/akmalstorm/stdcalumni/config"
	"github.com/akmalstorm/stdcalumni/internal/bootstrap"
	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
	"github.com/akmalstorm/stdcalumni/internal/service"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
	In     io.Reader
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if _, err := fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stderr); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := &commandContext{Ctx: ctx, Logger: logger, Config: cfg, Out: os.Stdout, In: os.Stdin}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmdName, "error", runErr)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Create the session_records schema in Postgres",
			run:         runMigrations,
		},
		"purge-expired": {
			name:        "purge-expired",
			description: "Delete expired session records from Postgres once",
			run:         runPurgeExpired,
		},
		"show-session": {
			name:        "show-session",
			description: "Print the persisted session of a visitor (token redacted)",
			run:         runShowSession,
		},
		"clear-session": {
			name:        "clear-session",
			description: "Sign a visitor out by clearing their persisted session",
			run:         runClearSession,
		},
	}
}

func printUsage(w io.Writer) error {
	if _, err := fmt.Fprint(w, "Usage: alumnigate-admin <command> [flags]\n\nAvailable commands:\n"); err != nil {
		return err
	}
	names := make([]string, 0, len(commands()))
	for name := range commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "  %-16s %s\n", name, commands()[name].description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

type sessionOptions struct {
	Visitor string
	Yes     bool
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.OpenPostgres(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	if migrateErr := bootstrap.ApplySessionSchema(ctx, db, cmdCtx.Logger); migrateErr != nil {
		return fmt.Errorf("run migrations: %w", migrateErr)
	}
	return nil
}

func runPurgeExpired(cmdCtx *commandContext, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("purge-expired takes no arguments, got %q", args)
	}
	if cmdCtx.Config.Session.Backend != config.BackendPostgres {
		return fmt.Errorf("purge-expired only applies to the postgres backend (SESSION_BACKEND=%s)",
			cmdCtx.Config.Session.Backend)
	}

	return withServices(cmdCtx, func(ctx context.Context, svcs bootstrap.ServiceContainer) error {
		if svcs.Janitor == nil {
			return errors.New("session backend has no purger")
		}
		n, err := svcs.Janitor.Purge(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmdCtx.Out, "Purged %d expired session record(s).\n", n)
		return err
	})
}

func runShowSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseSessionFlags("show-session", args)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, func(ctx context.Context, svcs bootstrap.ServiceContainer) error {
		fields, loadErr := svcs.Stores.Records.Load(ctx, opts.Visitor)
		if loadErr != nil {
			return fmt.Errorf("load session record: %w", loadErr)
		}
		return printSession(cmdCtx.Out, opts.Visitor, fields)
	})
}

func runClearSession(cmdCtx *commandContext, args []string) error {
	opts, err := parseSessionFlags("clear-session", args)
	if err != nil {
		return err
	}
	if confirmErr := confirmAction(cmdCtx, opts.Yes, "clear the persisted session of visitor "+opts.Visitor); confirmErr != nil {
		return confirmErr
	}

	return withServices(cmdCtx, func(ctx context.Context, svcs bootstrap.ServiceContainer) error {
		if clearErr := service.NewSessionStore(svcs.Stores.Records, opts.Visitor).Clear(ctx); clearErr != nil {
			return clearErr
		}
		cmdCtx.Logger.InfoContext(ctx, "visitor session cleared", "visitor", opts.Visitor)
		_, writeErr := fmt.Fprintf(cmdCtx.Out, "Cleared session for visitor %s.\n", opts.Visitor)
		return writeErr
	})
}

// withServices connects the configured backend, wires services and runs fn
// under the default command timeout.
func withServices(cmdCtx *commandContext, fn func(context.Context, bootstrap.ServiceContainer) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	infra, err := bootstrap.ConnectInfrastructure(ctx, &cmdCtx.Config, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure failed", "error", closeErr)
		}
	}()

	svcs, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cmdCtx.Config,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	return fn(ctx, svcs)
}

// printSession renders a persisted record. The auth token is never printed.
func printSession(w io.Writer, visitor string, fields map[string]string) error {
	if len(fields) == 0 {
		_, err := fmt.Fprintf(w, "No persisted session for visitor %s.\n", visitor)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{{"Visitor", visitor}}

	rawRole, hasRole := fields[service.KeyUserRole]
	role, ok := domainauth.ParseStoredRole(rawRole)
	switch {
	case !hasRole:
		rows = append(rows, [2]string{"Role", "(missing)"})
	case !ok:
		rows = append(rows, [2]string{"Role", fmt.Sprintf("%q (unrecognized)", rawRole)})
	default:
		rows = append(rows, [2]string{"Role", string(role)})
	}

	if rawInfo, hasInfo := fields[service.KeyUserInfo]; !hasInfo {
		rows = append(rows, [2]string{"User", "(missing)"})
	} else if info, err := domainauth.DecodeUserInfo([]byte(rawInfo)); err != nil {
		rows = append(rows, [2]string{"User", "(undecodable: " + err.Error() + ")"})
	} else {
		rows = append(rows,
			[2]string{"User ID", info.ID.String()},
			[2]string{"Profile", info.ProfileStatus.String()},
		)
	}

	token := "absent"
	if fields[service.KeyAuthToken] != "" {
		token = "present"
	}
	rows = append(rows, [2]string{"Auth token", token})

	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseSessionFlags(name string, args []string) (sessionOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := sessionOptions{}
	fs.StringVar(&opts.Visitor, "visitor", "", "Visitor id (the session cookie value)")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return sessionOptions{}, err
	}
	opts.Visitor = strings.TrimSpace(opts.Visitor)
	if opts.Visitor == "" {
		return sessionOptions{}, errors.New("--visitor is required")
	}
	return opts, nil
}

func confirmAction(cmdCtx *commandContext, yes bool, action string) error {
	if yes {
		return nil
	}
	if _, err := fmt.Fprintf(cmdCtx.Out, "About to %s.\nContinue? [y/N]: ", action); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(cmdCtx.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp == "y" || resp == "yes" {
		return nil
	}
	return errors.New("aborted by user")
}

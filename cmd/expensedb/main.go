package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"expense-tracker/internal/config"
	"expense-tracker/internal/logging"
	"expense-tracker/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries the global flags and the configuration shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	envFile   string
	dbPath    string
	driver    string
	verbosity int
	logToFile bool

	cfg *config.Config
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:               "expensedb",
		Short:             "Expense tracker database tool",
		Long:              `expensedb creates the expense tracker schema and manages users and expenses stored in it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Optional .env file read before the environment")
	root.PersistentFlags().StringVarP(&a.dbPath, "db", "d", storage.DefaultPath, "Database path or URL (or set DB_PATH env var)")
	root.PersistentFlags().StringVar(&a.driver, "driver", storage.DriverSQLite, "Database driver (or set DB_DRIVER env var)")
	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	root.PersistentFlags().BoolVar(&a.logToFile, "log-to-file", false, "Also write logs to expenses.log next to the database")

	root.AddCommand(
		a.initCmd(),
		a.addUserCmd(),
		a.deleteUserCmd(),
		a.addExpenseCmd(),
		a.expensesCmd(),
		a.summaryCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.stdout, "expensedb %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)
	return root
}

// setup loads configuration, applies flag overrides and configures logging.
// Flags win over the environment only when given explicitly.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.Path = a.dbPath
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = a.driver
	}
	cfg.Log.Level = logging.LevelForVerbosity(a.verbosity, cfg.Log.Level)
	if a.logToFile && cfg.Log.File == "" {
		cfg.Log.File = logging.FilePathForDB(cfg.Database.Path)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Apply(cfg.Log, a.stderr)
	log.Debug().Str("config", cfg.String()).Msg("Configuration loaded")

	a.cfg = cfg
	return nil
}

// withEngine opens the configured database, materializes the schema and
// hands the engine to fn. The engine is closed when fn returns.
func (a *app) withEngine(ctx context.Context, fn func(*storage.Engine) error) error {
	engine, err := storage.Open(ctx, a.cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer engine.Close()

	if err := engine.Materialize(ctx); err != nil {
		return err
	}
	return fn(engine)
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

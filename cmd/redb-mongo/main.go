package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/redbco/redb-mongo/cmd/redb-mongo/internal/config"
	"github.com/redbco/redb-mongo/pkg/backend"
	_ "github.com/redbco/redb-mongo/pkg/backend/mongodb"
	"github.com/redbco/redb-mongo/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	hostFlag     string
	databaseFlag string

	cfg *config.Config
	log *logger.Logger

	// Build information, set with -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func printVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "redb-mongo %s\n", Version)
	fmt.Fprintf(w, "Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// versionRequested reports whether --version was passed to the root command.
// The flag is local to the root, so subcommands never match.
func versionRequested(cmd *cobra.Command) bool {
	flag := cmd.Flags().Lookup("version")
	return flag != nil && flag.Changed
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "redb-mongo",
	Short: "Inspect a MongoDB database",
	Long:  "Open a connection to a MongoDB database, list or drop its collections, and check that it is reachable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionRequested(cmd) {
			printVersionInfo(cmd.OutOrStdout())
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if versionRequested(cmd) {
			return nil
		}
		return initConfig()
	},
	SilenceUsage: true,
}

func initConfig() error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}
	if hostFlag != "" {
		loaded.Host = hostFlag
	}
	if databaseFlag != "" {
		loaded.Database = databaseFlag
	}
	cfg = loaded

	log = logger.New("redb-mongo", Version)
	log.SetOutput(os.Stderr)
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

// newManager builds a Manager for the configured backend.
func newManager() (*backend.Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory, err := backend.GlobalRegistry().Get(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %v)", err, backend.GlobalRegistry().Names())
	}

	driver := factory(backend.DriverOptions{
		ConnectTimeoutSeconds: cfg.ConnectTimeout,
		AppName:               cfg.AppName,
	})
	return backend.NewManager(driver, backend.WithLogger(log)), nil
}

// withDatabase opens the configured database, runs fn and closes the connection.
func withDatabase(ctx context.Context, fn func(m *backend.Manager, db backend.Database) error) (err error) {
	m, err := newManager()
	if err != nil {
		return err
	}

	db, err := m.Open(ctx, cfg.Host, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(m, db)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "MongoDB host or mongodb:// URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&databaseFlag, "database", "", "Database name (overrides config)")

	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	setupCommands()
}

func main() {
	Execute()
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skshohagmiah/couchctl/internal/batch"
	"github.com/skshohagmiah/couchctl/internal/config"
	"github.com/skshohagmiah/couchctl/internal/connection"
	"github.com/skshohagmiah/couchctl/internal/couch"
	"github.com/skshohagmiah/couchctl/internal/transport"
)

var (
	// Global flags
	cfgFile   string
	serverURL string
	username  string
	password  string
	timeout   time.Duration
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "couchctl",
	Short: "Manage a CouchDB server: databases, indexes, documents",
	Long: `couchctl is a management tool for a CouchDB server. It connects over
HTTP, enumerates and mutates databases, manages Mango indexes, and
performs revision-aware CRUD on JSON documents, including batch
deletions and substring search.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Interrupts cancel the context so
// batch runs stop between items.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default couchctl.yaml, then $HOME/.couchctl)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default http://localhost:5984)")
	rootCmd.PersistentFlags().StringVar(&username, "user", "", "username for basic auth")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "password for basic auth")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request timeout (default 30s)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// settings merges the config sources with the command line; a flag
// the user set beats the file and the environment.
func settings() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}

	pf := rootCmd.PersistentFlags()
	if pf.Changed("server") {
		cfg.ServerURL = serverURL
	}
	if pf.Changed("user") {
		cfg.Username = username
	}
	if pf.Changed("password") {
		cfg.Password = password
	}
	if pf.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if pf.Changed("verbose") {
		cfg.Verbose = verbose
	}
	return cfg, nil
}

// newLogger builds the CLI logger: human-readable development output
// under --verbose, silent otherwise.
func newLogger(cfg config.Config) (*zap.SugaredLogger, error) {
	if !cfg.Verbose {
		return zap.NewNop().Sugar(), nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l.Sugar(), nil
}

// connect loads settings, builds the logger, and dials the server.
// Every command that talks to the server goes through here.
func connect(ctx context.Context) (*connection.Manager, *zap.SugaredLogger, error) {
	cfg, err := settings()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	m := connection.New(log)
	opts := transport.Options{
		BaseURL: cfg.ServerURL,
		Auth:    couch.Credentials{Username: cfg.Username, Password: cfg.Password},
		Timeout: cfg.Timeout,
		Logger:  log,
	}
	if _, err := m.Connect(ctx, opts); err != nil {
		return nil, nil, err
	}
	return m, log, nil
}

// printProgress renders one line per batch item.
func printProgress(done, total int, id string, err error) {
	if err != nil {
		fmt.Printf("❌ [%d/%d] %s: %v\n", done, total, id, err)
		return
	}
	fmt.Printf("✅ [%d/%d] %s\n", done, total, id)
}

// reportBatch summarizes a run; partial failure becomes a non-zero
// exit.
func reportBatch(what string, res *batch.Result) error {
	fmt.Printf("%d/%d %s deleted\n", len(res.Succeeded), len(res.Requested), what)
	if res.Ok() {
		return nil
	}
	return fmt.Errorf("%d of %d %s failed", len(res.Failed), len(res.Requested), what)
}

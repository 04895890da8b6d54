package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"certeval/internal/agent"
	"certeval/internal/config"
	"certeval/internal/logging"
	"certeval/internal/perception"
	"certeval/internal/state"
	"certeval/internal/store"
)

var (
	configPath      string
	certificatePath string
	sessionDir      string
	verbose         bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "certeval",
	Short: "certeval - conversational certificate evaluation agent",
	Long: `certeval is an agentic assistant for evaluating academic certificates.

It extracts structured fields from a certificate document, accepts weighted
evaluation criteria, scores the certificate against them, and answers
questions about what it has extracted - all through natural conversation.
Every turn is routed by a language model to one of nine actions, and the
full session state is persisted between runs.

Run without arguments to start the interactive chat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if certificatePath != "" {
			cfg.Certificate.Path = certificatePath
		}
		if sessionDir != "" {
			cfg.Session.Dir = sessionDir
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger = logging.New(cfg.Logging)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Process a single message and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, st, cleanup, err := buildAgent()
		if err != nil {
			return err
		}
		defer cleanup()

		var message string
		for i, arg := range args {
			if i > 0 {
				message += " "
			}
			message += arg
		}

		reply := a.ProcessTurn(cmd.Context(), st, message)
		fmt.Println(reply)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved session summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := store.NewSessionStore(cfg.Session.Dir, logger)
		if err != nil {
			return err
		}
		summary, err := sessions.Summarize()
		if err != nil {
			return err
		}
		if summary == nil {
			fmt.Println("No saved session.")
			return nil
		}
		fmt.Printf("Saved session from %s\n", summary.Timestamp)
		fmt.Printf("  Exchanges: %d\n", summary.Exchanges)
		fmt.Printf("  Extracted fields: %d\n", summary.Fields)
		fmt.Printf("  Evaluation criteria: %d\n", summary.Criteria)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived session snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := store.NewSessionStore(cfg.Session.Dir, logger)
		if err != nil {
			return err
		}
		names, err := sessions.ListSnapshots()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No archived snapshots.")
		} else {
			fmt.Println("Archived snapshots:")
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
		}

		archive, err := store.OpenArchive(filepath.Join(cfg.Session.Dir, "turns.db"), logger)
		if err != nil {
			return nil
		}
		defer archive.Close()
		counts, err := archive.SessionCounts()
		if err != nil || len(counts) == 0 {
			return nil
		}
		fmt.Println("Archived turn counts:")
		var total int
		for id, n := range counts {
			fmt.Printf("  %s: %d turns\n", id, n)
			total += n
		}
		fmt.Printf("  (%d turns across %d sessions)\n", total, len(counts))
		return nil
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the current session (archived snapshots are kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear without --yes")
		}
		sessions, err := store.NewSessionStore(cfg.Session.Dir, logger)
		if err != nil {
			return err
		}
		if err := sessions.Clear(); err != nil {
			return err
		}
		fmt.Println("Current session cleared.")
		return nil
	},
}

// buildAgent wires the full stack: config -> completion chain -> router ->
// stores -> agent, with the saved session and certificate loaded into the
// returned context.
func buildAgent() (*agent.Agent, *state.Context, func(), error) {
	chain, err := perception.NewChainFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("completion chain ready", zap.Strings("backends", chain.Backends()))

	sessions, err := store.NewSessionStore(cfg.Session.Dir, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	archive, err := store.OpenArchive(filepath.Join(cfg.Session.Dir, "turns.db"), logger)
	if err != nil {
		logger.Warn("turn archive unavailable, continuing without it", zap.Error(err))
		archive = nil
	}

	st := state.New()
	if err := sessions.Load(st); err != nil {
		return nil, nil, nil, fmt.Errorf("saved session could not be restored: %w", err)
	}

	if st.Certificate.RawText == "" {
		data, err := os.ReadFile(cfg.Certificate.Path)
		if err != nil {
			logger.Warn("certificate file not loaded",
				zap.String("path", cfg.Certificate.Path), zap.Error(err))
		} else {
			st.Certificate.RawText = string(data)
			logger.Info("certificate loaded",
				zap.String("path", cfg.Certificate.Path), zap.Int("bytes", len(data)))
		}
	}

	a := agent.New(agent.NewRouter(chain, logger), sessions, archive, logger)
	cleanup := func() {
		if archive != nil {
			_ = archive.Close()
		}
	}
	return a, st, cleanup, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./certeval.yaml)")
	rootCmd.PersistentFlags().StringVar(&certificatePath, "certificate", "", "certificate file to evaluate")
	rootCmd.PersistentFlags().StringVar(&sessionDir, "session-dir", "", "session persistence directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")

	rootCmd.AddCommand(runCmd, statusCmd, sessionsCmd, clearCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

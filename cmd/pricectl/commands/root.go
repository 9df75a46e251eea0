// Package commands implements the pricectl command tree.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	"github.com/pricelens/backend/internal/infrastructure/logging"
)

// runtime holds what subcommands share once the root has initialized
type runtime struct {
	knowledgeBasePath string
	verbose           bool

	cfg      *config.Config
	logger   *zap.Logger
	services *app.Services
}

// NewRootCmd builds the pricectl command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&runtime{})
}

func newRootCmd(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:   "pricectl",
		Short: "PriceLens command line: reconcile prices and manage the knowledge base",
		Long: `pricectl runs the price reconciliation engine against the knowledge base and
live marketplaces, and manages the knowledge base spreadsheet.

Configuration is read the same way as the server: config.yaml, .env and
PRICELENS_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rt.knowledgeBasePath, "knowledge-base", "", "knowledge base .xlsx path (overrides config)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newReconcileCmd(rt))
	root.AddCommand(newKnowledgeBaseCmd(rt))

	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func (rt *runtime) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if rt.knowledgeBasePath != "" {
		cfg.KnowledgeBase.Path = rt.knowledgeBasePath
	}

	level := "warn"
	if rt.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return err
	}

	services, err := app.Build(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.logger = logger
	rt.services = services
	return nil
}

// run wraps a subcommand body. Cobra skips PersistentPostRun when RunE fails,
// so the services built by init are released here on every path.
func (rt *runtime) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer rt.close()
		return fn(cmd, args)
	}
}

func (rt *runtime) close() {
	if rt.services != nil {
		rt.services.Close()
		rt.services = nil
	}
	if rt.logger != nil {
		_ = rt.logger.Sync()
		rt.logger = nil
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davidschrooten/index-bootstrap/config"
)

// bootstrapCmd runs a single bootstrap and exits
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Recreate the core, reconcile its schema and index the documents",
	Long: `Unload and recreate the configured core, recreate the suggester, bring the
schema in line with the definitions and index every document of the source.
Any failure aborts the run.`,
	RunE: runBootstrap,
}

// planCmd prints the schema commands a bootstrap would issue
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the schema commands a bootstrap would apply to the live core",
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(planCmd)

	bootstrapCmd.Flags().String("source", "", "JSON file of id -> document to index")
	bootstrapCmd.Flags().Int("batch-size", 0, "documents per update request")
	bootstrapCmd.Flags().Bool("nested", false, "index embedded objects as child documents")

	viper.BindPFlag("source.path", bootstrapCmd.Flags().Lookup("source"))
	viper.BindPFlag("indexing.batch_size", bootstrapCmd.Flags().Lookup("batch-size"))
	viper.BindPFlag("normalize.nested", bootstrapCmd.Flags().Lookup("nested"))
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	service, err := newService(cfg, eng, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize indexer: %w", err)
	}

	docs, err := documentLoader(cfg, logger)(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	report, err := service.Run(ctx, docs)
	if err != nil {
		return fmt.Errorf("bootstrap of core %s failed: %w", cfg.Engine.Core, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents into %s in %d batches (%s)\n",
		report.Documents, report.Core, report.Batches, report.Duration())
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Log.Level, cfg.Log.Format)

	eng, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	service, err := newService(cfg, eng, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize indexer: %w", err)
	}

	plan, err := service.Plan(cmd.Context())
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	for _, c := range plan.Commands() {
		if err := encoder.Encode(c); err != nil {
			return err
		}
	}
	if plan.Empty() {
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
	}
	return nil
}

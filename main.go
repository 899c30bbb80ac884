package main

import (
	"context"
	"fmt"
	"os"

	"github.com/assujiar/ugc-business-command-portal-sub003/app"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/config"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/workflow"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:          "bizflow",
		Short:        "Workflow service for marketing, sales and support entities",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			common.ConfigureLogLevel(logLevel)
		},
	}

	configFile string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("BIZFLOW_CONFIG"), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newWorkflowsCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	a, err := app.Open(cfg)
	if err != nil {
		return nil, err
	}
	// database migration (race condition)
	if err := a.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Provision(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and serve the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logrus.Info("service start")
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the database and provision the configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			a.Close()
			logrus.Info("database migrated")
			return nil
		},
	}
}

func newWorkflowsCommand() *cobra.Command {
	var graph bool
	cmd := &cobra.Command{
		Use:   "workflows [entity type]",
		Short: "Print the transition tables",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if err := app.LoadWorkflows(cfg.Workflows); err != nil {
				return err
			}
			tables := workflow.ActiveRegistry.Tables()
			if len(args) == 1 {
				t, found := workflow.ActiveRegistry.Table(domain.EntityType(args[0]))
				if !found {
					return fmt.Errorf("unknown entity type '%s'", args[0])
				}
				tables = []*workflow.Table{t}
			}
			out := cmd.OutOrStdout()
			for _, t := range tables {
				if graph {
					fmt.Fprintln(out, t.Graph())
					continue
				}
				fmt.Fprintf(out, "%s (initial: %s)\n", t.EntityType, t.InitialState)
				for _, s := range t.States {
					marker := ""
					if s.Terminal {
						marker = " [terminal]"
					}
					fmt.Fprintf(out, "  %s%s -> %v\n", s.Name, marker, t.Targets(s.Name))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&graph, "graph", false, "Print DOT graphs")
	return cmd
}

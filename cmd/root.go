// Package cmd implements the autoshutdown command line.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/autoshutdown/app"
	"github.com/kilianp07/autoshutdown/config"
	"github.com/kilianp07/autoshutdown/core/orchestrator"
	"github.com/kilianp07/autoshutdown/infra/logger"
	"github.com/kilianp07/autoshutdown/infra/notify"
)

var (
	cfgPath  string
	output   string
	simulate bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "autoshutdown",
	Short: "Start and deallocate virtual machines from their AutoShutdownSchedule tag",
	Long: `autoshutdown reconciles the power state of every virtual machine in the
configured subscriptions against the schedule in its AutoShutdownSchedule tag.
Machines inside a window are deallocated, machines outside are started.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides logging.level")
	rootCmd.Flags().StringVarP(&output, "output", "o", "text", "report format: text, json or yaml")
	rootCmd.Flags().BoolVar(&simulate, "simulate", false, "decide without calling the provider, overrides the simulate setting")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f := cmd.Flags().Lookup("simulate"); f != nil && f.Changed {
		cfg.Simulate = simulate
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := logger.SetLevel(level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return writeReports(cmd.OutOrStdout(), output, svc.RunOnce(ctx))
}

func writeReports(w io.Writer, format string, reports []orchestrator.Report) error {
	if reports == nil {
		reports = []orchestrator.Report{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		if len(reports) == 0 {
			_, err := fmt.Fprintln(w, "No machine changed state.")
			return err
		}
		_, err := fmt.Fprintln(w, notify.TextAll(reports))
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

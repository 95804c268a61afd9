/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: learn.go
Description: Learn command implementation for the Akaylee Invariants engine.
Runs the full learning pipeline with graceful shutdown on interrupt and writes
the ranked invariant report to the configured destination.
*/

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kleascm/akaylee-invariants/pkg/core"
	"github.com/kleascm/akaylee-invariants/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunLearn executes the invariant learning pipeline
func RunLearn(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := SetupLogging()
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logger.Close()

	config := CreateLearnConfig()
	if err := ValidateLearnConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	engine := core.NewEngine(config, logger)
	engine.SetReporter(core.NewLoggerReporter(logger))

	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	// Graceful shutdown: a first interrupt cancels refutation, survivors are
	// reported budget-limited.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warnf("Received shutdown signal, finishing current work")
		cancel()
	}()

	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("learning run failed: %w", err)
	}

	report := core.BuildReport(config, result)
	if err := writeReport(report, config.OutputPath, config.OutputFormat); err != nil {
		return err
	}

	if metricsDir := viper.GetString("log_dir"); metricsDir != "" {
		path, err := utils.WriteSessionMetrics(filepath.Join(metricsDir, "metrics"), result.SessionID, result.Stats)
		if err != nil {
			logger.Warnf("Failed to write session metrics: %v", err)
		} else {
			logger.Infof("Session metrics written to %s", path)
		}
	}

	logger.Infof("Learning session %s complete: %d invariants", result.SessionID, len(report.Invariants))
	return nil
}

// writeReport renders the report to the output path, or stdout when empty.
func writeReport(report *core.Report, path string, format string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		w = file
	}

	if format == "text" {
		return report.WriteText(w)
	}
	return report.WriteJSON(w)
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akaylee Invariants commands. Provides
common configuration loading, logging setup, and construction of the learner
configuration from command-line flags, environment, and config files.
*/

package commands

import (
	"fmt"

	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/kleascm/akaylee-invariants/pkg/logging"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("AKAYLEE")
	viper.AutomaticEnv()

	return nil
}

// SetupLogging creates the structured logger from the logging flags
func SetupLogging() (*logging.Logger, error) {
	format := logging.LogFormatText
	if viper.GetBool("json_logs") {
		format = logging.LogFormatJSON
	}

	config := &logging.LoggerConfig{
		Level:     logging.LogLevel(viper.GetString("log_level")),
		Format:    format,
		OutputDir: viper.GetString("log_dir"),
		Timestamp: true,
		Colors:    !viper.GetBool("json_logs"),
	}

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// CreateLearnConfig assembles the learner configuration from viper
func CreateLearnConfig() *interfaces.LearnConfig {
	return &interfaces.LearnConfig{
		GrammarPath: viper.GetString("grammar_path"),
		CorpusDir:   viper.GetString("corpus_dir"),
		CatalogPath: viper.GetString("catalog_path"),

		OutputPath:   viper.GetString("output_path"),
		OutputFormat: viper.GetString("output_format"),

		MaxCandidates:  viper.GetInt("max_candidates"),
		MaxArity:       viper.GetInt("max_arity"),
		MaxAssignments: viper.GetInt("max_assignments"),
		RefuteRounds:   viper.GetInt("refute_rounds"),
		RefuteTimeout:  viper.GetDuration("refute_timeout"),

		MaxExamples: viper.GetInt("max_examples"),
		PathLength:  viper.GetInt("path_length"),

		Workers: viper.GetInt("workers"),
		Seed:    viper.GetInt64("seed"),

		SolverCommand:  viper.GetString("solver_command"),
		SolverSessions: viper.GetInt("solver_sessions"),
		SolverTimeout:  viper.GetDuration("solver_timeout"),

		LogLevel: viper.GetString("log_level"),
		JSONLogs: viper.GetBool("json_logs"),
	}
}

// ValidateLearnConfig rejects configurations that cannot produce a run
func ValidateLearnConfig(config *interfaces.LearnConfig) error {
	if config.GrammarPath == "" {
		return fmt.Errorf("grammar path is required")
	}
	if config.CorpusDir == "" {
		return fmt.Errorf("corpus directory is required")
	}
	if config.CatalogPath == "" {
		return fmt.Errorf("catalog path is required")
	}
	switch config.OutputFormat {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown output format %q", config.OutputFormat)
	}
	if config.MaxArity < 1 {
		return fmt.Errorf("max arity must be at least 1")
	}
	return nil
}

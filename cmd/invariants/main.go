/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for the Akaylee Invariants engine.
Provides the learn, list-templates, and check commands with comprehensive
command-line options and configuration management.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kleascm/akaylee-invariants/cmd/invariants/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string
	jsonLogs   bool
	logDir     string

	// Input configuration
	grammarPath string
	corpusDir   string
	catalogPath string

	// Output configuration
	outputPath   string
	outputFormat string

	// Search budget configuration
	maxCandidates  int
	maxArity       int
	maxAssignments int
	refuteRounds   int
	refuteTimeout  time.Duration

	// Corpus reduction configuration
	maxExamples int
	pathLength  int

	// Execution configuration
	workers int
	seed    int64

	// Solver configuration
	solverCommand  string
	solverSessions int
	solverTimeout  time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "akaylee-invariants",
		Short: "Akaylee Invariants - Grammar-based invariant learning engine",
		Long: `Akaylee Invariants learns candidate invariants over languages described by
context-free grammars. Given a grammar, a corpus of example derivation trees, and a
catalog of constraint templates, it instantiates candidates, checks them against every
example, actively tries to refute the survivors with grammar-valid counterexamples,
and reports the invariants that stand, ranked by evidence.`,
		Version: "1.0.0",
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Use JSON log format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "./logs", "Log output directory")

	// Bind persistent flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))

	// Add learn command
	learnCmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn invariants from a grammar and an example corpus",
		Long: `Run the full learning pipeline: instantiate candidates from the template
catalog, evaluate them against every example tree, refute the survivors within a
per-candidate budget, and write the ranked invariant report.`,
		RunE: commands.RunLearn,
	}

	learnCmd.Flags().StringVar(&grammarPath, "grammar", "", "Path to grammar JSON file (required)")
	learnCmd.Flags().StringVar(&corpusDir, "corpus", "", "Directory of example derivation trees (required)")
	learnCmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to template catalog YAML file (required)")

	learnCmd.Flags().StringVar(&outputPath, "output", "", "Report destination ('' = stdout)")
	learnCmd.Flags().StringVar(&outputFormat, "format", "json", "Report format (json, text)")

	learnCmd.Flags().IntVar(&maxCandidates, "max-candidates", 5000, "Maximum candidates per template")
	learnCmd.Flags().IntVar(&maxArity, "max-arity", 4, "Maximum placeholder binding arity")
	learnCmd.Flags().IntVar(&maxAssignments, "max-assignments", 512, "Maximum node assignments per candidate and example")
	learnCmd.Flags().IntVar(&refuteRounds, "refute-rounds", 200, "Mutation rounds per candidate")
	learnCmd.Flags().DurationVar(&refuteTimeout, "refute-timeout", 5*time.Second, "Per-candidate refutation deadline")

	learnCmd.Flags().IntVar(&maxExamples, "max-examples", 0, "Corpus size cap (0 = unlimited)")
	learnCmd.Flags().IntVar(&pathLength, "path-length", 0, "k for symbol-path corpus reduction (0 = disabled)")

	learnCmd.Flags().IntVar(&workers, "workers", 0, "Number of parallel workers (0 = auto-detect)")
	learnCmd.Flags().Int64Var(&seed, "seed", 1, "RNG seed for reproducible refutation search")

	learnCmd.Flags().StringVar(&solverCommand, "solver", "z3", "External SMT solver binary ('' disables)")
	learnCmd.Flags().IntVar(&solverSessions, "solver-sessions", 4, "Pooled solver sessions")
	learnCmd.Flags().DurationVar(&solverTimeout, "solver-timeout", 2*time.Second, "Per-query solver deadline")

	learnCmd.MarkFlagRequired("grammar")
	learnCmd.MarkFlagRequired("corpus")
	learnCmd.MarkFlagRequired("catalog")

	// Bind learn flags to viper
	viper.BindPFlag("grammar_path", learnCmd.Flags().Lookup("grammar"))
	viper.BindPFlag("corpus_dir", learnCmd.Flags().Lookup("corpus"))
	viper.BindPFlag("catalog_path", learnCmd.Flags().Lookup("catalog"))
	viper.BindPFlag("output_path", learnCmd.Flags().Lookup("output"))
	viper.BindPFlag("output_format", learnCmd.Flags().Lookup("format"))
	viper.BindPFlag("max_candidates", learnCmd.Flags().Lookup("max-candidates"))
	viper.BindPFlag("max_arity", learnCmd.Flags().Lookup("max-arity"))
	viper.BindPFlag("max_assignments", learnCmd.Flags().Lookup("max-assignments"))
	viper.BindPFlag("refute_rounds", learnCmd.Flags().Lookup("refute-rounds"))
	viper.BindPFlag("refute_timeout", learnCmd.Flags().Lookup("refute-timeout"))
	viper.BindPFlag("max_examples", learnCmd.Flags().Lookup("max-examples"))
	viper.BindPFlag("path_length", learnCmd.Flags().Lookup("path-length"))
	viper.BindPFlag("workers", learnCmd.Flags().Lookup("workers"))
	viper.BindPFlag("seed", learnCmd.Flags().Lookup("seed"))
	viper.BindPFlag("solver_command", learnCmd.Flags().Lookup("solver"))
	viper.BindPFlag("solver_sessions", learnCmd.Flags().Lookup("solver-sessions"))
	viper.BindPFlag("solver_timeout", learnCmd.Flags().Lookup("solver-timeout"))

	// Add list-templates command
	listCmd := &cobra.Command{
		Use:   "list-templates",
		Short: "List the templates of a catalog with their placeholder typing",
		RunE:  commands.RunListTemplates,
	}
	listCmd.Flags().String("catalog", "", "Path to template catalog YAML file (required)")
	listCmd.MarkFlagRequired("catalog")
	viper.BindPFlag("list_catalog_path", listCmd.Flags().Lookup("catalog"))

	// Add check command
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Re-check a learned invariant report against a corpus",
		Long: `Load a previously learned JSON report, reconstruct its invariants from the
template catalog, and evaluate each against a (possibly new) example corpus. Exits
non-zero when any invariant is violated.`,
		RunE: commands.RunCheck,
	}
	checkCmd.Flags().String("report", "", "Path to a learned JSON report (required)")
	checkCmd.Flags().String("grammar", "", "Path to grammar JSON file (required)")
	checkCmd.Flags().String("corpus", "", "Directory of example derivation trees (required)")
	checkCmd.Flags().String("catalog", "", "Path to template catalog YAML file (required)")
	checkCmd.MarkFlagRequired("report")
	checkCmd.MarkFlagRequired("grammar")
	checkCmd.MarkFlagRequired("corpus")
	checkCmd.MarkFlagRequired("catalog")
	viper.BindPFlag("check_report_path", checkCmd.Flags().Lookup("report"))
	viper.BindPFlag("check_grammar_path", checkCmd.Flags().Lookup("grammar"))
	viper.BindPFlag("check_corpus_dir", checkCmd.Flags().Lookup("corpus"))
	viper.BindPFlag("check_catalog_path", checkCmd.Flags().Lookup("catalog"))

	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

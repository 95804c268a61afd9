/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utilities.go
Description: Utility command implementations for the Akaylee Invariants engine.
Provides catalog inspection and re-checking of previously learned invariant
reports against a new example corpus.
*/

package commands

import (
	"fmt"
	"os"

	"github.com/kleascm/akaylee-invariants/pkg/catalog"
	"github.com/kleascm/akaylee-invariants/pkg/core"
	"github.com/kleascm/akaylee-invariants/pkg/evaluate"
	"github.com/kleascm/akaylee-invariants/pkg/grammar"
	"github.com/kleascm/akaylee-invariants/pkg/instantiate"
	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunListTemplates prints the catalog templates with their typing
func RunListTemplates(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cat, diags, err := catalog.LoadCatalog(viper.GetString("list_catalog_path"))
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	for _, tpl := range cat.Templates() {
		fmt.Printf("%s (%s)\n", tpl.Name, tpl.Quantifier)
		if tpl.Group != "" {
			fmt.Printf("  group:      %s\n", tpl.Group)
		}
		fmt.Printf("  constraint: %s\n", tpl.Constraint)
		for _, ph := range tpl.Placeholders {
			switch {
			case ph.Symbol != "":
				fmt.Printf("  %-10s  symbol %s\n", ph.Name, ph.Symbol)
			case ph.AnyKind:
				fmt.Printf("  %-10s  any subtree\n", ph.Name)
			default:
				fmt.Printf("  %-10s  %s\n", ph.Name, ph.Kind)
			}
		}
		fmt.Println()
	}

	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", d.Source, d.Detail)
	}
	return nil
}

// RunCheck re-evaluates a learned report against a corpus
func RunCheck(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	file, err := os.Open(viper.GetString("check_report_path"))
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	report, err := core.LoadReport(file)
	file.Close()
	if err != nil {
		return err
	}

	g, err := grammar.LoadGrammar(viper.GetString("check_grammar_path"))
	if err != nil {
		return fmt.Errorf("failed to load grammar: %w", err)
	}

	cat, _, err := catalog.LoadCatalog(viper.GetString("check_catalog_path"))
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	byName := make(map[string]*catalog.Template, cat.Len())
	for _, tpl := range cat.Templates() {
		byName[tpl.Name] = tpl
	}

	corpus, diags, err := core.LoadCorpus(g, viper.GetString("check_corpus_dir"), 0)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", d.Source, d.Detail)
	}

	evaluator := evaluate.NewEvaluator(0)
	violated := 0

	for _, inv := range report.Invariants {
		tpl, ok := byName[inv.Template]
		if !ok {
			fmt.Printf("SKIP      %s (template %s not in catalog)\n", inv.Formula, inv.Template)
			continue
		}
		c := instantiate.NewCandidate(tpl, inv.Bindings)
		verdict := evaluator.EvaluateAll(c, corpus.Examples())
		switch {
		case verdict.Violated:
			violated++
			fmt.Printf("VIOLATED  %s (counterexample %s)\n", inv.Formula, verdict.CounterExample)
		case verdict.Support == 0:
			fmt.Printf("%-9s %s\n", interfaces.VerdictInapplicable, inv.Formula)
		default:
			fmt.Printf("HOLDS     %s (support %d/%d)\n", inv.Formula, verdict.Support, corpus.Len())
		}
	}

	if violated > 0 {
		return fmt.Errorf("%d of %d invariants violated", violated, len(report.Invariants))
	}
	return nil
}

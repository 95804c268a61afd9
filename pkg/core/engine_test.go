/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: End-to-end tests for the learning engine: initialization error
taxonomy, the full instantiate-evaluate-refute-rank pipeline, diagnostics
collection, and report building with JSON round-trip.
*/

package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kleascm/akaylee-invariants/pkg/interfaces"
	"github.com/kleascm/akaylee-invariants/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `
- name: non-negative
  group: numeric
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"

- name: at-most-three
  group: numeric
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) <= 3"

- name: broken
  quantifier: most
  placeholders:
    - name: x
      kind: numeric-leaf
  constraint: "int(x) >= 0"
`

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelError,
		Format: logging.LogFormatText,
	})
	require.NoError(t, err)
	return logger
}

// setupRun writes a grammar, catalog, and corpus into a temp dir and returns
// the learner configuration pointing at them.
func setupRun(t *testing.T) *interfaces.LearnConfig {
	t.Helper()
	dir := t.TempDir()

	grammarPath := filepath.Join(dir, "grammar.json")
	require.NoError(t, os.WriteFile(grammarPath, []byte(`{
		"<start>": ["<num>"],
		"<num>": ["<digit><num>", "<digit>"],
		"<digit>": ["0", "1", "2", "5", "9"]
	}`), 0644))

	catalogPath := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalogYAML), 0644))

	corpusDir := filepath.Join(dir, "corpus")
	require.NoError(t, os.Mkdir(corpusDir, 0755))
	writeCorpus(t, corpusDir, map[string]string{
		"a.json":   treeJSON("12"),
		"b.json":   treeJSON("5"),
		"c.json":   treeJSON("0"),
		"bad.json": "{",
	})

	return &interfaces.LearnConfig{
		GrammarPath:    grammarPath,
		CorpusDir:      corpusDir,
		CatalogPath:    catalogPath,
		MaxCandidates:  100,
		MaxArity:       4,
		MaxAssignments: 64,
		RefuteRounds:   20,
		RefuteTimeout:  10 * time.Second,
		Workers:        2,
		Seed:           7,
	}
}

func TestEngineInitializeErrors(t *testing.T) {
	config := setupRun(t)
	logger := testLogger(t)

	missingGrammar := *config
	missingGrammar.GrammarPath = filepath.Join(t.TempDir(), "none.json")
	err := NewEngine(&missingGrammar, logger).Initialize()
	assert.Error(t, err)

	missingCatalog := *config
	missingCatalog.CatalogPath = filepath.Join(t.TempDir(), "none.yaml")
	err = NewEngine(&missingCatalog, logger).Initialize()
	assert.Error(t, err)

	emptyCorpus := *config
	emptyCorpus.CorpusDir = t.TempDir()
	err = NewEngine(&emptyCorpus, logger).Initialize()
	assert.Error(t, err)
}

func TestEngineRunRequiresInitialize(t *testing.T) {
	engine := NewEngine(setupRun(t), testLogger(t))
	_, err := engine.Run(context.Background())
	assert.Error(t, err)
}

func TestEngineFullPipeline(t *testing.T) {
	config := setupRun(t)
	engine := NewEngine(config, testLogger(t))

	require.NoError(t, engine.Initialize())
	assert.Equal(t, 2, engine.Catalog().Len(), "the malformed template is skipped")
	assert.Equal(t, 3, engine.Corpus().Len())
	assert.NotEmpty(t, config.SessionID)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	// non-negative holds for <digit> and <num>; the broader <num> binding
	// subsumes <digit>. at-most-three is violated by the corpus (5, 12).
	require.Len(t, result.Invariants, 1)
	inv := result.Invariants[0]
	assert.Equal(t, "non-negative", inv.Candidate.Template.Name)
	assert.Equal(t, "<num>", inv.Candidate.Symbol("x"))
	assert.Equal(t, 3, inv.Support)
	assert.Equal(t, 1.0, inv.Precision)
	assert.False(t, inv.BudgetLimited)

	// One catalog diagnostic, one corpus diagnostic.
	kinds := map[interfaces.DiagnosticKind]int{}
	for _, d := range result.Diagnostics {
		kinds[d.Kind]++
	}
	assert.Equal(t, 1, kinds[interfaces.DiagCatalogError])
	assert.Equal(t, 1, kinds[interfaces.DiagParseError])

	assert.Equal(t, int64(4), result.Stats.CandidatesGenerated)
	assert.Equal(t, int64(4), result.Stats.CandidatesEvaluated)
	assert.Equal(t, int64(2), result.Stats.CandidatesHeld)
	assert.Equal(t, int64(0), result.Stats.CandidatesRefuted)
	assert.Equal(t, int64(3), result.Stats.ExamplesLoaded)
	assert.Equal(t, int64(1), result.Stats.ExamplesSkipped)
}

func TestEngineDeterministicAcrossRuns(t *testing.T) {
	config := setupRun(t)

	run := func() []string {
		engine := NewEngine(config, testLogger(t))
		require.NoError(t, engine.Initialize())
		result, err := engine.Run(context.Background())
		require.NoError(t, err)
		var formulas []string
		for _, inv := range result.Invariants {
			formulas = append(formulas, inv.Candidate.NormalizedFormula())
		}
		return formulas
	}

	assert.Equal(t, run(), run())
}

type recordingReporter struct {
	evaluated int
	refuted   int
	accepted  int
}

func (r *recordingReporter) OnCandidateEvaluated(string, interfaces.AggregateVerdict) { r.evaluated++ }
func (r *recordingReporter) OnCandidateRefuted(string)                                { r.refuted++ }
func (r *recordingReporter) OnInvariantAccepted(string, bool)                         { r.accepted++ }

func TestEngineReporterEvents(t *testing.T) {
	config := setupRun(t)
	config.Workers = 1
	engine := NewEngine(config, testLogger(t))
	reporter := &recordingReporter{}
	engine.SetReporter(reporter)

	require.NoError(t, engine.Initialize())
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, reporter.evaluated)
	assert.Equal(t, 2, reporter.accepted)
	assert.Equal(t, 0, reporter.refuted)
}

func TestBuildReportRoundTrip(t *testing.T) {
	config := setupRun(t)
	engine := NewEngine(config, testLogger(t))
	require.NoError(t, engine.Initialize())
	result, err := engine.Run(context.Background())
	require.NoError(t, err)

	report := BuildReport(config, result)
	assert.Equal(t, result.SessionID, report.SessionID)
	assert.Equal(t, config.RefuteRounds, report.Budget.RefuteRounds,
		"the report states the budget its invariants were validated up to")
	assert.Equal(t, config.RefuteTimeout, report.Budget.RefuteTimeout)
	assert.Equal(t, config.MaxAssignments, report.Budget.MaxAssignments)
	require.Len(t, report.Invariants, 1)
	assert.Equal(t, "non-negative", report.Invariants[0].Template)
	assert.Equal(t, map[string]string{"x": "<num>"}, report.Invariants[0].Bindings)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))
	loaded, err := LoadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, report.SessionID, loaded.SessionID)
	assert.Equal(t, report.Budget, loaded.Budget)
	require.Len(t, loaded.Invariants, 1)
	assert.Equal(t, report.Invariants[0].Formula, loaded.Invariants[0].Formula)

	var text bytes.Buffer
	require.NoError(t, report.WriteText(&text))
	assert.Contains(t, text.String(), "non-negative")
	assert.Contains(t, text.String(), "support=3")
	assert.Contains(t, text.String(), "20 refutation rounds")
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: solver_test.go
Description: Tests for the SMT solver driver: output parsing, model extraction
across single-line and multi-line define-fun forms, value normalization, and
binary resolution failure handling.
*/

package solver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutputVerdicts(t *testing.T) {
	result, model := parseOutput("unsat\n")
	assert.Equal(t, ResultUnsat, result)
	assert.Nil(t, model)

	result, model = parseOutput("unknown\n")
	assert.Equal(t, ResultUnknown, result)
	assert.Nil(t, model)

	result, _ = parseOutput("")
	assert.Equal(t, ResultUnknown, result)
}

func TestParseOutputSatWithModel(t *testing.T) {
	output := `sat
(
  (define-fun x () Int
    5)
  (define-fun y () Int
    (- 3))
  (define-fun name () String
    "ab")
)
`
	result, model := parseOutput(output)
	require.Equal(t, ResultSat, result)
	assert.Equal(t, "5", model["x"])
	assert.Equal(t, "-3", model["y"])
	assert.Equal(t, "ab", model["name"])
}

func TestParseOutputSingleLineModel(t *testing.T) {
	output := "sat\n((define-fun x () Int 42))\n"
	result, model := parseOutput(output)
	require.Equal(t, ResultSat, result)
	assert.Equal(t, "42", model["x"])
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "7", normalizeValue("7"))
	assert.Equal(t, "-12", normalizeValue("(- 12)"))
	assert.Equal(t, "hello", normalizeValue(`"hello"`))
	assert.Equal(t, `say "hi"`, normalizeValue(`"say ""hi"""`))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "sat", ResultSat.String())
	assert.Equal(t, "unsat", ResultUnsat.String())
	assert.Equal(t, "unknown", ResultUnknown.String())
}

func TestNewSolverMissingBinary(t *testing.T) {
	_, err := NewSolver(Config{Command: "definitely-not-an-smt-solver"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: solver.go
Description: External SMT solver driver for the Akaylee Invariants engine. Runs
an SMT-LIB2 capable solver binary (z3 by default) as a child process per query,
with a bounded session pool, per-query timeouts, and model extraction for
sat results. The solver is an optional collaborator: when the binary is missing
the engine degrades to mutation-only refutation with a diagnostic.
*/

package solver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the solver's answer to a satisfiability query.
type Result int

const (
	// ResultUnknown covers timeouts, resource limits, and theories the
	// solver gives up on. Treated as "no refutation found", never as proof.
	ResultUnknown Result = iota
	ResultSat
	ResultUnsat
)

// String returns the SMT-LIB answer text for the result.
func (r Result) String() string {
	switch r {
	case ResultSat:
		return "sat"
	case ResultUnsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Model maps declared constant names to the value text the solver assigned.
type Model map[string]string

// ErrUnavailable indicates the solver binary could not be found or started.
// Callers fall back to mutation-only refutation and surface a diagnostic.
var ErrUnavailable = errors.New("smt solver unavailable")

// Config controls the solver driver.
type Config struct {
	Command  string        // Solver binary, default "z3"
	Args     []string      // Extra arguments before the script file
	Sessions int           // Maximum concurrent solver processes
	Timeout  time.Duration // Per-query wall clock budget
}

// DefaultConfig returns the standard solver settings.
func DefaultConfig() Config {
	return Config{
		Command:  "z3",
		Args:     []string{"-in", "-smt2"},
		Sessions: 4,
		Timeout:  2 * time.Second,
	}
}

// Solver runs SMT-LIB2 queries against an external process. Safe for
// concurrent use; the session pool bounds parallel processes.
type Solver struct {
	config   Config
	path     string
	sessions chan struct{}
}

// NewSolver resolves the solver binary and creates the driver. Returns
// ErrUnavailable when the binary is not on PATH.
func NewSolver(config Config) (*Solver, error) {
	if config.Command == "" {
		config.Command = "z3"
	}
	if len(config.Args) == 0 {
		config.Args = []string{"-in", "-smt2"}
	}
	if config.Sessions <= 0 {
		config.Sessions = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}

	path, err := exec.LookPath(config.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, config.Command)
	}

	return &Solver{
		config:   config,
		path:     path,
		sessions: make(chan struct{}, config.Sessions),
	}, nil
}

// CheckSat submits one SMT-LIB2 script and returns the verdict plus the model
// for sat answers. The script must end with (check-sat); (get-model) is
// appended automatically. Unknown answers and timeouts return ResultUnknown
// with a nil error.
func (s *Solver) CheckSat(ctx context.Context, script string) (Result, Model, error) {
	select {
	case s.sessions <- struct{}{}:
		defer func() { <-s.sessions }()
	case <-ctx.Done():
		return ResultUnknown, nil, ctx.Err()
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	var input strings.Builder
	input.WriteString(script)
	if !strings.Contains(script, "(check-sat)") {
		input.WriteString("\n(check-sat)\n")
	}
	input.WriteString("\n(get-model)\n")

	cmd := exec.CommandContext(queryCtx, s.path, s.config.Args...)
	cmd.Stdin = strings.NewReader(input.String())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if queryCtx.Err() == context.DeadlineExceeded {
		return ResultUnknown, nil, nil
	}
	if ctx.Err() != nil {
		return ResultUnknown, nil, ctx.Err()
	}

	result, model := parseOutput(stdout.String())
	if result == ResultUnknown && err != nil && stdout.Len() == 0 {
		return ResultUnknown, nil, fmt.Errorf("solver failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return result, model, nil
}

// parseOutput extracts the sat/unsat/unknown verdict and, for sat, the model
// assignments from define-fun lines. Unparseable model entries are skipped.
func parseOutput(output string) (Result, Model) {
	result := ResultUnknown
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "sat":
			result = ResultSat
		case "unsat":
			return ResultUnsat, nil
		case "unknown":
			return ResultUnknown, nil
		}
		if result != ResultUnknown {
			break
		}
	}
	if result != ResultSat {
		return result, nil
	}
	return ResultSat, parseModel(output)
}

// parseModel reads (define-fun name () Sort value) entries. Values spanning
// multiple tokens, e.g. (- 5) or string literals with spaces, are kept as
// their raw text between the sort and the closing paren.
func parseModel(output string) Model {
	model := make(Model)
	for _, line := range collapseDefineFuns(output) {
		fields := strings.Fields(line)
		// (define-fun name () Sort value...)
		if len(fields) < 5 || fields[0] != "(define-fun" {
			continue
		}
		name := fields[1]
		value := strings.TrimSpace(strings.Join(fields[4:], " "))
		// Drop closing parens belonging to the define-fun form itself.
		for strings.Count(value, ")") > strings.Count(value, "(") {
			value = strings.TrimSpace(strings.TrimSuffix(value, ")"))
		}
		model[name] = normalizeValue(value)
	}
	return model
}

// collapseDefineFuns joins each define-fun form onto one line. Solvers print
// the value on a continuation line.
func collapseDefineFuns(output string) []string {
	var forms []string
	var current strings.Builder
	depth := 0
	inForm := false

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inForm {
			start := strings.Index(trimmed, "(define-fun")
			if start < 0 {
				continue
			}
			trimmed = trimmed[start:]
			inForm = true
			current.Reset()
			depth = 0
		}
		current.WriteString(" ")
		current.WriteString(trimmed)
		depth += strings.Count(trimmed, "(") - strings.Count(trimmed, ")")
		if depth <= 0 {
			forms = append(forms, strings.TrimSpace(current.String()))
			inForm = false
		}
	}
	return forms
}

// normalizeValue converts solver value syntax to plain text: negative
// integers printed as (- 5) become -5, quoted strings lose their quotes.
func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "(-") {
		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(value, "(-"), ")"))
		return "-" + inner
	}
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return strings.ReplaceAll(value[1:len(value)-1], `""`, `"`)
	}
	return value
}

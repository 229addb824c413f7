package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// OutcomeStatus records what happened to one statement of a script.
type OutcomeStatus int

// Outcome statuses.
const (
	StatusApplied OutcomeStatus = iota
	StatusFailed
	StatusSkipped
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("OutcomeStatus(%d)", int(s))
	}
}

// StatementOutcome is the result of one script statement.
type StatementOutcome struct {
	Statement string
	Status    OutcomeStatus
	// Reason explains a skip.
	Reason string
	// Err is set for failed statements.
	Err error
}

// LoadReport describes how a script was applied.
type LoadReport struct {
	Source string
	// Atomic is true when the whole script committed as one unit.
	Atomic bool
	// AtomicErr is why the atomic attempt failed, when it did.
	AtomicErr error
	Outcomes  []StatementOutcome
}

// Degraded reports whether the script was applied statement by statement.
func (r *LoadReport) Degraded() bool {
	return r != nil && !r.Atomic
}

// Applied returns the number of statements that took effect.
func (r *LoadReport) Applied() int {
	return r.count(StatusApplied)
}

// Skipped returns the number of comment-only and transaction-control statements.
func (r *LoadReport) Skipped() int {
	return r.count(StatusSkipped)
}

// Failed returns the statements that failed in fallback mode.
func (r *LoadReport) Failed() []StatementOutcome {
	if r == nil {
		return nil
	}
	var failed []StatementOutcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

func (r *LoadReport) count(status OutcomeStatus) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

const (
	skipComment     = "comment only"
	skipTransaction = "transaction control"
)

// candidate is one statement of a script plan.
type candidate struct {
	text string
	skip string
}

type scriptPlan struct {
	candidates []candidate
	// managesTransaction is set when the script carries its own
	// transaction-control statements.
	managesTransaction bool
}

func (p scriptPlan) executable() int {
	n := 0
	for _, c := range p.candidates {
		if c.skip == "" {
			n++
		}
	}
	return n
}

func planScript(script string) scriptPlan {
	var plan scriptPlan
	for _, raw := range SplitStatements(script) {
		stmt := stripLeadingComments(raw)
		switch {
		case stmt == "":
			plan.candidates = append(plan.candidates, candidate{text: raw, skip: skipComment})
		case isTransactionControl(stmt):
			plan.managesTransaction = true
			plan.candidates = append(plan.candidates, candidate{text: stmt, skip: skipTransaction})
		default:
			plan.candidates = append(plan.candidates, candidate{text: stmt})
		}
	}
	return plan
}

// LoadScript applies a multi-statement script. It first runs the script as
// one atomic unit. If that fails, it falls back to running each statement
// independently: failures are recorded as warnings and the remaining
// statements still run, then everything that succeeded is committed.
//
// The fallback never aborts because of one bad statement. A *ScriptError is
// returned only when every executable statement failed or the fallback
// transaction itself could not be committed.
func (h *Handle) LoadScript(ctx context.Context, script string) (*LoadReport, error) {
	return h.loadScript(ctx, script, "")
}

// LoadScriptFile reads path and applies it with LoadScript.
func (h *Handle) LoadScriptFile(ctx context.Context, path string) (*LoadReport, error) {
	if err := h.requireConnected("load script"); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &PathError{Op: "read script", Path: path, Err: err}
	}
	return h.loadScript(ctx, string(content), path)
}

func (h *Handle) loadScript(ctx context.Context, script, source string) (*LoadReport, error) {
	if err := h.requireConnected("load script"); err != nil {
		return nil, err
	}

	plan := planScript(script)
	report := &LoadReport{Source: source}

	if plan.executable() == 0 {
		report.Atomic = true
		report.Outcomes = outcomesFor(plan, StatusApplied)
		return report, nil
	}

	err := h.applyAtomic(ctx, script, plan)
	if err == nil {
		report.Atomic = true
		report.Outcomes = outcomesFor(plan, StatusApplied)
		h.logger.Debug("script applied atomically", "source", source, "statements", plan.executable())
		return report, nil
	}

	report.AtomicErr = err
	h.logger.Warn("atomic script execution failed, falling back to per-statement mode",
		"source", source, "error", err)

	if err := h.applyEach(ctx, plan, report); err != nil {
		return report, &ScriptError{Source: source, Err: err}
	}

	failed := report.Failed()
	if len(failed) > 0 && report.Applied() == 0 {
		return report, &ScriptError{
			Source:    source,
			Statement: failed[0].Statement,
			Err:       fmt.Errorf("all %d statements failed: %w", len(failed), failed[0].Err),
		}
	}
	h.logger.Info("script applied in fallback mode", "source", source,
		"applied", report.Applied(), "failed", len(failed), "skipped", report.Skipped())
	return report, nil
}

func outcomesFor(plan scriptPlan, status OutcomeStatus) []StatementOutcome {
	outcomes := make([]StatementOutcome, 0, len(plan.candidates))
	for _, c := range plan.candidates {
		if c.skip != "" {
			outcomes = append(outcomes, StatementOutcome{Statement: c.text, Status: StatusSkipped, Reason: c.skip})
			continue
		}
		outcomes = append(outcomes, StatementOutcome{Statement: c.text, Status: status})
	}
	return outcomes
}

// applyAtomic runs script as one unit inside the loader's own transaction,
// with foreign key checks deferred to commit so statement order inside the
// script does not matter. A script that carries its own transaction control
// has those statements dropped and its remaining statements run one by one,
// so a failure anywhere still rolls back everything.
func (h *Handle) applyAtomic(ctx context.Context, script string, plan scriptPlan) error {
	err := h.inTransaction(ctx, func() error {
		if _, err := h.conn.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
			return err
		}
		if !plan.managesTransaction {
			_, err := h.conn.ExecContext(ctx, script)
			return err
		}
		for _, c := range plan.candidates {
			if c.skip != "" {
				continue
			}
			if _, err := h.conn.ExecContext(ctx, c.text); err != nil {
				return &StoreError{Statement: c.text, Err: err}
			}
		}
		return nil
	})
	if !plan.managesTransaction {
		return err
	}
	// Dumps from other tools switch enforcement off before their BEGIN.
	if _, fkErr := h.conn.ExecContext(ctx, foreignKeysOn); fkErr != nil && err == nil {
		err = &StoreError{Statement: foreignKeysOn, Err: fkErr}
	}
	return err
}

// applyEach runs every executable candidate under its own savepoint inside
// one transaction, recording an outcome per candidate.
func (h *Handle) applyEach(ctx context.Context, plan scriptPlan, report *LoadReport) error {
	return h.inTransaction(ctx, func() error {
		for _, c := range plan.candidates {
			if c.skip != "" {
				report.Outcomes = append(report.Outcomes,
					StatementOutcome{Statement: c.text, Status: StatusSkipped, Reason: c.skip})
				continue
			}
			if err := h.execSavepoint(ctx, c.text); err != nil {
				storeErr := &StoreError{Statement: c.text, Err: err}
				h.logger.Warn("statement failed", "statement", abbreviate(c.text), "error", err)
				report.Outcomes = append(report.Outcomes,
					StatementOutcome{Statement: c.text, Status: StatusFailed, Err: storeErr})
				continue
			}
			report.Outcomes = append(report.Outcomes, StatementOutcome{Statement: c.text, Status: StatusApplied})
		}
		return nil
	})
}

const savepointName = "script_statement"

func (h *Handle) execSavepoint(ctx context.Context, stmt string) error {
	if _, err := h.conn.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return err
	}
	if _, err := h.conn.ExecContext(ctx, stmt); err != nil {
		_, rbErr := h.conn.ExecContext(ctx, "ROLLBACK TO "+savepointName)
		_, relErr := h.conn.ExecContext(ctx, "RELEASE "+savepointName)
		if cleanup := errors.Join(rbErr, relErr); cleanup != nil {
			h.logger.Debug("savepoint cleanup failed", "error", cleanup)
		}
		return err
	}
	_, err := h.conn.ExecContext(ctx, "RELEASE "+savepointName)
	return err
}

func (h *Handle) inTransaction(ctx context.Context, fn func() error) error {
	if _, err := h.conn.ExecContext(ctx, "BEGIN"); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(); err != nil {
		h.rollback(ctx)
		return err
	}
	if _, err := h.conn.ExecContext(ctx, "COMMIT"); err != nil {
		h.rollback(ctx)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rollback ends any open transaction. "no transaction is active" is expected
// after the engine has already rolled back on its own.
func (h *Handle) rollback(ctx context.Context) {
	if _, err := h.conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		h.logger.Debug("rollback", "error", err)
	}
}

// Package journal executes user statements against remote targets and
// records every attempt in the query history and the user action log.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"querydesk/internal/coerce"
	"querydesk/internal/dbconn"
	"querydesk/internal/store"
	"querydesk/internal/vault"
)

// StatementError is a failure reported by the remote target while running
// the statement. Message is the driver's text, verbatim.
type StatementError struct {
	Message string
}

func (e *StatementError) Error() string { return e.Message }

// Outcome is the result of one execution. It is built once and not mutated.
type Outcome struct {
	ExecutionID     string           `json:"executionId"`
	Status          string           `json:"status"`
	Columns         []string         `json:"columns"`
	ColumnTypes     []string         `json:"columnTypes"`
	Rows            [][]coerce.Value `json:"rows"`
	RowCount        int              `json:"rowCount"`
	Duration        time.Duration    `json:"-"`
	ExecutionTimeMs int64            `json:"executionTimeMs"`
	Error           string           `json:"error,omitempty"`
}

// Err returns the statement failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Status != store.StatusError {
		return nil
	}
	return &StatementError{Message: o.Error}
}

// Resolver resolves profile IDs to connection targets.
type Resolver interface {
	Resolve(ctx context.Context, profileID int64) (dbconn.Descriptor, error)
}

// Opener opens sessions to connection targets.
type Opener interface {
	Open(ctx context.Context, d dbconn.Descriptor) (dbconn.Session, error)
}

// Recorder persists history rows and audit entries.
type Recorder interface {
	InsertHistory(ctx context.Context, h store.HistoryEntry) (int64, error)
	LogAction(ctx context.Context, userID int64, actionType, details string) error
}

// Executor runs statements and journals their outcomes.
type Executor struct {
	resolver Resolver
	opener   Opener
	recorder Recorder
	log      *zap.SugaredLogger
	now      func() time.Time
	newID    func() string
}

func NewExecutor(resolver Resolver, opener Opener, recorder Recorder, log *zap.SugaredLogger) *Executor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Executor{
		resolver: resolver,
		opener:   opener,
		recorder: recorder,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Execute runs statement against the profile's target.
//
// Resolution and connection failures are returned as errors and leave no
// history. Once a statement has been attempted, its failure is part of the
// Outcome (Status "error") and the returned error is nil. Exactly one
// history row is written per attempt; a failed history write is logged and
// does not change the Outcome. The audit entry is best effort.
func (e *Executor) Execute(ctx context.Context, profileID int64, statement string) (Outcome, error) {
	desc, err := e.resolver.Resolve(ctx, profileID)
	if err != nil {
		return Outcome{}, err
	}
	session, err := e.opener.Open(ctx, desc)
	if err != nil {
		return Outcome{}, err
	}

	start := e.now()
	rs, qerr := session.Query(ctx, statement)
	elapsed := e.now().Sub(start)
	if cerr := session.Close(); cerr != nil {
		e.log.Debugw("close session", "connection_id", profileID, "error", cerr)
	}

	out := buildOutcome(e.newID(), rs, qerr, elapsed)
	log := e.log.With("execution_id", out.ExecutionID, "connection_id", profileID)
	log.Infow("statement executed", "status", out.Status, "duration", out.Duration, "rows", out.RowCount)

	// The history and audit writes must land even when the caller has gone.
	wctx := context.WithoutCancel(ctx)

	entry := store.HistoryEntry{
		ConnectionID:    profileID,
		QueryText:       statement,
		Status:          out.Status,
		ExecutionTimeMs: out.ExecutionTimeMs,
		ExecutionID:     out.ExecutionID,
		ExecutedAt:      start,
	}
	if out.Status == store.StatusError {
		msg := out.Error
		entry.ErrorMessage = &msg
	}
	if _, err := e.recorder.InsertHistory(wctx, entry); err != nil {
		log.Errorw("record query history", "error", err)
	}

	action, details := store.ActionExecuteQuery, Preview(statement)
	if out.Status == store.StatusError {
		action, details = store.ActionQueryError, out.Error
	}
	if err := e.recorder.LogAction(wctx, desc.OwnerID, action, details); err != nil {
		log.Debugw("record user action", "action", action, "error", err)
	}
	return out, nil
}

func buildOutcome(id string, rs *dbconn.ResultSet, qerr error, elapsed time.Duration) Outcome {
	out := Outcome{
		ExecutionID:     id,
		Duration:        elapsed,
		ExecutionTimeMs: elapsed.Milliseconds(),
		Columns:         []string{},
		ColumnTypes:     []string{},
		Rows:            [][]coerce.Value{},
	}
	if qerr != nil {
		out.Status = store.StatusError
		out.Error = qerr.Error()
		return out
	}

	out.Status = store.StatusSuccess
	if rs == nil || len(rs.Rows) == 0 {
		return out
	}
	// Column metadata is taken from the first row's shape.
	out.Columns = rs.Columns
	if len(rs.Types) == len(rs.Columns) {
		out.ColumnTypes = rs.Types
	}
	out.Rows = make([][]coerce.Value, len(rs.Rows))
	for i, row := range rs.Rows {
		out.Rows[i] = coerce.CoerceRow(row)
	}
	out.RowCount = len(out.Rows)
	return out
}

// Preview shortens a statement for the audit log: at most 50 characters,
// with longer statements cut to 47 characters plus "...".
func Preview(statement string) string {
	if utf8.RuneCountInString(statement) <= 50 {
		return statement
	}
	runes := []rune(statement)
	return string(runes[:47]) + "..."
}

// IsStatementError reports whether err is a remote execution failure.
func IsStatementError(err error) bool {
	var se *StatementError
	return errors.As(err, &se)
}

// Describe renders an error from Execute for end users.
func Describe(err error) string {
	var ce *dbconn.ConnectError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "connection not found"
	case errors.Is(err, vault.ErrDecrypt):
		return "stored credentials could not be decrypted"
	case errors.As(err, &ce):
		return fmt.Sprintf("could not connect: %v", ce.Err)
	}
	return err.Error()
}

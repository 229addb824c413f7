package manager

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotConnected is returned by every operation that needs an open connection
// when the handle is Disconnected or Closed.
var ErrNotConnected = errors.New("not connected to a database")

// ErrDatabaseExists is wrapped in a PathError when Create finds an existing
// file and overwrite was not confirmed.
var ErrDatabaseExists = fmt.Errorf("database already exists and overwrite was not confirmed: %w", fs.ErrExist)

// PathError reports a failure to access or create a file or directory.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// StoreError reports a failure raised by the SQLite engine for one statement:
// syntax errors, constraint violations, type mismatches.
type StoreError struct {
	Statement string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Statement == "" {
		return fmt.Sprintf("store error: %v", e.Err)
	}
	return fmt.Sprintf("store error in %q: %v", abbreviate(e.Statement), e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ScriptError reports a script that could not be applied. Source is the file
// the script came from, if any.
type ScriptError struct {
	Source    string
	Statement string
	Err       error
}

func (e *ScriptError) Error() string {
	msg := "script error"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Statement != "" {
		msg += fmt.Sprintf(" at %q", abbreviate(e.Statement))
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// abbreviate keeps error messages readable for long statements.
func abbreviate(stmt string) string {
	const limit = 120
	flat := flattenWhitespace(stmt)
	if len(flat) <= limit {
		return flat
	}
	return flat[:limit] + "..."
}

package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sqlpancake/internal/sqlite"
)

// State is the lifecycle state of a Handle.
type State int

// Handle states.
const (
	StateDisconnected State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const foreignKeysOn = "PRAGMA foreign_keys = ON"

// Handle owns the lifecycle of one store connection.
type Handle struct {
	path   string
	state  State
	driver string
	logger *slog.Logger

	db   *sql.DB
	conn *sql.Conn
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger sets the logger used for lifecycle and fallback messages.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithDriver overrides the database/sql driver name.
func WithDriver(name string) Option {
	return func(h *Handle) {
		if name != "" {
			h.driver = name
		}
	}
}

// New returns a Disconnected handle.
func New(opts ...Option) *Handle {
	h := &Handle{
		driver: sqlite.DriverName(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open returns a Connected handle for path.
func Open(ctx context.Context, path string, opts ...Option) (*Handle, error) {
	h := New(opts...)
	if err := h.Open(ctx, path); err != nil {
		return nil, err
	}
	return h, nil
}

// WithHandle opens path, runs fn and closes the handle on every exit path.
// A close failure is joined with the error returned by fn.
func WithHandle(ctx context.Context, path string, fn func(*Handle) error, opts ...Option) (err error) {
	h, err := Open(ctx, path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(h)
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return h.state
}

// Path returns the path of the current or most recent connection.
func (h *Handle) Path() string {
	return h.path
}

// Open connects to the store at path, creating the parent directory when
// needed, and enables foreign key enforcement. An already Connected handle
// releases its current connection first.
func (h *Handle) Open(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return &PathError{Op: "open", Path: path, Err: errors.New("database path is required")}
	}

	if h.state == StateConnected {
		if err := h.Close(); err != nil {
			return err
		}
	}

	if path != sqlite.MemoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return &PathError{Op: "create directory", Path: dir, Err: err}
			}
		}
	}

	db, err := sql.Open(h.driver, path)
	if err != nil {
		return &StoreError{Err: fmt.Errorf("failed to open database %s: %w", path, err)}
	}
	if err := h.attach(ctx, db, path); err != nil {
		_ = db.Close()
		return err
	}
	return nil
}

// attach pins a single connection from db and applies the post-open setup.
func (h *Handle) attach(ctx context.Context, db *sql.DB, path string) error {
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		return &StoreError{Err: fmt.Errorf("failed to connect to %s: %w", path, err)}
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return &StoreError{Err: fmt.Errorf("failed to ping %s: %w", path, err)}
	}

	if _, err := conn.ExecContext(ctx, foreignKeysOn); err != nil {
		_ = conn.Close()
		return &StoreError{Statement: foreignKeysOn, Err: err}
	}
	var enabled int
	if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		_ = conn.Close()
		return &StoreError{Statement: "PRAGMA foreign_keys", Err: err}
	}
	if enabled != 1 {
		_ = conn.Close()
		return &StoreError{Statement: foreignKeysOn, Err: errors.New("foreign key enforcement could not be enabled")}
	}

	h.db = db
	h.conn = conn
	h.path = path
	h.state = StateConnected
	h.logger.Debug("database opened", "path", path, "driver", h.driver)
	return nil
}

// Close releases the connection. Closing a handle that is not Connected is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.state != StateConnected {
		return nil
	}

	var errs []error
	if err := h.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := h.db.Close(); err != nil {
		errs = append(errs, err)
	}
	h.conn = nil
	h.db = nil
	h.state = StateClosed
	h.logger.Debug("database closed", "path", h.path)

	if err := errors.Join(errs...); err != nil {
		return &StoreError{Err: fmt.Errorf("failed to close %s: %w", h.path, err)}
	}
	return nil
}

// CreateOptions controls Create.
type CreateOptions struct {
	// Overwrite confirms that an existing file at the path may be removed.
	Overwrite bool
	// SchemaPath is an optional script loaded after the store is created.
	SchemaPath string
}

// Create makes a fresh store at path and optionally loads a schema script
// into it. An existing file is only replaced when opts.Overwrite is set;
// otherwise Create fails with a PathError wrapping ErrDatabaseExists and the
// file is left untouched. The returned report is nil when no schema was given.
func (h *Handle) Create(ctx context.Context, path string, opts CreateOptions) (*LoadReport, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &PathError{Op: "create", Path: path, Err: errors.New("database path is required")}
	}

	var schema string
	if opts.SchemaPath != "" {
		content, err := os.ReadFile(opts.SchemaPath)
		if err != nil {
			return nil, &PathError{Op: "read schema", Path: opts.SchemaPath, Err: err}
		}
		schema = string(content)
	}

	if path != sqlite.MemoryPath {
		info, err := os.Stat(path)
		switch {
		case err == nil:
			if info.IsDir() {
				return nil, &PathError{Op: "create", Path: path, Err: errors.New("path is a directory")}
			}
			if !opts.Overwrite {
				return nil, &PathError{Op: "create", Path: path, Err: ErrDatabaseExists}
			}
			if err := h.Close(); err != nil {
				return nil, err
			}
			if err := removeDatabaseFiles(path); err != nil {
				return nil, err
			}
			h.logger.Debug("existing database removed", "path", path)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, &PathError{Op: "stat", Path: path, Err: err}
		}
	}

	if err := h.Open(ctx, path); err != nil {
		return nil, err
	}
	if opts.SchemaPath == "" {
		return nil, nil
	}
	return h.loadScript(ctx, schema, opts.SchemaPath)
}

// removeDatabaseFiles deletes the store file and any journal siblings.
func removeDatabaseFiles(path string) error {
	if err := os.Remove(path); err != nil {
		return &PathError{Op: "remove", Path: path, Err: err}
	}
	for _, suffix := range []string{"-journal", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &PathError{Op: "remove", Path: path + suffix, Err: err}
		}
	}
	return nil
}

func (h *Handle) requireConnected(op string) error {
	if h == nil || h.state != StateConnected {
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	return nil
}

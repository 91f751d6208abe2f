package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gamearbiter/internal/request"
	"gamearbiter/internal/systems"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const entryColumns = "e.id, e.system, e.title, e.serial, e.region, e.path"

// Open initializes or connects to the catalog database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Add inserts an entry, or returns the existing ID when an identical entry
// is already stored. Aliases on the entry are attached as well.
func (s *Store) Add(ctx context.Context, entry Entry) (int64, error) {
	ctx = ensureContext(ctx)
	var id int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		id, err = insertEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("add entry %q: %w", entry.Title, err)
	}
	return id, nil
}

// Import stores many entries in one transaction and returns how many were
// processed.
func (s *Store) Import(ctx context.Context, entries []Entry) (int, error) {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for _, entry := range entries {
			if _, err := insertEntry(ctx, tx, entry); err != nil {
				return fmt.Errorf("entry %q: %w", entry.Title, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("import entries: %w", err)
	}
	return len(entries), nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry Entry) (int64, error) {
	entry.System = systems.Canonical(entry.System)
	entry.Title = strings.TrimSpace(entry.Title)
	if entry.System == "" || entry.Title == "" {
		return 0, errors.New("system and title are required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO entries (system, title, serial, region, path, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (system, title, serial, region, path) DO UPDATE SET updated_at = excluded.updated_at
         RETURNING id`,
		entry.System,
		entry.Title,
		strings.TrimSpace(entry.Serial),
		strings.TrimSpace(entry.Region),
		strings.TrimSpace(entry.Path),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	for _, alias := range entry.Aliases {
		idType, err := request.ParseIDType(alias.IDType)
		if err != nil {
			return 0, err
		}
		if err := insertAlias(ctx, tx, id, idType, alias.Identifier); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// AddAlias binds an extra identifier to an existing entry.
func (s *Store) AddAlias(ctx context.Context, entryID int64, idType request.IDType, identifier string) error {
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if err := insertAlias(ctx, tx, entryID, idType, identifier); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("add alias: %w", err)
	}
	return nil
}

func insertAlias(ctx context.Context, tx *sql.Tx, entryID int64, idType request.IDType, identifier string) error {
	if idType == request.IDSerial || idType == request.IDTitle {
		return fmt.Errorf("%s identifiers are stored on the entry, not as aliases", idType)
	}
	identifier = NormalizeAlias(idType, identifier)
	if identifier == "" {
		return errors.New("alias identifier is empty")
	}
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO aliases (entry_id, id_type, identifier) VALUES (?, ?, ?)`,
		entryID, idType.String(), identifier,
	)
	if err != nil {
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

// NormalizeAlias canonicalizes alias identifiers: UIDs and hashes are
// lower-cased with separators removed, other kinds are only trimmed.
func NormalizeAlias(idType request.IDType, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	switch idType {
	case request.IDUUID, request.IDHash:
		identifier = strings.ToLower(identifier)
		identifier = strings.NewReplacer(":", "", " ", "").Replace(identifier)
	}
	return identifier
}

// BySerial returns entries whose serial matches exactly (case-sensitive).
func (s *Store) BySerial(ctx context.Context, system, serial string) ([]Entry, error) {
	return s.query(ctx, "by serial",
		`SELECT `+entryColumns+` FROM entries e WHERE e.system = ? AND e.serial = ? ORDER BY e.region, e.id`,
		systems.Canonical(system), serial,
	)
}

// ByAlias returns entries bound to the given alias identifier.
func (s *Store) ByAlias(ctx context.Context, system string, idType request.IDType, identifier string) ([]Entry, error) {
	return s.query(ctx, "by alias",
		`SELECT `+entryColumns+` FROM entries e
         JOIN aliases a ON a.entry_id = e.id
         WHERE e.system = ? AND a.id_type = ? AND a.identifier = ?
         ORDER BY e.region, e.id`,
		systems.Canonical(system), idType.String(), NormalizeAlias(idType, identifier),
	)
}

// BySystem returns every entry of a system ordered by title.
func (s *Store) BySystem(ctx context.Context, system string) ([]Entry, error) {
	return s.query(ctx, "by system",
		`SELECT `+entryColumns+` FROM entries e WHERE e.system = ? ORDER BY e.title, e.region, e.id`,
		systems.Canonical(system),
	)
}

// Get returns one entry by ID, or nil when absent.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	entries, err := s.query(ctx, "get", `SELECT `+entryColumns+` FROM entries e WHERE e.id = ?`, id)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// Systems returns per-system entry counts.
func (s *Store) Systems(ctx context.Context) ([]SystemCount, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT system, COUNT(1) FROM entries GROUP BY system ORDER BY system`)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	defer rows.Close()

	var out []SystemCount
	for rows.Next() {
		var sc SystemCount
		if err := rows.Scan(&sc.System, &sc.Entries); err != nil {
			return nil, fmt.Errorf("scan system count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Count returns the total number of entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Clear removes every entry and alias.
func (s *Store) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, `DELETE FROM aliases`); err != nil {
			return fmt.Errorf("clear aliases: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		return tx.Commit()
	})
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.System, &e.Title, &e.Serial, &e.Region, &e.Path); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Package vault holds the decrypted contents of one open vault: credential
// entries in a private in-memory SQLite database, serialized to CBOR for
// encryption and transport.
package vault

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/codec"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// FormatVersion is the version of the serialized document.
const FormatVersion = 1

var ErrClosed = errors.New("vault store is closed")

// ErrFormat is returned by Load for blobs that are not a vault document.
var ErrFormat = errors.New("invalid vault document")

type Entry struct {
	ID       int64  `cbor:"id"`
	Service  string `cbor:"service"`
	User     string `cbor:"user"`
	Password string `cbor:"password"`
	Notes    string `cbor:"notes"`
}

type document struct {
	Version int     `cbor:"v"`
	NextID  int64   `cbor:"next_id"`
	Entries []Entry `cbor:"entries"`
}

// Store is not safe for concurrent use by multiple goroutines without
// external locking beyond what database/sql provides; the session owning it
// serializes access.
type Store struct {
	db *sql.DB
}

// New returns an empty store.
func New(ctx context.Context) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&_pragma=secure_delete(1)")
	if err != nil {
		return nil, err
	}
	// The database lives as long as its only connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault schema: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Load rebuilds a store from a Dump blob. Entry ids and the id sequence are
// restored, so ids stay stable and deleted ids are not handed out again.
func Load(ctx context.Context, blob []byte) (*Store, error) {
	var doc document
	if err := codec.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, doc.Version)
	}

	lastID := doc.NextID - 1
	for _, e := range doc.Entries {
		if e.ID <= 0 {
			return nil, fmt.Errorf("%w: entry id %d", ErrFormat, e.ID)
		}
		lastID = max(lastID, e.ID)
	}

	s, err := New(ctx)
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, e := range doc.Entries {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO entries (id, service, user, password, notes) VALUES (?, ?, ?, ?, ?)`,
				e.ID, e.Service, e.User, e.Password, e.Notes)
			if err != nil {
				if dbx.IsUniqueViolation(err) {
					return fmt.Errorf("%w: duplicate entry id %d", ErrFormat, e.ID)
				}
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'entries'`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES ('entries', ?)`, max(lastID, 0))
		return err
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) handle() (*sql.DB, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

func validate(e Entry) error {
	if strings.TrimSpace(e.Service) == "" {
		return fmt.Errorf("%w: service is required", common.ErrorValidation)
	}
	return nil
}

// Add stores e (its ID is ignored) and returns the new entry id.
func (s *Store) Add(ctx context.Context, e Entry) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	if err := validate(e); err != nil {
		return 0, err
	}

	var id int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO entries (service, user, password, notes) VALUES (?, ?, ?, ?) RETURNING id`,
		e.Service, e.User, e.Password, e.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add entry: %w", err)
	}
	return id, nil
}

// Update replaces every field of entry id.
func (s *Store) Update(ctx context.Context, id int64, e Entry) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if err := validate(e); err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`UPDATE entries SET service = ?, user = ?, password = ?, notes = ? WHERE id = ?`,
		e.Service, e.User, e.Password, e.Notes, id)
	if err != nil {
		return fmt.Errorf("update entry %d: %w", id, err)
	}
	return expectOne(res, id)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	return expectOne(res, id)
}

func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	db, err := s.handle()
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	err = db.QueryRowContext(ctx,
		`SELECT id, service, user, password, notes FROM entries WHERE id = ?`, id).
		Scan(&e.ID, &e.Service, &e.User, &e.Password, &e.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: entry %d", common.ErrorNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// List returns all entries ordered by id.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT id, service, user, password, notes FROM entries ORDER BY id`)
}

// Search returns the entries whose service or notes contain term, ignoring
// ASCII case, ordered by id. An empty term matches everything.
func (s *Store) Search(ctx context.Context, term string) ([]Entry, error) {
	pattern := "%" + escapeLike(term) + "%"
	return s.query(ctx,
		`SELECT id, service, user, password, notes FROM entries
		 WHERE service LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\'
		 ORDER BY id`,
		pattern, pattern)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Service, &e.User, &e.Password, &e.Notes); err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Dump serializes the store. The caller owns the returned plaintext and
// should wipe it once it has been encrypted.
func (s *Store) Dump(ctx context.Context) ([]byte, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var lastID int64
	err = s.db.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = 'entries'`).Scan(&lastID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read id sequence: %w", err)
	}

	return codec.Marshal(document{Version: FormatVersion, NextID: lastID + 1, Entries: entries})
}

// Close deletes every entry (overwritten thanks to secure_delete) and
// releases the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil

	_, delErr := db.Exec(`DELETE FROM entries`)
	return errors.Join(delErr, db.Close())
}

func expectOne(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: entry %d", common.ErrorNotFound, id)
	}
	return nil
}

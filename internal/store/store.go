// Package store is the local SQLite database: client key/value state,
// editor drafts and the coach's LLM call log.
package store

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// pragmas are set on every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(ON)",
	"synchronous(NORMAL)",
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string) (*Store, error) {
	q := url.Values{"_pragma": pragmas}
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "migrate %s", path)
	}
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB          { return s.db }
func (s *Store) Close() error         { return s.db.Close() }
func (s *Store) KV() KVRepo           { return &kvRepo{db: s.db} }
func (s *Store) DraftRepo() DraftRepo { return &draftRepo{db: s.db} }
func (s *Store) EventRepo() EventRepo { return &eventRepo{db: s.db} }

// DataDir is $XDG_DATA_HOME/threatlab, falling back to
// ~/.local/share/threatlab.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "locate home directory")
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "threatlab"), nil
}

// DefaultDBPath is threatlab.db inside DataDir. The directory is created.
func DefaultDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "threatlab.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

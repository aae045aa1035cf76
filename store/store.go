// Package store keeps packed program images in a SQLite database, keyed by
// name.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/cmrt/mir/dist"
)

// ErrImageNotFound indicates the requested image doesn't exist.
var ErrImageNotFound = errors.New("image not found")

var log = commonlog.GetLogger("cmrt.store")

// Record describes a stored image without its payload.
type Record struct {
	ID        string
	Name      string
	Hash      string
	Size      int
	CreatedAt time.Time
}

// Store is a SQLite-backed image store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}

	// busy_timeout in the DSN applies to every pooled connection.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		name TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		hash TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened image store %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores img under name, replacing any previous image of that name.
func (s *Store) Put(name string, img *dist.Image) (*Record, error) {
	data, err := dist.MarshalImage(img)
	if err != nil {
		return nil, fmt.Errorf("encoding image %s: %w", name, err)
	}
	rec := &Record{
		ID:        uuid.NewString(),
		Name:      name,
		Hash:      img.ID(),
		Size:      len(data),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO images (name, id, hash, data, created_at) VALUES (?, ?, ?, ?, ?)",
		rec.Name, rec.ID, rec.Hash, data, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("saving image %s: %w", name, err)
	}
	log.Infof("stored image %s (%s, %d bytes)", name, rec.Hash[:12], rec.Size)
	return rec, nil
}

// Get loads the image stored under name. The image is decoded but not
// verified; dist.Unpack verifies it.
func (s *Store) Get(name string) (*dist.Image, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE name = ?", name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", name, ErrImageNotFound)
		}
		return nil, fmt.Errorf("querying image %s: %w", name, err)
	}
	return dist.UnmarshalImage(data)
}

// List returns every stored image, ordered by name.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query("SELECT id, name, hash, length(data), created_at FROM images ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var created int64
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Hash, &rec.Size, &created); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the image stored under name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM images WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting image %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", name, ErrImageNotFound)
	}
	return nil
}

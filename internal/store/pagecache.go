package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// CapturedPage is the raw HTML of one fetched listing page, keyed by the
// same content ref that appears on its ListingPage row.
type CapturedPage struct {
	Ref         string
	SessionID   string
	Institution string
	SeedIndex   int
	PageIndex   int
	URL         string
	HTML        string
	FetchedAt   time.Time
}

// PageCache persists captured listing pages in SQLite so candidate
// extraction re-reads captures instead of re-fetching, and interrupted
// crawls keep their work.
type PageCache struct {
	db *sql.DB
}

// NewPageCache opens (creating if necessary) the page cache database at
// the given path and configures WAL mode.
func NewPageCache(path string) (*PageCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "pagecache: mkdir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "pagecache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "pagecache: exec %s", pragma)
		}
	}
	return &PageCache{db: db}, nil
}

const pageCacheMigration = `
CREATE TABLE IF NOT EXISTS pages (
	ref         TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	institution TEXT NOT NULL,
	seed_index  INTEGER NOT NULL,
	page_index  INTEGER NOT NULL,
	url         TEXT NOT NULL,
	html        TEXT NOT NULL,
	fetched_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_institution ON pages(institution);
CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);
`

// Migrate creates the schema if missing.
func (c *PageCache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, pageCacheMigration)
	return eris.Wrap(err, "pagecache: migrate")
}

// Close releases the database handle.
func (c *PageCache) Close() error {
	return c.db.Close()
}

// Put stores a captured page, replacing any previous capture for the ref.
func (c *PageCache) Put(ctx context.Context, page CapturedPage) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO pages (ref, session_id, institution, seed_index, page_index, url, html, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(ref) DO UPDATE SET
			session_id = excluded.session_id,
			url        = excluded.url,
			html       = excluded.html,
			fetched_at = excluded.fetched_at`,
		page.Ref, page.SessionID, page.Institution, page.SeedIndex, page.PageIndex,
		page.URL, page.HTML, page.FetchedAt.UTC(),
	)
	return eris.Wrapf(err, "pagecache: put %s", page.Ref)
}

// GetHTML loads the captured HTML for a content ref. A missing ref returns
// ("", nil): callers skip pages whose capture is gone.
func (c *PageCache) GetHTML(ctx context.Context, ref string) (string, error) {
	var html string
	err := c.db.QueryRowContext(ctx, `SELECT html FROM pages WHERE ref = ?`, ref).Scan(&html)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "pagecache: get %s", ref)
	}
	return html, nil
}

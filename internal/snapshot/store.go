// Package snapshot persists audit runs: summaries of the indexed footprint
// taken over time so regressions in the noindex ratio can be spotted.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/jessedrg/cbd-boutique/internal/audit"
)

// ---------------------------------------------------------------------------
// Entity
// ---------------------------------------------------------------------------

// Run is one stored audit summary.
type Run struct {
	ID        string                  `json:"id"`
	BaseURL   string                  `json:"base_url"`
	Total     int                     `json:"total"`
	Indexed   int                     `json:"indexed"`
	NoIndexed int                     `json:"noindexed"`
	Triples   bool                    `json:"triples"`
	ByLocale  map[string]audit.Counts `json:"by_locale"`
	ByType    map[string]audit.Counts `json:"by_type"`
	Note      string                  `json:"note,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// NewRun builds a run from an audit summary.
func NewRun(baseURL string, s audit.Summary, triples bool, note string) Run {
	return Run{
		ID:        newID(),
		BaseURL:   baseURL,
		Total:     s.Total,
		Indexed:   s.Index,
		NoIndexed: s.NoIndex,
		Triples:   triples,
		ByLocale:  s.ByLocale,
		ByType:    s.ByType,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now().UTC(),
	}
}

// ListResponse is one page of runs, newest first.
type ListResponse struct {
	Items      []Run  `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	Cached     bool   `json:"cached"`
}

type cacheItem struct {
	Response ListResponse
	Expires  time.Time
}

// Storage modes reported by Mode.
const (
	ModeMemory   = "memory"
	ModePostgres = "postgres"
	ModeSQLite   = "sqlite"
)

// Store keeps runs in Postgres, SQLite or memory. Not-found is reported as
// sql.ErrNoRows in every mode.
type Store struct {
	db        *sql.DB
	mode      string
	cacheTTL  time.Duration
	cacheMu   sync.RWMutex
	listCache map[string]cacheItem
	memMu     sync.RWMutex
	memByID   map[string]Run
}

// NewMemory returns a store that keeps runs in process memory.
func NewMemory(cacheTTL time.Duration) *Store {
	return &Store{
		mode:      ModeMemory,
		cacheTTL:  cacheTTL,
		listCache: make(map[string]cacheItem),
		memByID:   make(map[string]Run),
	}
}

// New wraps an open database. driver is "pgx" or "sqlite".
func New(ctx context.Context, db *sql.DB, driver string, cacheTTL time.Duration) (*Store, error) {
	s := NewMemory(cacheTTL)
	switch driver {
	case "pgx":
		s.mode = ModePostgres
	case "sqlite":
		s.mode = ModeSQLite
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	s.db = db
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(ctx context.Context, path string, cacheTTL time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	s, err := New(ctx, db, "sqlite", cacheTTL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Mode reports the storage backend.
func (s *Store) Mode() string { return s.mode }

// Close releases the database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS seo_audit_runs (
			id TEXT PRIMARY KEY,
			base_url TEXT NOT NULL,
			total INTEGER NOT NULL,
			indexed INTEGER NOT NULL,
			noindexed INTEGER NOT NULL,
			triples INTEGER NOT NULL DEFAULT 0,
			by_locale TEXT NOT NULL,
			by_type TEXT NOT NULL,
			note TEXT,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_runs_created ON seo_audit_runs (created_at DESC, id DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites $n placeholders for SQLite.
func (s *Store) rebind(q string) string {
	if s.mode != ModeSQLite {
		return q
	}
	var b strings.Builder
	for i := 0; i < len(q); i++ {
		if q[i] == '$' && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

// Create stores run.
func (s *Store) Create(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if s.db == nil {
		s.memMu.Lock()
		s.memByID[run.ID] = run
		s.memMu.Unlock()
		s.invalidateCache()
		return nil
	}
	byLocale, err := json.Marshal(run.ByLocale)
	if err != nil {
		return err
	}
	byType, err := json.Marshal(run.ByType)
	if err != nil {
		return err
	}
	q := `INSERT INTO seo_audit_runs (id, base_url, total, indexed, noindexed, triples, by_locale, by_type, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if _, err := s.db.ExecContext(ctx, s.rebind(q),
		run.ID, run.BaseURL, run.Total, run.Indexed, run.NoIndexed, boolInt(run.Triples),
		string(byLocale), string(byType), nilIfEmpty(run.Note), run.CreatedAt.UTC().UnixNano(),
	); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

// ---------------------------------------------------------------------------
// Read
// ---------------------------------------------------------------------------

const selectColumns = `id, base_url, total, indexed, noindexed, triples, by_locale, by_type, note, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var triples int
	var byLocale, byType string
	var note sql.NullString
	var created int64
	if err := row.Scan(&r.ID, &r.BaseURL, &r.Total, &r.Indexed, &r.NoIndexed, &triples, &byLocale, &byType, &note, &created); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(byLocale), &r.ByLocale); err != nil {
		return Run{}, fmt.Errorf("decode by_locale of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(byType), &r.ByType); err != nil {
		return Run{}, fmt.Errorf("decode by_type of %s: %w", r.ID, err)
	}
	r.Triples = triples != 0
	r.Note = note.String
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

// Get returns the run with id or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	if s.db == nil {
		s.memMu.RLock()
		r, ok := s.memByID[id]
		s.memMu.RUnlock()
		if !ok {
			return Run{}, sql.ErrNoRows
		}
		return r, nil
	}
	q := `SELECT ` + selectColumns + ` FROM seo_audit_runs WHERE id=$1`
	return scanRun(s.db.QueryRowContext(ctx, s.rebind(q), id))
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

// List returns up to limit runs older than cursor, newest first. First pages
// are cached for the store's TTL.
func (s *Store) List(ctx context.Context, cursor string, limit int) (ListResponse, error) {
	if cursor == "" {
		if cached, ok := s.getListCache(cursor, limit); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	cursorTime, cursorID, err := parseCursor(cursor)
	if err != nil {
		return ListResponse{}, err
	}

	if s.db == nil {
		resp := s.listMemory(cursorTime, cursorID, limit)
		if cursor == "" {
			s.setListCache(cursor, limit, resp)
		}
		return resp, nil
	}

	args := []any{}
	where := "1=1"
	nextArg := 1
	if !cursorTime.IsZero() {
		where = fmt.Sprintf("(created_at < $%d OR (created_at = $%d AND id < $%d))", nextArg, nextArg+1, nextArg+2)
		n := cursorTime.UnixNano()
		args = append(args, n, n, cursorID)
		nextArg += 3
	}
	args = append(args, limit+1)
	q := fmt.Sprintf(`
		SELECT %s
		FROM seo_audit_runs
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, selectColumns, where, nextArg)

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return ListResponse{}, err
	}
	defer rows.Close()

	items := make([]Run, 0, limit)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return ListResponse{}, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return ListResponse{}, err
	}

	resp := ListResponse{Items: items}
	if len(items) > limit {
		last := items[limit-1]
		resp.Items = items[:limit]
		resp.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	if cursor == "" {
		s.setListCache(cursor, limit, resp)
	}
	return resp, nil
}

func (s *Store) listMemory(cursorTime time.Time, cursorID string, limit int) ListResponse {
	s.memMu.RLock()
	items := make([]Run, 0, len(s.memByID))
	for _, r := range s.memByID {
		items = append(items, r)
	}
	s.memMu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if !cursorTime.IsZero() {
		filtered := items[:0]
		for _, it := range items {
			if it.CreatedAt.Before(cursorTime) || (it.CreatedAt.Equal(cursorTime) && it.ID < cursorID) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	resp := ListResponse{Items: []Run{}}
	if len(items) <= limit {
		resp.Items = append(resp.Items, items...)
		return resp
	}
	resp.Items = append(resp.Items, items[:limit]...)
	last := items[limit-1]
	resp.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	return resp
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

// Delete removes a run or returns sql.ErrNoRows.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		s.memMu.Lock()
		if _, ok := s.memByID[id]; !ok {
			s.memMu.Unlock()
			return sql.ErrNoRows
		}
		delete(s.memByID, id)
		s.memMu.Unlock()
		s.invalidateCache()
		return nil
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM seo_audit_runs WHERE id=$1`), id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	s.invalidateCache()
	return nil
}

// ---------------------------------------------------------------------------
// Explain
// ---------------------------------------------------------------------------

// Explain returns the query plan of the first list page.
func (s *Store) Explain(ctx context.Context) (any, error) {
	listQuery := `SELECT ` + selectColumns + ` FROM seo_audit_runs ORDER BY created_at DESC, id DESC LIMIT 50`
	switch s.mode {
	case ModeMemory:
		return map[string]any{"mode": ModeMemory, "note": "no SQL plan available"}, nil
	case ModeSQLite:
		rows, err := s.db.QueryContext(ctx, `EXPLAIN QUERY PLAN `+listQuery)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var steps []string
		for rows.Next() {
			var id, parent, unused int
			var detail string
			if err := rows.Scan(&id, &parent, &unused, &detail); err != nil {
				return nil, err
			}
			steps = append(steps, detail)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return map[string]any{"mode": ModeSQLite, "plan": steps}, nil
	}

	var planRaw []byte
	if err := s.db.QueryRowContext(ctx, `EXPLAIN (ANALYZE FALSE, FORMAT JSON) `+listQuery).Scan(&planRaw); err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(planRaw, &parsed); err != nil {
		return string(planRaw), nil
	}
	return parsed, nil
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

func (s *Store) getListCache(cursor string, limit int) (ListResponse, bool) {
	key := cacheKey(cursor, limit)
	s.cacheMu.RLock()
	item, ok := s.listCache[key]
	s.cacheMu.RUnlock()
	if !ok || time.Now().After(item.Expires) {
		return ListResponse{}, false
	}
	return item.Response, true
}

func (s *Store) setListCache(cursor string, limit int, value ListResponse) {
	if s.cacheTTL <= 0 {
		return
	}
	key := cacheKey(cursor, limit)
	s.cacheMu.Lock()
	s.listCache[key] = cacheItem{Response: value, Expires: time.Now().Add(s.cacheTTL)}
	s.cacheMu.Unlock()
}

func (s *Store) invalidateCache() {
	s.cacheMu.Lock()
	clear(s.listCache)
	s.cacheMu.Unlock()
}

func cacheKey(cursor string, limit int) string {
	return fmt.Sprintf("%s|%d", cursor, limit)
}

// ---------------------------------------------------------------------------
// Cursor helpers
// ---------------------------------------------------------------------------

// ErrInvalidCursor is returned by List for a malformed cursor.
var ErrInvalidCursor = errors.New("invalid cursor")

func parseCursor(cursor string) (time.Time, string, error) {
	if cursor == "" {
		return time.Time{}, "", nil
	}
	parts := strings.SplitN(cursor, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: format", ErrInvalidCursor)
	}
	n, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: timestamp", ErrInvalidCursor)
	}
	if parts[1] == "" {
		return time.Time{}, "", fmt.Errorf("%w: id", ErrInvalidCursor)
	}
	return time.Unix(0, n).UTC(), parts[1], nil
}

func encodeCursor(ts time.Time, id string) string {
	return fmt.Sprintf("%d:%s", ts.UTC().UnixNano(), id)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func newID() string {
	return "run_" + uuid.NewString()
}

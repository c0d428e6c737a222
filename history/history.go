// Package history records, per report link, whether a detail fetch found a
// football match report. A rejected link stays rejected across runs.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrVerdictNotFound = errors.New("verdict not found")
	ErrInvalidKind     = errors.New("verdict kind must be report or not_football")
)

// Kind is the classification a detail fetch reached.
type Kind string

const (
	KindReport      Kind = "report"
	KindNotFootball Kind = "not_football"
)

// Verdict is the stored result for one link.
type Verdict struct {
	ID        uuid.UUID `json:"id"`
	Link      string    `json:"link"`
	Title     string    `json:"title,omitempty"`
	Kind      Kind      `json:"kind"`
	Items     int       `json:"items"`
	Assets    int       `json:"assets"`
	CheckedAt time.Time `json:"checked_at"`
}

// Filter narrows List.
type Filter struct {
	Kind  *Kind
	Limit int
}

// Store keeps verdicts in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the verdict database at dsn.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the verdicts table if it doesn't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS verdicts (
		verdict_id TEXT PRIMARY KEY,
		link TEXT NOT NULL UNIQUE,
		title TEXT,
		kind TEXT NOT NULL,
		items INTEGER DEFAULT 0,
		assets INTEGER DEFAULT 0,
		checked_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the verdict for link, replacing any earlier one. The
// verdict keeps its ID across updates.
func (s *Store) Record(link, title string, kind Kind, items, assets int) (*Verdict, error) {
	if kind != KindReport && kind != KindNotFootball {
		return nil, ErrInvalidKind
	}
	if link == "" {
		return nil, errors.New("link is required")
	}

	now := time.Now()
	query := `
		INSERT INTO verdicts (verdict_id, link, title, kind, items, assets, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO UPDATE SET
			title = CASE WHEN excluded.title = '' THEN verdicts.title ELSE excluded.title END,
			kind = excluded.kind,
			items = excluded.items,
			assets = excluded.assets,
			checked_at = excluded.checked_at
	`

	_, err := s.db.Exec(query,
		uuid.New().String(),
		link,
		title,
		string(kind),
		items,
		assets,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record verdict: %w", err)
	}

	return s.Get(link)
}

// Get returns the verdict for link.
func (s *Store) Get(link string) (*Verdict, error) {
	query := `
		SELECT verdict_id, link, title, kind, items, assets, checked_at
		FROM verdicts
		WHERE link = ?
	`

	v, err := scanVerdict(s.db.QueryRow(query, link))
	if err == sql.ErrNoRows {
		return nil, ErrVerdictNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict: %w", err)
	}
	return v, nil
}

// List returns verdicts, most recently checked first.
func (s *Store) List(filter Filter) ([]Verdict, error) {
	query := `
		SELECT verdict_id, link, title, kind, items, assets, checked_at
		FROM verdicts
	`

	var whereClauses []string
	var args []any

	if filter.Kind != nil {
		whereClauses = append(whereClauses, "kind = ?")
		args = append(args, string(*filter.Kind))
	}

	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY checked_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	verdicts := []Verdict{}
	for rows.Next() {
		v, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		verdicts = append(verdicts, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verdicts: %w", err)
	}

	return verdicts, nil
}

// Rejected returns the set of links known not to be football reports.
func (s *Store) Rejected() (map[string]bool, error) {
	kind := KindNotFootball
	verdicts, err := s.List(Filter{Kind: &kind})
	if err != nil {
		return nil, err
	}

	rejected := make(map[string]bool, len(verdicts))
	for _, v := range verdicts {
		rejected[v.Link] = true
	}
	return rejected, nil
}

// Delete forgets the verdict for link.
func (s *Store) Delete(link string) error {
	result, err := s.db.Exec("DELETE FROM verdicts WHERE link = ?", link)
	if err != nil {
		return fmt.Errorf("failed to delete verdict: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if n == 0 {
		return ErrVerdictNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVerdict(row scanner) (*Verdict, error) {
	var idStr, link, kind, checkedAtStr string
	var title sql.NullString
	var items, assets int

	if err := row.Scan(&idStr, &link, &title, &kind, &items, &assets, &checkedAtStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid verdict_id: %w", err)
	}

	return &Verdict{
		ID:        id,
		Link:      link,
		Title:     title.String,
		Kind:      Kind(kind),
		Items:     items,
		Assets:    assets,
		CheckedAt: parseTime(checkedAtStr),
	}, nil
}

// timeLayout is fixed width so that checked_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

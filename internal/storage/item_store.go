package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spiffler33/meridian/internal/core"
)

// ItemStore handles tower item persistence
type ItemStore struct {
	db *DB
}

// NewItemStore creates a new item store
func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `id, text, status, is_event, expects_by, waiting_on, effort,
       last_touched, created_at, done_at`

// Create persists a new item
func (s *ItemStore) Create(item *core.TowerItem) error {
	_, err := s.db.conn.Exec(`
		INSERT INTO items (
		    id, text, status, is_event, expects_by, waiting_on, effort,
		    last_touched, created_at, done_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.Text, item.Status, item.IsEvent, expectsByString(item),
		nullString(item.WaitingOn), nullString(string(item.Effort)),
		item.LastTouched, item.CreatedAt, item.DoneAt,
	)
	return err
}

// GetByID returns an item by ID
func (s *ItemStore) GetByID(id core.ItemID) (*core.TowerItem, error) {
	row := s.db.conn.QueryRow(`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrItemNotFound
	}
	return item, err
}

// Update persists every mutable field of an item
func (s *ItemStore) Update(item *core.TowerItem) error {
	res, err := s.db.conn.Exec(`
		UPDATE items SET
		    text = ?, status = ?, is_event = ?, expects_by = ?,
		    waiting_on = ?, effort = ?, last_touched = ?, done_at = ?
		WHERE id = ?
	`,
		item.Text, item.Status, item.IsEvent, expectsByString(item),
		nullString(item.WaitingOn), nullString(string(item.Effort)),
		item.LastTouched, item.DoneAt,
		item.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrItemNotFound
	}
	return nil
}

// Delete removes an item from the working set
func (s *ItemStore) Delete(id core.ItemID) error {
	res, err := s.db.conn.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrItemNotFound
	}
	return nil
}

// GetAll returns the full snapshot, oldest capture first so ranking ties
// stay stable across renders
func (s *ItemStore) GetAll() ([]*core.TowerItem, error) {
	rows, err := s.db.conn.Query(`SELECT ` + itemColumns + ` FROM items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetByStatus returns items in one lifecycle state
func (s *ItemStore) GetByStatus(status core.Status) ([]*core.TowerItem, error) {
	rows, err := s.db.conn.Query(
		`SELECT `+itemColumns+` FROM items WHERE status = ? ORDER BY created_at ASC, id ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

// Count returns total item count
func (s *ItemStore) Count() (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	return count, err
}

// CountByStatus returns item count per lifecycle state
func (s *ItemStore) CountByStatus(status core.Status) (int, error) {
	var count int
	err := s.db.conn.QueryRow("SELECT COUNT(*) FROM items WHERE status = ?", status).Scan(&count)
	return count, err
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*core.TowerItem, error) {
	item := &core.TowerItem{}
	var expectsBy, waitingOn, effort sql.NullString
	var doneAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.Text, &item.Status, &item.IsEvent, &expectsBy,
		&waitingOn, &effort, &item.LastTouched, &item.CreatedAt, &doneAt,
	)
	if err != nil {
		return nil, err
	}

	if expectsBy.Valid && expectsBy.String != "" {
		// Defensive: an unparsable stored date is treated as no date,
		// never surfaced as an error.
		if d, perr := time.ParseInLocation(core.DateLayout, expectsBy.String, time.UTC); perr == nil {
			item.ExpectsBy = &d
		}
	}
	item.WaitingOn = waitingOn.String
	item.Effort = core.Effort(effort.String)
	if doneAt.Valid {
		t := doneAt.Time
		item.DoneAt = &t
	}

	return item, nil
}

func scanItems(rows *sql.Rows) ([]*core.TowerItem, error) {
	var items []*core.TowerItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func expectsByString(item *core.TowerItem) any {
	if item.ExpectsBy == nil {
		return nil
	}
	return item.ExpectsBy.Format(core.DateLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

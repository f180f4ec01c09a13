package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"itinerary/internal/model"
)

const schemaStores = `CREATE TABLE IF NOT EXISTS stores (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    category    TEXT NOT NULL,
    lat         DOUBLE PRECISION NOT NULL,
    lng         DOUBLE PRECISION NOT NULL,
    hours_open  TEXT,
    hours_close TEXT
)`

// sqlStore is the database/sql implementation shared by the SQLite and Postgres backends.
// Queries are written with ? placeholders and rebound for dialects that number them.
type sqlStore struct {
	db       *sql.DB
	numbered bool
}

func (s *sqlStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaStores)
	return err
}

func (s *sqlStore) SaveCatalog(ctx context.Context, stores []model.Store) error {
	for _, st := range stores {
		if err := Validate(st); err != nil {
			return err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stores`); err != nil {
		return fmt.Errorf("clear stores: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO stores (id, name, category, lat, lng, hours_open, hours_close) VALUES (?,?,?,?,?,?,?)`))
	if err != nil {
		return err
	}
	defer func() { _ = ins.Close() }()
	for _, st := range stores {
		var open, closeAt any
		if st.Hours != nil {
			open, closeAt = st.Hours.Open, st.Hours.Close
		}
		if _, err := ins.ExecContext(ctx, st.ID, st.Name, st.Category, st.Lat, st.Lng, open, closeAt); err != nil {
			return fmt.Errorf("insert store %d: %w", st.ID, err)
		}
	}
	return tx.Commit()
}

func (s *sqlStore) LoadCatalog(ctx context.Context) ([]model.Store, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category, lat, lng, hours_open, hours_close FROM stores ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Store{}
	for rows.Next() {
		var st model.Store
		var open, closeAt sql.NullString
		if err := rows.Scan(&st.ID, &st.Name, &st.Category, &st.Lat, &st.Lng, &open, &closeAt); err != nil {
			return nil, err
		}
		if open.Valid {
			st.Hours = &model.Hours{Open: open.String, Close: closeAt.String}
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *sqlStore) Close() error                   { return s.db.Close() }

// rebind turns ? placeholders into $1..$n for Postgres.
func (s *sqlStore) rebind(q string) string {
	if !s.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

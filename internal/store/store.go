package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"itinerary/internal/model"
)

// Store persists the flat catalog list between runs. The in-memory snapshot stays the
// source of truth; a Store only lets a restart skip re-ingesting the feed.
type Store interface {
	// SaveCatalog replaces the persisted catalog with stores in a single transaction.
	SaveCatalog(ctx context.Context, stores []model.Store) error
	// LoadCatalog returns the persisted catalog in id order (empty when nothing was saved).
	LoadCatalog(ctx context.Context) ([]model.Store, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrUnknownType   = errors.New("unknown store type")
	ErrInvalidRecord = errors.New("invalid store record")
)

const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open selects a backend by type. Empty type means memory.
func Open(ctx context.Context, typ, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", TypeMemory:
		return NewMemory(), nil
	case TypeSQLite:
		return NewSQLite(ctx, dsn)
	case TypePostgres:
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

// Validate rejects records missing an id, name or category, or with non-finite coordinates.
func Validate(s model.Store) error {
	switch {
	case s.ID <= 0:
		return fmt.Errorf("%w: id %d", ErrInvalidRecord, s.ID)
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: id %d has empty name", ErrInvalidRecord, s.ID)
	case strings.TrimSpace(s.Category) == "":
		return fmt.Errorf("%w: id %d has empty category", ErrInvalidRecord, s.ID)
	case !finite(s.Lat) || !finite(s.Lng):
		return fmt.Errorf("%w: id %d has non-finite coordinates", ErrInvalidRecord, s.ID)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

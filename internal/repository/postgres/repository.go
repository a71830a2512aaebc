package postgres

import (
	"database/sql"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/repository"
)

// Repository implements repository.Repository on PostgreSQL.
type Repository struct {
	db *DB
}

var _ repository.Repository = (*Repository)(nil)

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// notFound maps sql.ErrNoRows to repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// dateParam renders a civil date for a ::date cast.
func dateParam(d civil.Date) string {
	return d.String()
}

func dateOf(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
)

func (r *Repository) SaveDocument(ctx context.Context, d *domain.Document) error {
	if d.GeneratedAt.IsZero() {
		d.GeneratedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO documents (region_id, document_type, document_date, file_name, file_url, generated_at_utc)
		VALUES ($1, $2, $3::date, $4, $5, $6)
		RETURNING document_id`,
		d.RegionID, string(d.Type), dateParam(d.Date), d.FileName, d.URL, d.GeneratedAt.UTC(),
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("save document %s: %w", d.FileName, err)
	}
	return nil
}

type documentRow struct {
	ID          int64     `db:"document_id"`
	RegionID    int64     `db:"region_id"`
	Type        string    `db:"document_type"`
	Date        time.Time `db:"document_date"`
	FileName    string    `db:"file_name"`
	URL         string    `db:"file_url"`
	GeneratedAt time.Time `db:"generated_at_utc"`
}

func (r *Repository) ListDocuments(ctx context.Context, regionID int64, date civil.Date) ([]domain.Document, error) {
	var rows []documentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT document_id, region_id, document_type, document_date, file_name, file_url, generated_at_utc
		FROM documents
		WHERE region_id = $1 AND document_date = $2::date
		ORDER BY document_id`, regionID, dateParam(date))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Document{
			ID:          row.ID,
			RegionID:    row.RegionID,
			Type:        domain.DocumentType(row.Type),
			Date:        dateOf(row.Date),
			FileName:    row.FileName,
			URL:         row.URL,
			GeneratedAt: row.GeneratedAt,
		})
	}
	return out, nil
}

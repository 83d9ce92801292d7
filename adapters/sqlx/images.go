package sqlx

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"chronoguess/core"
)

type imageRow struct {
	ID           string  `db:"id"`
	Title        string  `db:"title"`
	Description  string  `db:"description"`
	Year         int     `db:"year"`
	Latitude     float64 `db:"latitude"`
	Longitude    float64 `db:"longitude"`
	LocationName string  `db:"location_name"`
	URL          string  `db:"url"`
	Ready        bool    `db:"ready"`
}

func (r imageRow) meta() core.ImageMeta {
	return core.ImageMeta{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Year:         r.Year,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		LocationName: r.LocationName,
		URL:          r.URL,
		Ready:        r.Ready,
	}
}

// ImageSource serves the image catalog from the images table.
type ImageSource struct {
	db *sqlx.DB
}

func NewImageSource(db *sqlx.DB) *ImageSource { return &ImageSource{db: db} }

const imageColumns = `id, title, description, year, latitude, longitude, location_name, url, ready`

func (s *ImageSource) Images(ctx context.Context, readyOnly bool) ([]core.ImageMeta, error) {
	q := `SELECT ` + imageColumns + ` FROM images`
	var args []any
	if readyOnly {
		q += ` WHERE ready = ?`
		args = append(args, true)
	}
	var rows []imageRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q+` ORDER BY id`), args...); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	out := make([]core.ImageMeta, len(rows))
	for i, r := range rows {
		out[i] = r.meta()
	}
	return out, nil
}

// Put upserts images.
func (s *ImageSource) Put(ctx context.Context, images ...core.ImageMeta) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	q := `INSERT INTO images (` + imageColumns + `)
		VALUES (:id, :title, :description, :year, :latitude, :longitude, :location_name, :url, :ready)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, description = excluded.description, year = excluded.year,
			latitude = excluded.latitude, longitude = excluded.longitude,
			location_name = excluded.location_name, url = excluded.url, ready = excluded.ready`
	for _, img := range images {
		row := imageRow{
			ID:           img.ID,
			Title:        img.Title,
			Description:  img.Description,
			Year:         img.Year,
			Latitude:     img.Latitude,
			Longitude:    img.Longitude,
			LocationName: img.LocationName,
			URL:          img.URL,
			Ready:        img.Ready,
		}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("put image %s: %w", img.ID, err)
		}
	}
	return tx.Commit()
}

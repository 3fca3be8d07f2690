package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/reclaim/internal/model"
)

// NewPicture is a processed picture waiting to be stored.
type NewPicture struct {
	Data        []byte
	MIME        string
	FileName    string
	Description string
}

const pictureColumns = `id, material_id, file_name, content_type, file_size, uploaded_at, is_primary, description`

func scanPicture(s scanner) (model.Picture, error) {
	var p model.Picture
	err := s.Scan(&p.ID, &p.MaterialID, &p.FileName, &p.ContentType, &p.FileSize, &p.UploadDate, &p.IsPrimary, &p.Description)
	return p, err
}

func queryPictures(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string, args ...any) ([]model.Picture, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pictures: %w", err)
	}
	defer rows.Close()

	pictures := []model.Picture{}
	for rows.Next() {
		p, err := scanPicture(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning picture: %w", err)
		}
		pictures = append(pictures, p)
	}
	return pictures, rows.Err()
}

// ListPictures returns the picture metadata of a material, oldest first.
func ListPictures(ctx context.Context, db *sql.DB, materialID int64) ([]model.Picture, error) {
	return queryPictures(ctx, db,
		`SELECT `+pictureColumns+` FROM material_pictures
		 WHERE material_id = ? ORDER BY uploaded_at, id`, materialID)
}

func allPictures(ctx context.Context, db *sql.DB) (map[int64][]model.Picture, error) {
	pictures, err := queryPictures(ctx, db,
		`SELECT `+pictureColumns+` FROM material_pictures ORDER BY uploaded_at, id`)
	if err != nil {
		return nil, err
	}
	byMaterial := make(map[int64][]model.Picture)
	for _, p := range pictures {
		byMaterial[p.MaterialID] = append(byMaterial[p.MaterialID], p)
	}
	return byMaterial, nil
}

// insertPictures stores pictures for a material. When promote is set and the
// material has no primary picture yet, the first one becomes primary.
func insertPictures(ctx context.Context, tx *sql.Tx, materialID int64, pictures []NewPicture, promote bool) ([]int64, error) {
	if len(pictures) == 0 {
		return nil, nil
	}

	hasPrimary := false
	if promote {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM material_pictures WHERE material_id = ? AND is_primary = 1`,
			materialID,
		).Scan(&n); err != nil {
			return nil, fmt.Errorf("checking primary picture: %w", err)
		}
		hasPrimary = n > 0
	}

	ids := make([]int64, 0, len(pictures))
	for i, p := range pictures {
		primary := promote && !hasPrimary && i == 0
		result, err := tx.ExecContext(ctx,
			`INSERT INTO material_pictures
			 (material_id, data, file_name, content_type, file_size, description, is_primary)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			materialID, p.Data, p.FileName, p.MIME, len(p.Data), p.Description, primary,
		)
		if err != nil {
			return nil, fmt.Errorf("storing picture: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("getting picture id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func materialName(ctx context.Context, tx *sql.Tx, id int64) (string, error) {
	var name string
	err := tx.QueryRowContext(ctx, `SELECT name FROM materials WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting material: %w", err)
	}
	return name, nil
}

// AddPictures attaches pictures to an existing material. If it had no
// primary picture the first new one becomes primary.
func AddPictures(ctx context.Context, db *sql.DB, materialID int64, pictures []NewPicture, actor Actor) ([]model.Picture, error) {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		name, err := materialName(ctx, tx, materialID)
		if err != nil {
			return err
		}
		if _, err := insertPictures(ctx, tx, materialID, pictures, true); err != nil {
			return err
		}
		details := fmt.Sprintf("added %d picture(s)", len(pictures))
		return recordActivity(ctx, tx, materialID, name, actor, model.ActionUpdated, details)
	})
	if err != nil {
		return nil, err
	}
	return ListPictures(ctx, db, materialID)
}

// RemovePicture deletes a picture. Removing the primary picture promotes the
// oldest remaining one.
func RemovePicture(ctx context.Context, db *sql.DB, materialID, pictureID int64, actor Actor) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		name, err := materialName(ctx, tx, materialID)
		if err != nil {
			return err
		}

		var primary bool
		err = tx.QueryRowContext(ctx,
			`SELECT is_primary FROM material_pictures WHERE id = ? AND material_id = ?`,
			pictureID, materialID,
		).Scan(&primary)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("getting picture: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM material_pictures WHERE id = ?`, pictureID); err != nil {
			return fmt.Errorf("deleting picture: %w", err)
		}

		if primary {
			_, err := tx.ExecContext(ctx,
				`UPDATE material_pictures SET is_primary = 1
				 WHERE id = (SELECT id FROM material_pictures WHERE material_id = ?
				             ORDER BY uploaded_at, id LIMIT 1)`,
				materialID,
			)
			if err != nil {
				return fmt.Errorf("promoting picture: %w", err)
			}
		}

		return recordActivity(ctx, tx, materialID, name, actor, model.ActionUpdated, "removed a picture")
	})
}

// SetPrimaryPicture makes pictureID the only primary picture of its material.
func SetPrimaryPicture(ctx context.Context, db *sql.DB, materialID, pictureID int64, actor Actor) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		name, err := materialName(ctx, tx, materialID)
		if err != nil {
			return err
		}

		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM material_pictures WHERE id = ? AND material_id = ?`,
			pictureID, materialID,
		).Scan(&n); err != nil {
			return fmt.Errorf("getting picture: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		// Clear first; the partial unique index allows one primary at a time.
		if _, err := tx.ExecContext(ctx,
			`UPDATE material_pictures SET is_primary = 0 WHERE material_id = ? AND is_primary = 1`,
			materialID,
		); err != nil {
			return fmt.Errorf("clearing primary picture: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE material_pictures SET is_primary = 1 WHERE id = ?`, pictureID,
		); err != nil {
			return fmt.Errorf("setting primary picture: %w", err)
		}

		return recordActivity(ctx, tx, materialID, name, actor, model.ActionUpdated, "changed primary picture")
	})
}

// GetPictureData returns the stored bytes and MIME type of a picture.
func GetPictureData(ctx context.Context, db *sql.DB, pictureID int64) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, content_type FROM material_pictures WHERE id = ?`, pictureID,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting picture data: %w", err)
	}
	return data, mime, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/reclaim/internal/model"
)

const materialColumns = `id, name, category, material_type, condition, color, notes,
	width, height, depth, desk_type, height_adjustable, maximum_height,
	opening_type, hinge_side, u_value, swing_direction, has_wheels, date_added`

func scanMaterial(s scanner) (*model.MaterialRecord, error) {
	var (
		id                              int64
		d                               model.Draft
		width, height                   float64
		depth, maxHeight, uValue        sql.NullFloat64
		deskType, opening, hinge, swing sql.NullString
		adjustable, wheels              sql.NullBool
		added                           time.Time
	)
	err := s.Scan(&id, &d.Name, &d.Category, &d.MaterialType, &d.Condition, &d.Color, &d.Notes,
		&width, &height, &depth, &deskType, &adjustable, &maxHeight,
		&opening, &hinge, &uValue, &swing, &wheels, &added)
	if err != nil {
		return nil, err
	}

	d.Width, d.Height = &width, &height
	d.Depth = floatOrNil(depth)
	d.DeskType = deskType.String
	d.HeightAdjustable = boolOrNil(adjustable)
	d.MaximumHeight = floatOrNil(maxHeight)
	d.OpeningType = opening.String
	d.HingeSide = hinge.String
	d.UValue = floatOrNil(uValue)
	d.SwingDirection = swing.String
	d.HasWheels = boolOrNil(wheels)

	r, err := d.Record()
	if err != nil {
		return nil, fmt.Errorf("decoding material %d: %w", id, err)
	}
	r.ID = id
	r.DateAdded = added
	return &r, nil
}

func floatOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func boolOrNil(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return &v.Bool
}

// materialArgs flattens r in the column order of insert and update. Only the
// attributes of r's own type are set; the rest are NULL.
func materialArgs(r model.MaterialRecord) []any {
	d := r.Draft()
	return []any{
		d.Name, d.Category, d.MaterialType, d.Condition, d.Color, d.Notes,
		nullFloat(d.Width), nullFloat(d.Height), nullFloat(d.Depth),
		nullString(d.DeskType), nullBool(d.HeightAdjustable), nullFloat(d.MaximumHeight),
		nullString(d.OpeningType), nullString(d.HingeSide), nullFloat(d.UValue),
		nullString(d.SwingDirection), nullBool(d.HasWheels),
	}
}

func insertMaterial(ctx context.Context, tx *sql.Tx, r model.MaterialRecord, actor Actor) (int64, error) {
	args := append(materialArgs(r), nullID(actor.UserID))
	result, err := tx.ExecContext(ctx,
		`INSERT INTO materials (name, category, material_type, condition, color, notes,
		     width, height, depth, desk_type, height_adjustable, maximum_height,
		     opening_type, hinge_side, u_value, swing_direction, has_wheels, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return 0, fmt.Errorf("creating material: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting material id: %w", err)
	}
	return id, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// CreateMaterial stores r with its pictures and records the creation. The
// first picture becomes the primary one.
func CreateMaterial(ctx context.Context, db *sql.DB, r model.MaterialRecord, pictures []NewPicture, actor Actor) (*model.MaterialRecord, error) {
	var id int64
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		var err error
		id, err = insertMaterial(ctx, tx, r, actor)
		if err != nil {
			return err
		}
		if _, err := insertPictures(ctx, tx, id, pictures, true); err != nil {
			return err
		}
		return recordActivity(ctx, tx, id, r.Name, actor, model.ActionCreated, "")
	})
	if err != nil {
		return nil, err
	}
	return GetMaterial(ctx, db, id)
}

// ImportMaterials stores records in one transaction, recording each creation
// with details. Either all rows are stored or none.
func ImportMaterials(ctx context.Context, db *sql.DB, records []model.MaterialRecord, actor Actor, details string) (int, error) {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		for _, r := range records {
			id, err := insertMaterial(ctx, tx, r, actor)
			if err != nil {
				return err
			}
			if err := recordActivity(ctx, tx, id, r.Name, actor, model.ActionCreated, details); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("importing materials: %w", err)
	}
	return len(records), nil
}

// GetMaterial returns a material with its picture metadata.
func GetMaterial(ctx context.Context, db *sql.DB, id int64) (*model.MaterialRecord, error) {
	r, err := scanMaterial(db.QueryRowContext(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting material: %w", err)
	}

	r.Pictures, err = ListPictures(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListMaterials returns every material, newest first, with picture metadata.
func ListMaterials(ctx context.Context, db *sql.DB) ([]model.MaterialRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+materialColumns+` FROM materials ORDER BY date_added DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing materials: %w", err)
	}
	defer rows.Close()

	records := []model.MaterialRecord{}
	for rows.Next() {
		r, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning material: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing materials: %w", err)
	}

	pictures, err := allPictures(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Pictures = pictures[records[i].ID]
	}
	return records, nil
}

// UpdateMaterial replaces the stored fields of material id with r and records
// the change with details.
func UpdateMaterial(ctx context.Context, db *sql.DB, id int64, r model.MaterialRecord, actor Actor, details string) (*model.MaterialRecord, error) {
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		args := append(materialArgs(r), id)
		result, err := tx.ExecContext(ctx,
			`UPDATE materials SET name = ?, category = ?, material_type = ?, condition = ?,
			     color = ?, notes = ?, width = ?, height = ?, depth = ?, desk_type = ?,
			     height_adjustable = ?, maximum_height = ?, opening_type = ?, hinge_side = ?,
			     u_value = ?, swing_direction = ?, has_wheels = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`, args...)
		if err != nil {
			return fmt.Errorf("updating material: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return recordActivity(ctx, tx, id, r.Name, actor, model.ActionUpdated, details)
	})
	if err != nil {
		return nil, err
	}
	return GetMaterial(ctx, db, id)
}

// DeleteMaterial removes a material and its pictures. The audit trail keeps
// the material's name.
func DeleteMaterial(ctx context.Context, db *sql.DB, id int64, actor Actor) error {
	return inTx(ctx, db, func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRowContext(ctx, `SELECT name FROM materials WHERE id = ?`, id).Scan(&name)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("getting material: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM materials WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting material: %w", err)
		}
		return recordActivity(ctx, tx, id, name, actor, model.ActionDeleted, "")
	})
}

// ChangeDetails describes changed fields for the audit trail.
func ChangeDetails(fields []string) string {
	if len(fields) == 0 {
		return "no changes"
	}
	return "changed " + strings.Join(fields, ", ")
}

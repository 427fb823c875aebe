package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lifelink/bloodcamp/internal/model"
)

// CreateCamp registers a new active camp with its starting inventory. When
// no inventory is given the camp starts with the eight default blood groups
// at zero units.
//
// The one-active-camp-per-coordinator rule is checked inside the same
// transaction as the insert, so two concurrent starts by the same
// coordinator cannot both succeed.
func CreateCamp(ctx context.Context, db *sql.DB, location, coordinator, ownerUID string, lat, lon *float64, inventory map[string]int) (*model.Camp, error) {
	location = strings.TrimSpace(location)
	coordinator = strings.TrimSpace(coordinator)

	if location == "" {
		return nil, &model.ValidationError{Field: "location", Reason: "must not be empty"}
	}
	if coordinator == "" {
		return nil, &model.ValidationError{Field: "coordinator", Reason: "must not be empty"}
	}
	if ownerUID == "" {
		return nil, &model.ValidationError{Field: "coordinator_uid", Reason: "must not be empty"}
	}

	if len(inventory) == 0 {
		inventory = make(map[string]int, len(model.DefaultBloodGroups))
		for _, g := range model.DefaultBloodGroups {
			inventory[g] = 0
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM camps WHERE coordinator_uid = ? AND status = ?`,
		ownerUID, model.CampStatusActive,
	).Scan(&active)
	if err != nil {
		return nil, fmt.Errorf("checking active camps: %w", err)
	}
	if active > 0 {
		return nil, &model.ValidationError{Field: "coordinator", Reason: "already has an active camp"}
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO camps (id, location, coordinator, coordinator_uid, latitude, longitude, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, location, coordinator, ownerUID, lat, lon, model.CampStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("creating camp: %w", err)
	}

	for group, units := range inventory {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO camp_inventory (camp_id, blood_group, units) VALUES (?, ?, ?)`,
			id, group, units,
		)
		if err != nil {
			return nil, fmt.Errorf("seeding inventory for %q: %w", group, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing camp creation: %w", err)
	}

	return GetCamp(ctx, db, id)
}

// GetCamp returns a camp with its inventory, or nil if it does not exist.
func GetCamp(ctx context.Context, db *sql.DB, id string) (*model.Camp, error) {
	c := &model.Camp{}
	var lat, lon sql.NullFloat64
	err := db.QueryRowContext(ctx,
		`SELECT id, location, coordinator, coordinator_uid, latitude, longitude, status, started_at
		 FROM camps WHERE id = ?`, id,
	).Scan(&c.ID, &c.Location, &c.Coordinator, &c.CoordinatorUID, &lat, &lon, &c.Status, &c.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting camp: %w", err)
	}

	if lat.Valid {
		c.Latitude = &lat.Float64
	}
	if lon.Valid {
		c.Longitude = &lon.Float64
	}

	c.Inventory, err = GetInventory(ctx, db, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCamp hard-deletes a camp and (through the FK cascade) its inventory
// counters. Idempotent: an absent id is treated as already ended.
func DeleteCamp(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM camps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting camp: %w", err)
	}
	return nil
}

// GetActiveCampByOwner returns the coordinator's active camp, or nil when
// they have none.
func GetActiveCampByOwner(ctx context.Context, db *sql.DB, ownerUID string) (*model.Camp, error) {
	var id string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM camps WHERE coordinator_uid = ? AND status = ?
		 ORDER BY started_at LIMIT 1`,
		ownerUID, model.CampStatusActive,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active camp by owner: %w", err)
	}
	return GetCamp(ctx, db, id)
}

// ListActiveCamps returns every active camp with inventory populated.
// The result is unordered; proximity ranking is the caller's concern.
func ListActiveCamps(ctx context.Context, db *sql.DB) ([]model.Camp, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, location, coordinator, coordinator_uid, latitude, longitude, status, started_at
		 FROM camps WHERE status = ?`, model.CampStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("listing camps: %w", err)
	}
	defer rows.Close()

	var camps []model.Camp
	index := make(map[string]int)
	for rows.Next() {
		var c model.Camp
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Location, &c.Coordinator, &c.CoordinatorUID, &lat, &lon, &c.Status, &c.StartedAt); err != nil {
			return nil, fmt.Errorf("scanning camp: %w", err)
		}
		if lat.Valid {
			c.Latitude = &lat.Float64
		}
		if lon.Valid {
			c.Longitude = &lon.Float64
		}
		c.Inventory = make(map[string]int)
		index[c.ID] = len(camps)
		camps = append(camps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	invRows, err := db.QueryContext(ctx,
		`SELECT ci.camp_id, ci.blood_group, ci.units
		 FROM camp_inventory ci
		 JOIN camps c ON c.id = ci.camp_id
		 WHERE c.status = ?`, model.CampStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("listing camp inventories: %w", err)
	}
	defer invRows.Close()

	for invRows.Next() {
		var campID, group string
		var units int
		if err := invRows.Scan(&campID, &group, &units); err != nil {
			return nil, fmt.Errorf("scanning camp inventory: %w", err)
		}
		if i, ok := index[campID]; ok {
			camps[i].Inventory[group] = units
		}
	}
	return camps, invRows.Err()
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lifelink/bloodcamp/internal/model"
)

// IncrementUnits atomically adds one unit of the given blood group. The add
// happens in-store as a commutative upsert, never a read-modify-write round
// trip, so concurrent callers cannot lose updates. An absent group starts
// from zero. Returns the new counter value.
func IncrementUnits(ctx context.Context, db *sql.DB, campID, group string) (int, error) {
	return applyUnitDelta(ctx, db, campID, group, +1)
}

// DecrementUnits atomically removes one unit. The zero guard lives in the
// caller's snapshot, not here: two racing decrements that both observed 1
// will drive the counter to -1. That artifact stays visible rather than
// being silently corrected.
func DecrementUnits(ctx context.Context, db *sql.DB, campID, group string) (int, error) {
	return applyUnitDelta(ctx, db, campID, group, -1)
}

func applyUnitDelta(ctx context.Context, db *sql.DB, campID, group string, delta int) (int, error) {
	if group == "" {
		return 0, &model.ValidationError{Field: "blood group", Reason: "must not be empty"}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO camp_inventory (camp_id, blood_group, units) VALUES (?, ?, ?)
		 ON CONFLICT (camp_id, blood_group) DO UPDATE SET units = units + ?`,
		campID, group, delta, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("applying inventory delta: %w", err)
	}

	return GetUnits(ctx, db, campID, group)
}

// SetUnits overwrites the counter for a blood group, creating the key if
// needed. This is the operator's direct-entry path; it is last-writer-wins
// and does not sequence against concurrent deltas.
func SetUnits(ctx context.Context, db *sql.DB, campID, group string, units int) (int, error) {
	if group == "" {
		return 0, &model.ValidationError{Field: "blood group", Reason: "must not be empty"}
	}
	if units < 0 {
		return 0, &model.ValidationError{Field: "units", Reason: "must not be negative"}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO camp_inventory (camp_id, blood_group, units) VALUES (?, ?, ?)
		 ON CONFLICT (camp_id, blood_group) DO UPDATE SET units = excluded.units`,
		campID, group, units,
	)
	if err != nil {
		return 0, fmt.Errorf("setting inventory units: %w", err)
	}

	return GetUnits(ctx, db, campID, group)
}

// GetUnits returns the counter for one blood group, zero if absent.
func GetUnits(ctx context.Context, db *sql.DB, campID, group string) (int, error) {
	var units int
	err := db.QueryRowContext(ctx,
		`SELECT units FROM camp_inventory WHERE camp_id = ? AND blood_group = ?`,
		campID, group,
	).Scan(&units)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting inventory units: %w", err)
	}
	return units, nil
}

// GetInventory returns all blood-group counters for a camp.
func GetInventory(ctx context.Context, db *sql.DB, campID string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT blood_group, units FROM camp_inventory WHERE camp_id = ?`, campID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting camp inventory: %w", err)
	}
	defer rows.Close()

	inventory := make(map[string]int)
	for rows.Next() {
		var group string
		var units int
		if err := rows.Scan(&group, &units); err != nil {
			return nil, fmt.Errorf("scanning camp inventory: %w", err)
		}
		inventory[group] = units
	}
	return inventory, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lifelink/bloodcamp/internal/model"
)

// CreateRequest stores a new request. Status always starts as Pending; the
// camp label and distance on r are snapshots taken by the caller at
// submission time and are stored as-is.
func CreateRequest(ctx context.Context, db *sql.DB, r model.Request) (*model.Request, error) {
	if r.Units < 1 {
		return nil, &model.ValidationError{Field: "units", Reason: "must be at least 1"}
	}
	if r.CampID == "" {
		return nil, &model.ValidationError{Field: "camp", Reason: "a camp must be targeted"}
	}
	if r.BloodType == "" {
		return nil, &model.ValidationError{Field: "blood type", Reason: "must not be empty"}
	}
	if r.Hospital == "" {
		return nil, &model.ValidationError{Field: "hospital", Reason: "must not be empty"}
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO requests (id, blood_type, units, hospital, requested_by, status, urgent, camp_id, camp_location, distance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.BloodType, r.Units, r.Hospital, r.RequestedBy, model.StatusPending, r.Urgent, r.CampID, r.CampLocation, r.Distance,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return GetRequest(ctx, db, id)
}

// GetRequest returns a request by id, or nil if it does not exist.
func GetRequest(ctx context.Context, db *sql.DB, id string) (*model.Request, error) {
	r := &model.Request{}
	var distance sql.NullFloat64
	err := db.QueryRowContext(ctx,
		`SELECT id, blood_type, units, hospital, requested_by, status, urgent, requested_at, camp_id, camp_location, distance
		 FROM requests WHERE id = ?`, id,
	).Scan(&r.ID, &r.BloodType, &r.Units, &r.Hospital, &r.RequestedBy, &r.Status, &r.Urgent, &r.RequestedAt, &r.CampID, &r.CampLocation, &distance)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	if distance.Valid {
		r.Distance = &distance.Float64
	}
	return r, nil
}

// SetRequestStatus moves a request between the coordinator-selectable
// statuses. The selector is unconstrained on purpose: backward moves such
// as Delivered back to Pending are supported corrections, not rejected
// transitions. Two writes stay out of reach here: the camp-end closure
// status has its own conditional write (CloseRequestForCampEnd), and a
// request already closed that way is immutable.
func SetRequestStatus(ctx context.Context, db *sql.DB, id, status string) error {
	if !model.ValidStatus(status) {
		return &model.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	if status == model.StatusClosedByCampEnd {
		return &model.ValidationError{Field: "status", Reason: "reserved for camp end"}
	}

	// Zero rows affected means the request is gone or already closed by a
	// camp end; both are terminal from the caller's point of view.
	_, err := db.ExecContext(ctx,
		`UPDATE requests SET status = ? WHERE id = ? AND status != ?`,
		status, id, model.StatusClosedByCampEnd,
	)
	if err != nil {
		return fmt.Errorf("setting request status: %w", err)
	}
	return nil
}

// CloseRequestForCampEnd force-closes a request when its camp ends. The
// write is conditional on the request still being Pending, which keeps the
// closure status reachable only from Pending. Reports whether the row
// changed.
func CloseRequestForCampEnd(ctx context.Context, db *sql.DB, id string) (bool, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE requests SET status = ? WHERE id = ? AND status = ?`,
		model.StatusClosedByCampEnd, id, model.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("closing request for camp end: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("closing request for camp end: %w", err)
	}
	return n > 0, nil
}

// DeleteRequest hard-deletes a request. Idempotent; an absent id is not an
// error.
func DeleteRequest(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting request: %w", err)
	}
	return nil
}

// ListRequestsByCamp returns all requests targeting a camp, most recent
// first. Insertion order breaks timestamp ties.
func ListRequestsByCamp(ctx context.Context, db *sql.DB, campID string) ([]model.Request, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, blood_type, units, hospital, requested_by, status, urgent, requested_at, camp_id, camp_location, distance
		 FROM requests WHERE camp_id = ?
		 ORDER BY requested_at DESC, rowid DESC`, campID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing requests by camp: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListRequestsByHospital returns a hospital's requests, most recent first.
func ListRequestsByHospital(ctx context.Context, db *sql.DB, hospital string) ([]model.Request, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, blood_type, units, hospital, requested_by, status, urgent, requested_at, camp_id, camp_location, distance
		 FROM requests WHERE hospital = ?
		 ORDER BY requested_at DESC, rowid DESC`, hospital,
	)
	if err != nil {
		return nil, fmt.Errorf("listing requests by hospital: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// ListPendingRequestsByCamp returns the still-pending requests for a camp,
// the set the camp-end cascade must close.
func ListPendingRequestsByCamp(ctx context.Context, db *sql.DB, campID string) ([]model.Request, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, blood_type, units, hospital, requested_by, status, urgent, requested_at, camp_id, camp_location, distance
		 FROM requests WHERE camp_id = ? AND status = ?
		 ORDER BY requested_at DESC, rowid DESC`, campID, model.StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests by camp: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

func scanRequests(rows *sql.Rows) ([]model.Request, error) {
	var requests []model.Request
	for rows.Next() {
		var r model.Request
		var distance sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.BloodType, &r.Units, &r.Hospital, &r.RequestedBy, &r.Status, &r.Urgent, &r.RequestedAt, &r.CampID, &r.CampLocation, &distance); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		if distance.Valid {
			r.Distance = &distance.Float64
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

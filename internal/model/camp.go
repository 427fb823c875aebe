package model

import "time"

// Camp represents a running blood-donation collection camp. A camp only
// exists while it runs: ending a camp hard-deletes the record.
type Camp struct {
	ID             string         `json:"id"`
	Location       string         `json:"location"`
	Coordinator    string         `json:"coordinator"`
	CoordinatorUID string         `json:"coordinator_uid"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	Inventory      map[string]int `json:"inventory"`
	Status         string         `json:"status"`
	StartedAt      time.Time      `json:"started_at"`
}

// Camp statuses. Since ended camps are deleted, "active" is the only value
// a stored camp can have.
const CampStatusActive = "active"

// DefaultBloodGroups are the eight canonical ABO/Rh labels a camp starts
// with when no explicit inventory is given. Coordinators can add further
// groups at runtime.
var DefaultBloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// HasCoordinates reports whether the camp has a usable geographic position.
func (c *Camp) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

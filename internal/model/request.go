package model

import "time"

// Request is a hospital's ask for blood units from a specific camp.
//
// CampID is a weak reference: the camp may have been deleted by the time a
// request is read, in which case CampLocation keeps the last known label
// for display. Distance is a snapshot taken at submission time and is never
// recomputed.
type Request struct {
	ID           string    `json:"id"`
	BloodType    string    `json:"blood_type"`
	Units        int       `json:"units"`
	Hospital     string    `json:"hospital"`
	RequestedBy  string    `json:"requested_by"`
	Status       string    `json:"status"`
	Urgent       bool      `json:"urgent"`
	RequestedAt  time.Time `json:"requested_at"`
	CampID       string    `json:"camp_id"`
	CampLocation string    `json:"camp_location"`
	Distance     *float64  `json:"distance,omitempty"`
}

// Request statuses.
const (
	StatusPending         = "Pending"
	StatusDelivering      = "Delivering"
	StatusDelivered       = "Delivered"
	StatusClosedByCampEnd = "Camp Closed Before Approving Request"
)

// ValidStatus reports whether s is a known request status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusDelivering, StatusDelivered, StatusClosedByCampEnd:
		return true
	}
	return false
}

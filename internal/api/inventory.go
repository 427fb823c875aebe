package api

import (
	"database/sql"
	"net/http"

	"github.com/lifelink/bloodcamp/internal/bus"
	"github.com/lifelink/bloodcamp/internal/model"
	"github.com/lifelink/bloodcamp/internal/store"
)

// InventoryHandler handles per-blood-group counter mutations on a camp.
type InventoryHandler struct {
	DB  *sql.DB
	Bus *bus.Bus
}

type setUnitsRequest struct {
	Units int `json:"units"`
}

type unitsResponse struct {
	BloodGroup string `json:"blood_group"`
	Units      int    `json:"units"`
}

// ownCamp loads the camp from the path and checks the caller owns it.
// Writes the error response and returns nil when the check fails.
func (h *InventoryHandler) ownCamp(w http.ResponseWriter, r *http.Request) *model.Camp {
	claims := GetClaims(r.Context())
	camp, err := store.GetCamp(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get camp")
		return nil
	}
	if camp == nil {
		jsonError(w, http.StatusNotFound, "camp not found")
		return nil
	}
	if camp.CoordinatorUID != claims.UID() {
		jsonError(w, http.StatusForbidden, "not your camp")
		return nil
	}
	return camp
}

// publishCamp re-reads the camp and announces the modification.
func (h *InventoryHandler) publishCamp(r *http.Request, campID string) {
	if camp, err := store.GetCamp(r.Context(), h.DB, campID); err == nil && camp != nil {
		h.Bus.Publish(bus.CampEvent(bus.Modified, camp))
	}
}

// Increment handles POST /api/camps/{id}/inventory/{group}/increment.
func (h *InventoryHandler) Increment(w http.ResponseWriter, r *http.Request) {
	camp := h.ownCamp(w, r)
	if camp == nil {
		return
	}
	group := r.PathValue("group")

	units, err := store.IncrementUnits(r.Context(), h.DB, camp.ID, group)
	if err != nil {
		jsonDomainError(w, err)
		return
	}

	h.publishCamp(r, camp.ID)
	jsonResponse(w, http.StatusOK, unitsResponse{BloodGroup: group, Units: units})
}

// Decrement handles POST /api/camps/{id}/inventory/{group}/decrement.
// Mirrors the dashboard guard: refuse when the snapshot just read is
// already at zero. The guard is advisory only: two callers racing past it
// with the same snapshot will still drive the stored counter negative.
func (h *InventoryHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	camp := h.ownCamp(w, r)
	if camp == nil {
		return
	}
	group := r.PathValue("group")

	if camp.Inventory[group] <= 0 {
		jsonError(w, http.StatusConflict, "no units to remove")
		return
	}

	units, err := store.DecrementUnits(r.Context(), h.DB, camp.ID, group)
	if err != nil {
		jsonDomainError(w, err)
		return
	}

	h.publishCamp(r, camp.ID)
	jsonResponse(w, http.StatusOK, unitsResponse{BloodGroup: group, Units: units})
}

// Set handles PUT /api/camps/{id}/inventory/{group}: the operator's
// direct-entry path, also used to introduce a new blood group.
func (h *InventoryHandler) Set(w http.ResponseWriter, r *http.Request) {
	camp := h.ownCamp(w, r)
	if camp == nil {
		return
	}
	group := r.PathValue("group")

	var req setUnitsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	units, err := store.SetUnits(r.Context(), h.DB, camp.ID, group, req.Units)
	if err != nil {
		jsonDomainError(w, err)
		return
	}

	h.publishCamp(r, camp.ID)
	jsonResponse(w, http.StatusOK, unitsResponse{BloodGroup: group, Units: units})
}

package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lifelink/bloodcamp/internal/geo"
	"github.com/lifelink/bloodcamp/internal/lifecycle"
	"github.com/lifelink/bloodcamp/internal/model"
	"github.com/lifelink/bloodcamp/internal/store"
)

// CampsHandler handles camp lifecycle and listing endpoints.
type CampsHandler struct {
	DB        *sql.DB
	Lifecycle *lifecycle.Manager
}

type startCampRequest struct {
	Location    string         `json:"location"`
	Coordinator string         `json:"coordinator"`
	Latitude    *float64       `json:"latitude"`
	Longitude   *float64       `json:"longitude"`
	Inventory   map[string]int `json:"inventory"`
}

// List handles GET /api/camps. With lat/lon query parameters the camps come
// back annotated with distance and ranked nearest first; otherwise the list
// is unordered.
func (h *CampsHandler) List(w http.ResponseWriter, r *http.Request) {
	camps, err := store.ListActiveCamps(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list camps")
		return
	}

	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	if latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			jsonError(w, http.StatusBadRequest, "invalid lat/lon")
			return
		}
		jsonResponse(w, http.StatusOK, geo.Rank(camps, geo.Point{Latitude: lat, Longitude: lon}))
		return
	}

	if camps == nil {
		camps = []model.Camp{}
	}
	jsonResponse(w, http.StatusOK, camps)
}

// Mine handles GET /api/camps/mine: the coordinator's active camp, or null
// when they have none.
func (h *CampsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	camp, err := store.GetActiveCampByOwner(r.Context(), h.DB, claims.UID())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get camp")
		return
	}
	jsonResponse(w, http.StatusOK, camp)
}

// Start handles POST /api/camps. The client reports its position in the
// body; a missing position is a failed geolocation capability, not a
// validation problem.
func (h *CampsHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req startCampRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loc := lifecycle.LocatorFunc(func(_ context.Context) (geo.Point, error) {
		if req.Latitude == nil || req.Longitude == nil {
			return geo.Point{}, fmt.Errorf("no position reported by client")
		}
		return geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}, nil
	})

	camp, err := h.Lifecycle.StartCamp(r.Context(), loc, req.Location, req.Coordinator, claims.UID(), req.Inventory)
	if err != nil {
		jsonDomainError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, camp)
}

// End handles DELETE /api/camps/{id}. Ending is owner-only and idempotent:
// an already-ended camp still gets its leftover pending requests swept.
func (h *CampsHandler) End(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	camp, err := store.GetCamp(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get camp")
		return
	}
	if camp != nil && camp.CoordinatorUID != claims.UID() {
		jsonError(w, http.StatusForbidden, "not your camp")
		return
	}

	if err := h.Lifecycle.EndCamp(r.Context(), id); err != nil {
		jsonDomainError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "camp ended"})
}

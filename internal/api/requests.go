package api

import (
	"database/sql"
	"net/http"

	"github.com/lifelink/bloodcamp/internal/bus"
	"github.com/lifelink/bloodcamp/internal/geo"
	"github.com/lifelink/bloodcamp/internal/model"
	"github.com/lifelink/bloodcamp/internal/store"
)

// RequestsHandler handles hospital request endpoints.
type RequestsHandler struct {
	DB  *sql.DB
	Bus *bus.Bus
}

type createRequestRequest struct {
	BloodType string   `json:"blood_type"`
	Units     int      `json:"units"`
	Urgent    bool     `json:"urgent"`
	CampID    string   `json:"camp_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// Create handles POST /api/requests. The hospital's reported position and
// the camp's position produce the distance snapshot stored on the request;
// it is never recomputed afterwards.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req createRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	camp, err := store.GetCamp(r.Context(), h.DB, req.CampID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get camp")
		return
	}
	if camp == nil {
		jsonError(w, http.StatusBadRequest, "camp not found or already ended")
		return
	}

	var distance *float64
	if req.Latitude != nil && req.Longitude != nil && camp.HasCoordinates() {
		d := geo.Distance(
			geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude},
			geo.Point{Latitude: *camp.Latitude, Longitude: *camp.Longitude},
		)
		distance = &d
	}

	created, err := store.CreateRequest(r.Context(), h.DB, model.Request{
		BloodType:    req.BloodType,
		Units:        req.Units,
		Hospital:     claims.Hospital,
		RequestedBy:  claims.UID(),
		Urgent:       req.Urgent,
		CampID:       camp.ID,
		CampLocation: camp.Location,
		Distance:     distance,
	})
	if err != nil {
		jsonDomainError(w, err)
		return
	}

	h.Bus.Publish(bus.RequestEvent(bus.Added, created))
	jsonResponse(w, http.StatusCreated, created)
}

// List handles GET /api/requests. Hospitals get their own requests;
// coordinators pass camp_id and must own that camp.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var (
		requests []model.Request
		err      error
	)

	switch {
	case claims.Role == model.RoleHospital:
		requests, err = store.ListRequestsByHospital(r.Context(), h.DB, claims.Hospital)
	default:
		campID := r.URL.Query().Get("camp_id")
		if campID == "" {
			jsonError(w, http.StatusBadRequest, "camp_id required")
			return
		}
		if claims.Role == model.RoleCoordinator {
			camp, getErr := store.GetCamp(r.Context(), h.DB, campID)
			if getErr != nil {
				jsonError(w, http.StatusInternalServerError, "failed to get camp")
				return
			}
			if camp == nil || camp.CoordinatorUID != claims.UID() {
				jsonError(w, http.StatusForbidden, "not your camp")
				return
			}
		}
		requests, err = store.ListRequestsByCamp(r.Context(), h.DB, campID)
	}

	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	if requests == nil {
		requests = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, requests)
}

// SetStatus handles PUT /api/requests/{id}/status. Only the coordinator of
// the request's camp can move it, and only between the selector statuses;
// camp-end closure is not reachable through this path.
func (h *RequestsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request, err := store.GetRequest(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if request == nil {
		jsonError(w, http.StatusNotFound, "request not found")
		return
	}

	camp, err := store.GetCamp(r.Context(), h.DB, request.CampID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get camp")
		return
	}
	if camp == nil {
		jsonError(w, http.StatusConflict, "camp no longer active")
		return
	}
	if camp.CoordinatorUID != claims.UID() {
		jsonError(w, http.StatusForbidden, "not your camp")
		return
	}

	if err := store.SetRequestStatus(r.Context(), h.DB, id, req.Status); err != nil {
		jsonDomainError(w, err)
		return
	}

	updated, err := store.GetRequest(r.Context(), h.DB, id)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to reload request")
		return
	}

	h.Bus.Publish(bus.RequestEvent(bus.Modified, updated))
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/requests/{id}. Only the requesting hospital
// can delete, from any status. Idempotent: an already-deleted request is
// success.
func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	request, err := store.GetRequest(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get request")
		return
	}
	if request == nil {
		jsonResponse(w, http.StatusOK, map[string]string{"message": "request deleted"})
		return
	}
	if request.Hospital != claims.Hospital {
		jsonError(w, http.StatusForbidden, "not your request")
		return
	}

	if err := store.DeleteRequest(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete request")
		return
	}

	h.Bus.Publish(bus.RequestEvent(bus.Removed, request))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "request deleted"})
}

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lifelink/bloodcamp/internal/bus"
	"github.com/lifelink/bloodcamp/internal/model"
	"github.com/lifelink/bloodcamp/internal/store"
)

// StreamHandler serves live change feeds over Server-Sent Events: a full
// snapshot as "added" events, then deltas as they happen.
//
// The subscription is registered before the snapshot query so no change can
// fall into the gap between them; a change applied between the two may
// therefore arrive twice, which is within the at-least-once contract.
type StreamHandler struct {
	DB  *sql.DB
	Bus *bus.Bus
}

// keepAliveInterval is how often an idle stream emits an SSE comment so
// intermediaries don't drop the connection.
const keepAliveInterval = 30 * time.Second

// Camps handles GET /api/stream/camps: every active camp, then live camp
// changes. Ranking stays client-side against the viewer's own position.
func (h *StreamHandler) Camps(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, bus.AllCamps(), func(ctx context.Context) ([]bus.Event, error) {
		camps, err := store.ListActiveCamps(ctx, h.DB)
		if err != nil {
			return nil, err
		}
		events := make([]bus.Event, 0, len(camps))
		for i := range camps {
			events = append(events, bus.CampEvent(bus.Added, &camps[i]))
		}
		return events, nil
	})
}

// Requests handles GET /api/stream/requests. Coordinators follow one camp
// via camp_id; hospitals follow their own requests.
func (h *StreamHandler) Requests(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	campID := r.URL.Query().Get("camp_id")

	var (
		pred     bus.Predicate
		snapshot func(ctx context.Context) ([]model.Request, error)
	)
	switch {
	case campID != "":
		pred = bus.RequestsForCamp(campID)
		snapshot = func(ctx context.Context) ([]model.Request, error) {
			return store.ListRequestsByCamp(ctx, h.DB, campID)
		}
	case claims.Role == model.RoleHospital:
		pred = bus.RequestsForHospital(claims.Hospital)
		snapshot = func(ctx context.Context) ([]model.Request, error) {
			return store.ListRequestsByHospital(ctx, h.DB, claims.Hospital)
		}
	default:
		jsonError(w, http.StatusBadRequest, "camp_id required")
		return
	}

	h.stream(w, r, pred, func(ctx context.Context) ([]bus.Event, error) {
		requests, err := snapshot(ctx)
		if err != nil {
			return nil, err
		}
		events := make([]bus.Event, 0, len(requests))
		for i := range requests {
			events = append(events, bus.RequestEvent(bus.Added, &requests[i]))
		}
		return events, nil
	})
}

func (h *StreamHandler) stream(w http.ResponseWriter, r *http.Request, pred bus.Predicate, snapshot func(ctx context.Context) ([]bus.Event, error)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.Bus.Subscribe(pred, 0)
	defer sub.Close()

	events, err := snapshot(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, ev := range events {
		writeEvent(w, ev)
	}
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-sub.C:
			if !open {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev bus.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

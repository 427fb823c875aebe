// Package lifecycle orchestrates camp start and end: position capture and
// record creation on start, deletion plus the best-effort request cascade
// on end.
package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lifelink/bloodcamp/internal/bus"
	"github.com/lifelink/bloodcamp/internal/geo"
	"github.com/lifelink/bloodcamp/internal/model"
	"github.com/lifelink/bloodcamp/internal/store"
)

// Locator is a one-shot geolocation capability: it either returns the
// caller's current position or fails. A failure is terminal for the
// operation and is never retried here.
type Locator interface {
	Locate(ctx context.Context) (geo.Point, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (geo.Point, error)

func (f LocatorFunc) Locate(ctx context.Context) (geo.Point, error) { return f(ctx) }

// Manager drives camp start/end and keeps subscribers informed.
type Manager struct {
	DB  *sql.DB
	Bus *bus.Bus
}

// StartCamp captures the coordinator's position through loc, creates the
// camp, and announces it. A locator failure surfaces as a CapabilityError
// before anything is written.
func (m *Manager) StartCamp(ctx context.Context, loc Locator, location, coordinator, ownerUID string, inventory map[string]int) (*model.Camp, error) {
	pt, err := loc.Locate(ctx)
	if err != nil {
		return nil, &model.CapabilityError{Capability: "geolocation", Err: err}
	}

	camp, err := store.CreateCamp(ctx, m.DB, location, coordinator, ownerUID, &pt.Latitude, &pt.Longitude, inventory)
	if err != nil {
		return nil, err
	}

	m.Bus.Publish(bus.CampEvent(bus.Added, camp))
	slog.Info("camp started", "camp", camp.ID, "location", camp.Location, "coordinator_uid", ownerUID)
	return camp, nil
}

// EndCamp deletes the camp, then closes each of its still-pending requests
// with one independent write per request. The steps are deliberately not a
// transaction: a crash part-way can leave pending requests pointing at a
// deleted camp. Calling EndCamp again for the same id sweeps such leftovers,
// and ending an already-absent camp is not an error.
func (m *Manager) EndCamp(ctx context.Context, campID string) error {
	camp, err := store.GetCamp(ctx, m.DB, campID)
	if err != nil {
		return err
	}

	if err := store.DeleteCamp(ctx, m.DB, campID); err != nil {
		return err
	}
	if camp != nil {
		m.Bus.Publish(bus.CampEvent(bus.Removed, camp))
		slog.Info("camp ended", "camp", camp.ID, "location", camp.Location)
	}

	pending, err := store.ListPendingRequestsByCamp(ctx, m.DB, campID)
	if err != nil {
		return fmt.Errorf("listing pending requests for ended camp: %w", err)
	}

	var failed int
	for _, req := range pending {
		closed, err := store.CloseRequestForCampEnd(ctx, m.DB, req.ID)
		if err != nil {
			failed++
			slog.Error("closing request after camp end", "request", req.ID, "error", err)
			continue
		}
		if !closed {
			continue
		}
		if updated, err := store.GetRequest(ctx, m.DB, req.ID); err == nil && updated != nil {
			m.Bus.Publish(bus.RequestEvent(bus.Modified, updated))
		}
	}

	if failed > 0 {
		return fmt.Errorf("camp ended but %d request(s) could not be closed", failed)
	}
	return nil
}

package api

import (
	"database/sql"
	"net/http"

	"github.com/lifelink/bloodcamp/internal/bus"
	"github.com/lifelink/bloodcamp/internal/lifecycle"
	"github.com/lifelink/bloodcamp/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, b *bus.Bus) http.Handler {
	mux := http.NewServeMux()

	manager := &lifecycle.Manager{DB: db, Bus: b}

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	campsHandler := &CampsHandler{DB: db, Lifecycle: manager}
	inventoryHandler := &InventoryHandler{DB: db, Bus: b}
	requestsHandler := &RequestsHandler{DB: db, Bus: b}
	streamHandler := &StreamHandler{DB: db, Bus: b}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireCoordinator := RequireRole(model.RoleCoordinator)
	requireHospital := RequireRole(model.RoleHospital)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only): account provisioning with role/hospital claims.
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Camps: lifecycle (coordinator), discovery (any authenticated role).
	mux.Handle("GET /api/camps", authMW(http.HandlerFunc(campsHandler.List)))
	mux.Handle("GET /api/camps/mine", authMW(requireCoordinator(http.HandlerFunc(campsHandler.Mine))))
	mux.Handle("POST /api/camps", authMW(requireCoordinator(http.HandlerFunc(campsHandler.Start))))
	mux.Handle("DELETE /api/camps/{id}", authMW(requireCoordinator(http.HandlerFunc(campsHandler.End))))

	// Inventory counters (owning coordinator only).
	mux.Handle("POST /api/camps/{id}/inventory/{group}/increment", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.Increment))))
	mux.Handle("POST /api/camps/{id}/inventory/{group}/decrement", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.Decrement))))
	mux.Handle("PUT /api/camps/{id}/inventory/{group}", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.Set))))

	// Requests: hospitals create/delete their own, coordinators move status.
	mux.Handle("POST /api/requests", authMW(requireHospital(http.HandlerFunc(requestsHandler.Create))))
	mux.Handle("GET /api/requests", authMW(http.HandlerFunc(requestsHandler.List)))
	mux.Handle("PUT /api/requests/{id}/status", authMW(requireCoordinator(http.HandlerFunc(requestsHandler.SetStatus))))
	mux.Handle("DELETE /api/requests/{id}", authMW(requireHospital(http.HandlerFunc(requestsHandler.Delete))))

	// Live change feeds.
	mux.Handle("GET /api/stream/camps", authMW(http.HandlerFunc(streamHandler.Camps)))
	mux.Handle("GET /api/stream/requests", authMW(http.HandlerFunc(streamHandler.Requests)))

	return mux
}

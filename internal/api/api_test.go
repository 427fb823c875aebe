package api

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lifelink/bloodcamp/internal/bus"
	"github.com/lifelink/bloodcamp/internal/db"
	"github.com/lifelink/bloodcamp/internal/geo"
	"github.com/lifelink/bloodcamp/internal/model"
	"github.com/lifelink/bloodcamp/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	router := NewRouter(database, testJWTSecret, bus.New())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, database
}

// provisionAndLogin creates a user directly in the store and logs them in
// through the API, returning their token.
func provisionAndLogin(t *testing.T, server *httptest.Server, database *sql.DB, username, role, hospital string) string {
	t.Helper()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if _, err := store.CreateUser(context.Background(), database, username, string(hash), role, hospital); err != nil {
		t.Fatalf("creating %s user: %v", role, err)
	}

	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp["token"] == "" {
		t.Fatal("empty token from login")
	}
	return loginResp["token"]
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, wantStatus int, target any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d", req.Method, req.URL.Path, wantStatus, resp.StatusCode)
	}
	if target != nil {
		json.NewDecoder(resp.Body).Decode(target)
	}
}

func startCampBody(location string) map[string]any {
	return map[string]any{
		"location":    location,
		"coordinator": "Ravi",
		"latitude":    28.6139,
		"longitude":   77.2090,
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	provisionAndLogin(t, server, database, "admin", model.RoleAdmin, "")

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoginReturnsRoleAndHospital(t *testing.T) {
	server, database := setupTestServer(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(context.Background(), database, "city", string(hash), model.RoleHospital, "City Hospital")

	body, _ := json.Marshal(map[string]string{"username": "city", "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp["role"] != model.RoleHospital {
		t.Errorf("expected hospital role in response, got %q", loginResp["role"])
	}
	if loginResp["hospital"] != "City Hospital" {
		t.Errorf("expected hospital name in response, got %q", loginResp["hospital"])
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/camps")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleEnforcement(t *testing.T) {
	server, database := setupTestServer(t)
	hospitalToken := provisionAndLogin(t, server, database, "city", model.RoleHospital, "City Hospital")
	coordToken := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")

	// A hospital cannot start camps.
	req, _ := authRequest("POST", server.URL+"/api/camps", hospitalToken, startCampBody("Hall"))
	doJSON(t, req, http.StatusForbidden, nil)

	// A coordinator cannot create requests.
	req, _ = authRequest("POST", server.URL+"/api/requests", coordToken, map[string]any{
		"blood_type": "O+", "units": 1, "camp_id": "whatever",
	})
	doJSON(t, req, http.StatusForbidden, nil)

	// Neither can provision users.
	req, _ = authRequest("GET", server.URL+"/api/users", coordToken, nil)
	doJSON(t, req, http.StatusForbidden, nil)
}

func TestLogoutRevokesToken(t *testing.T) {
	server, database := setupTestServer(t)
	token := provisionAndLogin(t, server, database, "admin", model.RoleAdmin, "")

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	doJSON(t, req, http.StatusOK, nil)

	req, _ = authRequest("GET", server.URL+"/api/users", token, nil)
	doJSON(t, req, http.StatusUnauthorized, nil)
}

func TestUsersAPIFlow(t *testing.T) {
	server, database := setupTestServer(t)
	token := provisionAndLogin(t, server, database, "admin", model.RoleAdmin, "")

	var created model.User
	req, _ := authRequest("POST", server.URL+"/api/users", token, map[string]string{
		"username": "city", "password": "password", "role": model.RoleHospital, "hospital": "City Hospital",
	})
	doJSON(t, req, http.StatusCreated, &created)
	if created.Hospital != "City Hospital" {
		t.Errorf("expected hospital claim on created user, got %q", created.Hospital)
	}

	// Hospital role without a hospital name is rejected.
	req, _ = authRequest("POST", server.URL+"/api/users", token, map[string]string{
		"username": "bad", "password": "password", "role": model.RoleHospital,
	})
	doJSON(t, req, http.StatusBadRequest, nil)

	var users []model.User
	req, _ = authRequest("GET", server.URL+"/api/users", token, nil)
	doJSON(t, req, http.StatusOK, &users)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}

func TestCampLifecycleFlow(t *testing.T) {
	server, database := setupTestServer(t)
	token := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")

	var camp model.Camp
	req, _ := authRequest("POST", server.URL+"/api/camps", token, startCampBody("Community Hall"))
	doJSON(t, req, http.StatusCreated, &camp)
	if camp.ID == "" || camp.Status != model.CampStatusActive {
		t.Fatalf("unexpected created camp: %+v", camp)
	}
	if len(camp.Inventory) != len(model.DefaultBloodGroups) {
		t.Errorf("expected default blood groups, got %d entries", len(camp.Inventory))
	}

	// A second active camp for the same coordinator is rejected.
	req, _ = authRequest("POST", server.URL+"/api/camps", token, startCampBody("Second Hall"))
	doJSON(t, req, http.StatusBadRequest, nil)

	var mine model.Camp
	req, _ = authRequest("GET", server.URL+"/api/camps/mine", token, nil)
	doJSON(t, req, http.StatusOK, &mine)
	if mine.ID != camp.ID {
		t.Errorf("expected own camp back, got %+v", mine)
	}

	req, _ = authRequest("DELETE", server.URL+"/api/camps/"+camp.ID, token, nil)
	doJSON(t, req, http.StatusOK, nil)

	// Ending twice is fine.
	req, _ = authRequest("DELETE", server.URL+"/api/camps/"+camp.ID, token, nil)
	doJSON(t, req, http.StatusOK, nil)
}

func TestStartCampWithoutPosition(t *testing.T) {
	server, database := setupTestServer(t)
	token := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")

	// No latitude/longitude reported: the geolocation capability failed.
	req, _ := authRequest("POST", server.URL+"/api/camps", token, map[string]any{
		"location": "Hall", "coordinator": "Ravi",
	})
	doJSON(t, req, http.StatusBadGateway, nil)
}

func TestCampListRankedByDistance(t *testing.T) {
	server, database := setupTestServer(t)
	ravi := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")
	mina := provisionAndLogin(t, server, database, "mina", model.RoleCoordinator, "")

	req, _ := authRequest("POST", server.URL+"/api/camps", ravi, map[string]any{
		"location": "North Camp", "coordinator": "Ravi", "latitude": 41.0, "longitude": 0.0,
	})
	doJSON(t, req, http.StatusCreated, nil)

	req, _ = authRequest("POST", server.URL+"/api/camps", mina, map[string]any{
		"location": "East Camp", "coordinator": "Mina", "latitude": 40.0, "longitude": 1.0,
	})
	doJSON(t, req, http.StatusCreated, nil)

	var ranked []geo.RankedCamp
	req, _ = authRequest("GET", server.URL+"/api/camps?lat=40&lon=0", ravi, nil)
	doJSON(t, req, http.StatusOK, &ranked)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 camps, got %d", len(ranked))
	}
	if ranked[0].Location != "East Camp" {
		t.Errorf("expected East Camp nearest, got %q at %.1f km", ranked[0].Location, ranked[0].Distance)
	}
}

func TestInventoryEndpoints(t *testing.T) {
	server, database := setupTestServer(t)
	token := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")

	var camp model.Camp
	req, _ := authRequest("POST", server.URL+"/api/camps", token, startCampBody("Hall"))
	doJSON(t, req, http.StatusCreated, &camp)

	base := server.URL + "/api/camps/" + camp.ID + "/inventory/O+"

	var units unitsResponse
	req, _ = authRequest("POST", base+"/increment", token, nil)
	doJSON(t, req, http.StatusOK, &units)
	if units.Units != 1 {
		t.Errorf("expected 1 unit, got %d", units.Units)
	}

	req, _ = authRequest("POST", base+"/decrement", token, nil)
	doJSON(t, req, http.StatusOK, &units)
	if units.Units != 0 {
		t.Errorf("expected 0 units, got %d", units.Units)
	}

	// At zero the decrement guard kicks in.
	req, _ = authRequest("POST", base+"/decrement", token, nil)
	doJSON(t, req, http.StatusConflict, nil)

	req, _ = authRequest("PUT", base, token, map[string]int{"units": 5})
	doJSON(t, req, http.StatusOK, &units)
	if units.Units != 5 {
		t.Errorf("expected 5 units, got %d", units.Units)
	}

	// Another coordinator cannot touch this camp.
	other := provisionAndLogin(t, server, database, "mina", model.RoleCoordinator, "")
	req, _ = authRequest("POST", base+"/increment", other, nil)
	doJSON(t, req, http.StatusForbidden, nil)
}

func TestRequestFlow(t *testing.T) {
	server, database := setupTestServer(t)
	coordToken := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")
	hospToken := provisionAndLogin(t, server, database, "city", model.RoleHospital, "City Hospital")

	var camp model.Camp
	req, _ := authRequest("POST", server.URL+"/api/camps", coordToken, startCampBody("Hall"))
	doJSON(t, req, http.StatusCreated, &camp)

	// Hospital submits a request with its own position; the distance is
	// snapshotted from it.
	var created model.Request
	req, _ = authRequest("POST", server.URL+"/api/requests", hospToken, map[string]any{
		"blood_type": "O+", "units": 2, "urgent": true, "camp_id": camp.ID,
		"latitude": 19.0760, "longitude": 72.8777,
	})
	doJSON(t, req, http.StatusCreated, &created)
	if created.Status != model.StatusPending {
		t.Errorf("expected Pending, got %q", created.Status)
	}
	if created.Hospital != "City Hospital" {
		t.Errorf("expected hospital stamped from claims, got %q", created.Hospital)
	}
	if created.Distance == nil {
		t.Fatal("expected distance snapshot")
	}
	if *created.Distance < 1100 || *created.Distance > 1200 {
		t.Errorf("unexpected distance %.1f km", *created.Distance)
	}

	// Coordinator lists the camp's requests and moves the status.
	var list []model.Request
	req, _ = authRequest("GET", server.URL+"/api/requests?camp_id="+camp.ID, coordToken, nil)
	doJSON(t, req, http.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 request, got %d", len(list))
	}

	var updated model.Request
	req, _ = authRequest("PUT", server.URL+"/api/requests/"+created.ID+"/status", coordToken,
		map[string]string{"status": model.StatusDelivering})
	doJSON(t, req, http.StatusOK, &updated)
	if updated.Status != model.StatusDelivering {
		t.Errorf("expected Delivering, got %q", updated.Status)
	}

	// The camp-end closure status is not reachable through the selector.
	req, _ = authRequest("PUT", server.URL+"/api/requests/"+created.ID+"/status", coordToken,
		map[string]string{"status": model.StatusClosedByCampEnd})
	doJSON(t, req, http.StatusBadRequest, nil)

	// The hospital sees its request and can delete it.
	req, _ = authRequest("GET", server.URL+"/api/requests", hospToken, nil)
	doJSON(t, req, http.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 request for hospital, got %d", len(list))
	}

	req, _ = authRequest("DELETE", server.URL+"/api/requests/"+created.ID, hospToken, nil)
	doJSON(t, req, http.StatusOK, nil)
	req, _ = authRequest("DELETE", server.URL+"/api/requests/"+created.ID, hospToken, nil)
	doJSON(t, req, http.StatusOK, nil)
}

func TestCampEndClosesPendingRequests(t *testing.T) {
	server, database := setupTestServer(t)
	coordToken := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")
	hospToken := provisionAndLogin(t, server, database, "city", model.RoleHospital, "City Hospital")

	var camp model.Camp
	req, _ := authRequest("POST", server.URL+"/api/camps", coordToken, startCampBody("Hall"))
	doJSON(t, req, http.StatusCreated, &camp)

	var created model.Request
	req, _ = authRequest("POST", server.URL+"/api/requests", hospToken, map[string]any{
		"blood_type": "A+", "units": 1, "camp_id": camp.ID,
	})
	doJSON(t, req, http.StatusCreated, &created)

	req, _ = authRequest("DELETE", server.URL+"/api/camps/"+camp.ID, coordToken, nil)
	doJSON(t, req, http.StatusOK, nil)

	var list []model.Request
	req, _ = authRequest("GET", server.URL+"/api/requests", hospToken, nil)
	doJSON(t, req, http.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 request, got %d", len(list))
	}
	if list[0].Status != model.StatusClosedByCampEnd {
		t.Errorf("expected camp-end closure, got %q", list[0].Status)
	}
	if list[0].CampLocation != "Hall" {
		t.Errorf("expected camp label to survive deletion, got %q", list[0].CampLocation)
	}
}

func TestCampStreamSnapshot(t *testing.T) {
	server, database := setupTestServer(t)
	token := provisionAndLogin(t, server, database, "ravi", model.RoleCoordinator, "")

	var camp model.Camp
	req, _ := authRequest("POST", server.URL+"/api/camps", token, startCampBody("Hall"))
	doJSON(t, req, http.StatusCreated, &camp)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ = authRequest("GET", server.URL+"/api/stream/camps", token, nil)
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	// The snapshot arrives first: an "added" event carrying the camp.
	scanner := bufio.NewScanner(resp.Body)
	var eventType, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}

	if eventType != bus.Added {
		t.Errorf("expected added event, got %q", eventType)
	}
	var ev bus.Event
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if ev.Camp == nil || ev.Camp.ID != camp.ID {
		t.Errorf("expected camp snapshot, got %+v", ev)
	}
}

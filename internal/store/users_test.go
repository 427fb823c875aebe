package store

import (
	"context"
	"testing"

	"github.com/lifelink/bloodcamp/internal/db"
	"github.com/lifelink/bloodcamp/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "ravi", "hash", model.RoleCoordinator, "")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "ravi" {
		t.Errorf("expected username 'ravi', got %q", user.Username)
	}
	if user.Role != model.RoleCoordinator {
		t.Errorf("expected coordinator role, got %q", user.Role)
	}
	if user.Hospital != "" {
		t.Errorf("expected no hospital claim, got %q", user.Hospital)
	}
}

func TestCreateHospitalUserCarriesClaim(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "city", "hash", model.RoleHospital, "City Hospital")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Hospital != "City Hospital" {
		t.Errorf("expected hospital claim, got %q", user.Hospital)
	}

	got, _ := GetUserByUsername(ctx, database, "city")
	if got == nil || got.Hospital != "City Hospital" {
		t.Errorf("expected claim via username lookup, got %+v", got)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "ravi", "hash", model.RoleAdmin, "")
	if _, err := CreateUser(ctx, database, "ravi", "hash2", model.RoleAdmin, ""); err == nil {
		t.Error("expected error for duplicate username")
	}
}

func TestUpdateUserRoleAndHospital(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "switcher", "hash", model.RoleCoordinator, "")

	if err := UpdateUser(ctx, database, user.ID, model.RoleHospital, "District Hospital"); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.Role != model.RoleHospital || got.Hospital != "District Hospital" {
		t.Errorf("expected updated role/hospital, got %+v", got)
	}
}

func TestSoftDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "leaver", "hash", model.RoleHospital, "City Hospital")

	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after soft delete, got %d", len(users))
	}

	// Still fetchable by ID, with the deletion recorded.
	got, _ := GetUser(ctx, database, user.ID)
	if got == nil || got.DeletedAt == nil {
		t.Errorf("expected soft-deleted user with deleted_at set, got %+v", got)
	}

	// The username is free again.
	if _, err := CreateUser(ctx, database, "leaver", "hash", model.RoleHospital, "City Hospital"); err != nil {
		t.Errorf("CreateUser with reused username: %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "ravi", "old", model.RoleAdmin, "")

	if err := UpdateUserPassword(ctx, database, user.ID, "new"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "new" {
		t.Errorf("expected updated hash, got %q", got.PasswordHash)
	}
}

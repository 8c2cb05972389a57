package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/carepulse/carepulse/internal/platform"
)

func TestDocumentsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewDocuments()

	created, err := store.CreateDocument(ctx, "db", "appointments", "a1", map[string]any{
		"status": "pending",
		"$id":    "spoofed",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "a1" || created.Data["status"] != "pending" {
		t.Fatalf("unexpected document: %+v", created)
	}
	if _, ok := created.Data["$id"]; ok {
		t.Fatalf("system attribute leaked into data")
	}

	// mutating the returned copy must not touch the store
	created.Data["status"] = "cancelled"

	got, err := store.GetDocument(ctx, "db", "appointments", "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Data["status"] != "pending" {
		t.Fatalf("store shares memory with caller: %v", got.Data["status"])
	}

	updated, err := store.UpdateDocument(ctx, "db", "appointments", "a1", map[string]any{"status": "scheduled"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Data["status"] != "scheduled" {
		t.Fatalf("update not applied: %v", updated.Data)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatalf("updatedAt before createdAt")
	}
}

func TestDocumentsErrors(t *testing.T) {
	ctx := context.Background()
	store := NewDocuments()
	if _, err := store.GetDocument(ctx, "db", "c", "missing"); !errors.Is(err, platform.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.UpdateDocument(ctx, "db", "c", "missing", map[string]any{"a": 1}); !errors.Is(err, platform.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
	if _, err := store.CreateDocument(ctx, "db", "c", "x", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.CreateDocument(ctx, "db", "c", "x", nil); !errors.Is(err, platform.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestListDocumentsFilters(t *testing.T) {
	ctx := context.Background()
	store := NewDocuments()
	for _, id := range []string{"p1", "p2", "p3"} {
		user := "u1"
		if id == "p2" {
			user = "u2"
		}
		if _, err := store.CreateDocument(ctx, "db", "patients", id, map[string]any{"userId": user}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	list, err := store.ListDocuments(ctx, "db", "patients", platform.Equal("userId", "u1"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 2 || len(list.Documents) != 2 {
		t.Fatalf("expected 2 matches, got %d/%d", list.Total, len(list.Documents))
	}
	empty, err := store.ListDocuments(ctx, "db", "other")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if empty.Total != 0 {
		t.Fatalf("expected empty collection")
	}
}

func TestUsersUniqueEmail(t *testing.T) {
	ctx := context.Background()
	users := NewUsers()
	if _, err := users.CreateUser(ctx, platform.NewUser{ID: "u1", Name: "Jane", Email: "jane@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := users.CreateUser(ctx, platform.NewUser{ID: "u2", Name: "Jane", Email: "JANE@example.com"})
	if !errors.Is(err, platform.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	found, err := users.ListUsersByEmail(ctx, "jane@example.com")
	if err != nil || len(found) != 1 || found[0].ID != "u1" {
		t.Fatalf("lookup by email failed: %v %v", found, err)
	}
	if _, err := users.GetUser(ctx, "nope"); !errors.Is(err, platform.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage()
	file, err := storage.CreateFile(ctx, "bucket", "f1", platform.InputFile{
		Name:        "id.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if file.SizeOriginal != int64(len("png-bytes")) {
		t.Fatalf("unexpected size %d", file.SizeOriginal)
	}
	rc, meta, err := storage.GetFile(ctx, "bucket", "f1")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "png-bytes" || meta.MimeType != "image/png" {
		t.Fatalf("unexpected file contents %q %+v", body, meta)
	}
	if _, _, err := storage.GetFile(ctx, "bucket", "missing"); !errors.Is(err, platform.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

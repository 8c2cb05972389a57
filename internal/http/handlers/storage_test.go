package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/internal/platform/memory"
)

func storageRouter(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStorage()
	_, err := store.CreateFile(context.Background(), "ids", "f1", platform.InputFile{
		Name:        "license.png",
		ContentType: "image/png",
		Body:        strings.NewReader("png-bytes"),
	})
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}
	for id, seed := range map[string]platform.InputFile{
		"html": {Name: "id.html", ContentType: "text/html; charset=utf-8", Body: strings.NewReader("<script>alert(1)</script>")},
		"svg":  {Name: "id.svg", ContentType: "image/svg+xml", Body: strings.NewReader("<svg/>")},
		"pdf":  {Name: "id.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")},
	} {
		if _, err := store.CreateFile(context.Background(), "ids", id, seed); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	r := chi.NewRouter()
	r.Get("/storage/buckets/{bucketID}/files/{fileID}/view", NewStorageHandler(store, "proj", nil).ViewFile)
	return r
}

func TestViewFileStreamsContent(t *testing.T) {
	rec := httptest.NewRecorder()
	storageRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/buckets/ids/files/f1/view?project=proj", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec.Body.String() != "png-bytes" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "" {
		t.Fatalf("expected image to render inline, got disposition %q", got)
	}
}

func TestViewFileForcesDownloadForActiveContent(t *testing.T) {
	tests := []struct {
		fileID      string
		disposition string
	}{
		{"html", `attachment; filename=id.html`},
		{"svg", `attachment; filename=id.svg`},
		{"pdf", ""},
	}
	router := storageRouter(t)
	for _, tt := range tests {
		t.Run(tt.fileID, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/buckets/ids/files/"+tt.fileID+"/view?project=proj", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Fatalf("expected nosniff, got %q", got)
			}
			if got := rec.Header().Get("Content-Disposition"); got != tt.disposition {
				t.Fatalf("expected disposition %q, got %q", tt.disposition, got)
			}
		})
	}
}

func TestViewFileNotFound(t *testing.T) {
	for _, path := range []string{
		"/storage/buckets/ids/files/missing/view?project=proj",
		"/storage/buckets/ids/files/f1/view?project=other",
		"/storage/buckets/other/files/f1/view?project=proj",
	} {
		rec := httptest.NewRecorder()
		storageRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

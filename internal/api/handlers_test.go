package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/session"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/store"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/vision"
)

type silentNotifier struct{}

func (silentNotifier) Notify(_, _ string) {}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s := store.NewTestStore(t)
	mgr := session.NewManager(&vision.StubAnalyzer{}, s, silentNotifier{})
	return New(mgr, s, t.TempDir()), s
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func photoRequest(t *testing.T, user string, body []byte, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := part.Write(body); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+user+"/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestEnterAndStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest(http.MethodPost, "/api/sessions/fred/enter", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("enter status = %d, want 201", rec.Code)
	}

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/sessions/fred", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	status := decodeBody[map[string]any](t, rec)
	if status["state"] != "collecting" {
		t.Errorf("state = %v, want collecting", status["state"])
	}
}

func TestStatusWithoutSession(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/sessions/nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAddPhotoRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, photoRequest(t, "nobody", pngBytes(t), "a.png"))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAddPhotoRejectsNonImage(t *testing.T) {
	srv, _ := newTestServer(t)
	do(srv, httptest.NewRequest(http.MethodPost, "/api/sessions/fred/enter", nil))

	rec := do(srv, photoRequest(t, "fred", []byte("this is not an image"), "notes.txt"))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", rec.Code)
	}
}

func TestFullIntakeOverHTTP(t *testing.T) {
	srv, s := newTestServer(t)
	do(srv, httptest.NewRequest(http.MethodPost, "/api/sessions/fred/enter", nil))

	photo := pngBytes(t)
	for i := 1; i <= session.PhotosPerItem; i++ {
		rec := do(srv, photoRequest(t, "fred", photo, fmt.Sprintf("%d.png", i)))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("photo %d status = %d, want 202: %s", i, rec.Code, rec.Body.String())
		}
		resp := decodeBody[map[string]any](t, rec)
		if int(resp["photo_count"].(float64)) != i {
			t.Errorf("photo_count = %v, want %d", resp["photo_count"], i)
		}
	}

	// The analysis runs in the background; poll until the item lands.
	deadline := time.Now().Add(3 * time.Second)
	var items []model.Item
	for time.Now().Before(deadline) {
		rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/items", nil))
		items = decodeBody[[]model.Item](t, rec)
		if len(items) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 after analysis", len(items))
	}

	rec := do(srv, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/items/%d", items[0].ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get item status = %d, want 200", rec.Code)
	}
	got := decodeBody[model.ItemWithImages](t, rec)
	if len(got.Images) != 3 {
		t.Errorf("images = %d, want 3", len(got.Images))
	}

	rec = do(srv, httptest.NewRequest(http.MethodPost, "/api/sessions/fred/exit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("exit status = %d, want 200", rec.Code)
	}
	summary := decodeBody[session.Summary](t, rec)
	if summary.ItemsCreated != 1 {
		t.Errorf("summary items = %d, want 1", summary.ItemsCreated)
	}

	// Exit ends the session.
	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/sessions/fred", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after exit = %d, want 404", rec.Code)
	}

	// The store keeps the item after the session is gone.
	n, err := s.CountItems(context.Background())
	if err != nil {
		t.Fatalf("CountItems: %v", err)
	}
	if n != 1 {
		t.Errorf("persisted items = %d, want 1", n)
	}
}

func TestListItemsRejectsUnknownStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/items?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetItemNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/items/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/items/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric id", rec.Code)
	}
}

func TestUndoWithoutItems(t *testing.T) {
	srv, _ := newTestServer(t)
	do(srv, httptest.NewRequest(http.MethodPost, "/api/sessions/fred/enter", nil))

	rec := do(srv, httptest.NewRequest(http.MethodPost, "/api/sessions/fred/undo", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AndreasDit/Contento/internal/api"
	"github.com/AndreasDit/Contento/internal/models"
	"github.com/AndreasDit/Contento/internal/queue"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *queue.Store) {
	t.Helper()
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	router := api.NewRouter(store, nil)
	gin.SetMode(gin.TestMode)
	return router, store
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	w := do(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[map[string]any](t, w); got["status"] != "healthy" {
		t.Fatalf("unexpected health response %v", got)
	}
}

func TestCreateGetDelete(t *testing.T) {
	router, store := setupTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/posts", map[string]string{
		"platform":          "Twitter",
		"content":           "Hello",
		"hashtags":          "#world",
		"datetime_for_post": "2020-01-01 00:00:00",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[api.PostResponse](t, w)
	if !models.ValidID(created.ID) || created.Platform != "twitter" {
		t.Fatalf("unexpected created record %+v", created)
	}
	if created.Path != queue.RelPath("twitter", created.ID) {
		t.Fatalf("unexpected path %q", created.Path)
	}
	if _, err := os.Stat(filepath.Join(store.BaseDir(), created.Path)); err != nil {
		t.Fatalf("record file missing: %v", err)
	}

	w = do(t, router, http.MethodGet, "/v1/posts/twitter/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[api.PostResponse](t, w); got.Content != "Hello" || got.Hashtags != "#world" {
		t.Fatalf("unexpected record %+v", got)
	}

	w = do(t, router, http.MethodDelete, "/v1/posts/twitter/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/v1/posts/twitter/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	router, _ := setupTestRouter(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"platform", map[string]string{"platform": "myspace", "datetime_for_post": "2024-01-01 00:00:00"}},
		{"schedule", map[string]string{"platform": "twitter", "datetime_for_post": "tomorrow"}},
		{"missing schedule", map[string]string{"platform": "twitter"}},
		{"id", map[string]string{"platform": "twitter", "id": "12ab", "datetime_for_post": "2024-01-01 00:00:00"}},
	}
	for _, tc := range cases {
		w := do(t, router, http.MethodPost, "/v1/posts", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, w.Code, w.Body.String())
		}
		if got := decode[map[string]string](t, w); got["error"] == "" {
			t.Fatalf("%s: expected error body", tc.name)
		}
	}
}

func TestUpdateRequiresExistingRecord(t *testing.T) {
	router, store := setupTestRouter(t)

	body := map[string]string{"content": "edited", "datetime_for_post": "2024-05-01 09:00:00"}
	if w := do(t, router, http.MethodPut, "/v1/posts/linkedin/12345678", body); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing record, got %d", w.Code)
	}

	post := &models.Post{Platform: "linkedin", ID: "12345678", Content: "draft", DatetimeForPost: "2024-04-01 09:00:00"}
	if _, err := store.Save(post); err != nil {
		t.Fatalf("seed: %v", err)
	}
	w := do(t, router, http.MethodPut, "/v1/posts/linkedin/12345678", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got, err := store.Read(queue.RelPath("linkedin", "12345678"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.Content != "edited" || got.ID != "12345678" || got.Platform != "linkedin" {
		t.Fatalf("unexpected stored record %+v", got)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	router, store := setupTestRouter(t)
	for _, p := range []models.Post{
		{Platform: "twitter", ID: "30000000", Content: "Launch", DatetimeForPost: "2024-03-01 10:00:00"},
		{Platform: "facebook", ID: "20000000", Content: "launch recap", DatetimeForPost: "2024-02-01 10:00:00"},
		{Platform: "linkedin", ID: "10000000", Content: "hiring", DatetimeForPost: "2024-01-01 10:00:00"},
	} {
		if _, err := store.Save(&p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	type listResponse struct {
		Posts []api.PostResponse `json:"posts"`
		Count int                `json:"count"`
	}

	w := do(t, router, http.MethodGet, "/v1/posts?content=LAUNCH&sort=datetime_for_post&order=desc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[listResponse](t, w)
	if got.Count != 2 || got.Posts[0].ID != "30000000" || got.Posts[1].ID != "20000000" {
		t.Fatalf("unexpected listing %+v", got)
	}

	w = do(t, router, http.MethodGet, "/v1/posts?platform=LinkedIn", nil)
	got = decode[listResponse](t, w)
	if got.Count != 1 || got.Posts[0].ID != "10000000" {
		t.Fatalf("unexpected platform listing %+v", got)
	}

	if w := do(t, router, http.MethodGet, "/v1/posts?sort=content", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad sort, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/v1/posts?order=sideways", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad order, got %d", w.Code)
	}
}

func TestMalformedRecordIsUnprocessable(t *testing.T) {
	router, store := setupTestRouter(t)
	path := filepath.Join(store.QueueDir(models.PlatformTwitter), "55555555.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if w := do(t, router, http.MethodGet, "/v1/posts/twitter/55555555", nil); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}

	good := models.Post{Platform: "linkedin", Content: "still listed"}
	if _, err := store.Save(&good); err != nil {
		t.Fatalf("save: %v", err)
	}
	w := do(t, router, http.MethodGet, "/v1/posts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("listing with a broken record should succeed, got %d", w.Code)
	}
	got := decode[struct {
		Posts   []api.PostResponse  `json:"posts"`
		Count   int                 `json:"count"`
		Invalid []api.InvalidRecord `json:"invalid"`
	}](t, w)
	if got.Count != 1 || got.Posts[0].Content != "still listed" {
		t.Fatalf("unexpected posts %+v", got.Posts)
	}
	if len(got.Invalid) != 1 || got.Invalid[0].Path != filepath.Join("twitter", "posts_queue", "55555555.json") || got.Invalid[0].Error == "" {
		t.Fatalf("unexpected invalid list %+v", got.Invalid)
	}

	if w := do(t, router, http.MethodDelete, "/v1/posts/twitter/55555555", nil); w.Code != http.StatusNoContent {
		t.Fatalf("broken record should be deletable, got %d", w.Code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected broken record removed, stat err=%v", err)
	}
}

func TestNewIDAndPathValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/ids/new", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if id := decode[map[string]string](t, w)["id"]; !models.ValidID(id) {
		t.Fatalf("unexpected id %q", id)
	}

	if w := do(t, router, http.MethodGet, "/v1/posts/myspace/12345678", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown platform, got %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/v1/posts/twitter/nope", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", queue.ErrInvalidPlatform), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", queue.ErrNotFound), http.StatusNotFound},
		{&queue.ParseError{Path: "x", Err: errors.New("eof")}, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := api.StatusFor(tc.err); got != tc.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	router, _ := setupTestRouter(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.Serve(ctx, listener, router, nil) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

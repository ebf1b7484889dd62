package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/client"
	"github.com/pyropy/chunkfs/core/model"
)

type memFS struct {
	mu      sync.Mutex
	files   map[string][]byte
	partial map[string]bool
}

func newMemFS() *memFS {
	return &memFS{files: map[string][]byte{}, partial: map[string]bool{}}
}

func (m *memFS) Create(_ context.Context, path string, data []byte) (*client.WriteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; ok {
		return nil, fmt.Errorf("%w: %s", model.ErrFileExists, path)
	}
	m.files[path] = data
	return &client.WriteReport{File: path}, nil
}

func (m *memFS) Append(_ context.Context, path string, data []byte) (*client.WriteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
	}
	m.files[path] = append(m.files[path], data...)
	return &client.WriteReport{File: path}, nil
}

func (m *memFS) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
	}
	if m.partial[path] {
		return data, &client.PartialReadError{File: path, Missing: []uuid.UUID{uuid.New()}}
	}
	return data, nil
}

func (m *memFS) Delete(_ context.Context, path string) (*client.WriteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
	}
	delete(m.files, path)
	return &client.WriteReport{File: path}, nil
}

func (m *memFS) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := []string{}
	for name := range m.files {
		if strings.HasPrefix(name, prefix) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

func post(t *testing.T, h http.Handler, path string, form url.Values) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s: bad body %q: %v", path, rec.Body.String(), err)
	}

	return rec, body
}

func TestGatewayRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fs := newMemFS()
	h := NewServer(fs).Handler()

	rec, _ := post(t, h, "/create", url.Values{"file_name": {"/a"}, "data": {"hello"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("create status %d", rec.Code)
	}

	rec, _ = post(t, h, "/create", url.Values{"file_name": {"/a"}, "data": {"again"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create status %d", rec.Code)
	}

	rec, _ = post(t, h, "/append", url.Values{"file_name": {"/a"}, "data": {" world"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("append status %d", rec.Code)
	}

	rec, body := post(t, h, "/read", url.Values{"file_name": {"/a"}})
	if rec.Code != http.StatusOK || body["data"] != "hello world" {
		t.Fatalf("read %d %v", rec.Code, body)
	}

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	listRec := httptest.NewRecorder()
	h.ServeHTTP(listRec, req)
	if listRec.Code != http.StatusOK || !strings.Contains(listRec.Body.String(), `"/a"`) {
		t.Fatalf("list %d %s", listRec.Code, listRec.Body.String())
	}

	rec, _ = post(t, h, "/delete", url.Values{"file_name": {"/a"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status %d", rec.Code)
	}

	rec, _ = post(t, h, "/read", url.Values{"file_name": {"/a"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("read after delete status %d", rec.Code)
	}
}

func TestGatewayValidationAndPartialRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fs := newMemFS()
	h := NewServer(fs).Handler()

	rec, _ := post(t, h, "/create", url.Values{"data": {"x"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file_name status %d", rec.Code)
	}

	fs.files["/p"] = []byte("abc")
	fs.partial["/p"] = true

	rec, body := post(t, h, "/read", url.Values{"file_name": {"/p"}})
	if rec.Code != http.StatusPartialContent || body["data"] != "abc" {
		t.Fatalf("partial read %d %v", rec.Code, body)
	}

	if missing, ok := body["missing"].([]any); !ok || len(missing) != 1 {
		t.Fatalf("missing = %v", body["missing"])
	}
}

func TestGatewayServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewServer(newMemFS()).Handler()

	post(t, h, "/create", url.Values{"file_name": {"/m"}, "data": {"x"}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "chunkfs_gateway_requests_total") {
		t.Fatal("gateway request counter not exported")
	}
}

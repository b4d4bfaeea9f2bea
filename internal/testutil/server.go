package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// FileServer serves canned files over HTTP and records what was fetched
type FileServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string]fileResponse
	requests []string
}

type fileResponse struct {
	status int
	body   []byte
	delay  time.Duration
}

// NewFileServer starts a file server that is closed when the test ends
func NewFileServer(t *testing.T) *FileServer {
	t.Helper()

	fs := &FileServer{files: make(map[string]fileResponse)}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Server.Close)
	return fs
}

// NewTLSFileServer is NewFileServer behind a self-signed certificate
func NewTLSFileServer(t *testing.T) *FileServer {
	t.Helper()

	fs := &FileServer{files: make(map[string]fileResponse)}
	fs.Server = httptest.NewTLSServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Server.Close)
	return fs
}

func (fs *FileServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.requests = append(fs.requests, r.URL.Path)
	resp, ok := fs.files[r.URL.Path]
	fs.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)
}

// Set serves body with 200 OK at path
func (fs *FileServer) Set(path, body string) {
	fs.SetStatus(path, http.StatusOK, body)
}

// SetStatus serves body with the given status at path
func (fs *FileServer) SetStatus(path string, status int, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = fileResponse{status: status, body: []byte(body)}
}

// SetSlow serves body at path only after delay
func (fs *FileServer) SetSlow(path, body string, delay time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = fileResponse{status: http.StatusOK, body: []byte(body), delay: delay}
}

// URL returns the absolute URL for path
func (fs *FileServer) URL(path string) string {
	return fs.Server.URL + path
}

// Requests returns the request paths in arrival order
func (fs *FileServer) Requests() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.requests...)
}

// RequestCount returns the number of requests made to path
func (fs *FileServer) RequestCount(path string) int {
	count := 0
	for _, p := range fs.Requests() {
		if p == path {
			count++
		}
	}
	return count
}

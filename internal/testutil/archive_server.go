// Package testutil provides HTTP test servers for download and API tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"
)

// ArchiveServer serves a fixed-size payload and tracks request concurrency,
// for exercising the download queue.
type ArchiveServer struct {
	Server *httptest.Server

	// Configuration
	FileSize    int64         // size of the served payload
	Filename    string        // Content-Disposition filename, empty = none
	Latency     time.Duration // artificial latency per request
	ChunkDelay  time.Duration // delay between 4KB chunks (simulates slow link)
	FailPath    string        // requests for this path get a 500
	StatusCode  int           // non-200 forces this status for all requests

	// Tracking
	RequestCount   atomic.Int64
	ActiveRequests atomic.Int64
	MaxActive      atomic.Int64

	data []byte
}

// Option configures an ArchiveServer.
type Option func(*ArchiveServer)

func WithFileSize(size int64) Option {
	return func(s *ArchiveServer) { s.FileSize = size }
}

func WithFilename(name string) Option {
	return func(s *ArchiveServer) { s.Filename = name }
}

func WithLatency(d time.Duration) Option {
	return func(s *ArchiveServer) { s.Latency = d }
}

func WithChunkDelay(d time.Duration) Option {
	return func(s *ArchiveServer) { s.ChunkDelay = d }
}

func WithFailPath(path string) Option {
	return func(s *ArchiveServer) { s.FailPath = path }
}

func WithStatusCode(code int) Option {
	return func(s *ArchiveServer) { s.StatusCode = code }
}

// NewArchiveServer starts a test server. Callers must Close it.
func NewArchiveServer(opts ...Option) *ArchiveServer {
	s := &ArchiveServer{FileSize: 64 * 1024}
	for _, opt := range opts {
		opt(s)
	}

	s.data = make([]byte, s.FileSize)
	for i := range s.data {
		s.data[i] = byte(i % 251)
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *ArchiveServer) Close() {
	s.Server.Close()
}

// URL returns the address of the served payload.
func (s *ArchiveServer) URL() string {
	return s.Server.URL + "/archive"
}

func (s *ArchiveServer) handle(w http.ResponseWriter, r *http.Request) {
	s.RequestCount.Add(1)
	active := s.ActiveRequests.Add(1)
	defer s.ActiveRequests.Add(-1)

	// Track the high-water mark of simultaneous requests.
	for {
		max := s.MaxActive.Load()
		if active <= max || s.MaxActive.CompareAndSwap(max, active) {
			break
		}
	}

	if s.Latency > 0 {
		time.Sleep(s.Latency)
	}
	if s.FailPath != "" && r.URL.Path == s.FailPath {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}
	if s.StatusCode != 0 && s.StatusCode != http.StatusOK {
		w.WriteHeader(s.StatusCode)
		return
	}

	if s.Filename != "" {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", s.Filename))
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(s.data)))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	const chunk = 4 * 1024
	for off := 0; off < len(s.data); off += chunk {
		end := off + chunk
		if end > len(s.data) {
			end = len(s.data)
		}
		if _, err := w.Write(s.data[off:end]); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if s.ChunkDelay > 0 {
			time.Sleep(s.ChunkDelay)
		}
	}
}

// Payload returns the bytes the server serves, for content verification.
func (s *ArchiveServer) Payload() []byte {
	return s.data
}

// Package notifytest provides an in-process ntfy stand-in that records
// every notification it receives.
package notifytest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

type Server struct {
	mu       sync.Mutex
	ts       *httptest.Server
	URL      string
	requests []Request
	status   int
	reply    string
	closed   bool
}

// NewServer starts a server that answers every request with 200.
func NewServer() *Server {
	s := &Server{status: http.StatusOK, reply: "{}"}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		req := Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Title:         r.Header.Get("Title"),
			Priority:      r.Header.Get("Priority"),
			Tags:          r.Header.Get("Tags"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          string(data),
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		status, reply := s.status, s.reply
		s.mu.Unlock()

		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	s.ts = ts
	s.URL = ts.URL
	return s
}

// Fail makes subsequent requests answer with the given status and body.
func (s *Server) Fail(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.reply = body
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// Outside the lock: in-flight handlers need s.mu to finish.
	s.ts.Close()
}

type Request struct {
	Method        string
	Path          string
	Authorization string
	Title         string
	Priority      string
	Tags          string
	ContentType   string
	Body          string
}

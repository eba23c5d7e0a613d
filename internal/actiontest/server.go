// Package actiontest provides an in-process stand-in for the HTTP server that
// runs inside an action container.
package actiontest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Request is one request received by the Server.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

// RunFunc computes the /run response from the request body.
type RunFunc func(body map[string]any) (status int, payload any)

// Server mimics the action container protocol: GET / answers, POST /init
// stores code, POST /run executes RunFunc.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	requests   []Request
	code       string
	initStatus int
	initError  string
	run        RunFunc
}

// NewServer starts a Server whose /run returns the action parameters.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{initStatus: http.StatusOK, run: Echo}

	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		s.record(c, nil)
		c.Status(http.StatusNotFound)
	})
	r.POST("/init", s.handleInit)
	r.POST("/run", s.handleRun)

	s.Server = httptest.NewServer(r)
	return s
}

// Echo returns the parameters it received, like an action whose main is
// "function main(p) { return p }".
func Echo(body map[string]any) (int, any) {
	return http.StatusOK, body["value"]
}

// Endpoint returns the "host:port" the server listens on.
func (s *Server) Endpoint() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// FailInit makes /init answer status with {"error": message}.
func (s *Server) FailInit(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initStatus, s.initError = status, message
}

// OnRun replaces the /run behaviour.
func (s *Server) OnRun(fn RunFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = fn
}

// Code returns the source received by the last successful /init.
func (s *Server) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Requests returns a copy of the received requests, probes included.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the received requests for path.
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) handleInit(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	s.record(c, body)

	s.mu.Lock()
	status, message := s.initStatus, s.initError
	if status < 300 {
		if value, ok := body["value"].(map[string]any); ok {
			s.code, _ = value["code"].(string)
		}
	}
	s.mu.Unlock()

	if status >= 300 {
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(status, gin.H{"ok": true})
}

func (s *Server) handleRun(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	s.record(c, body)

	s.mu.Lock()
	run := s.run
	s.mu.Unlock()

	status, payload := run(body)
	c.JSON(status, payload)
}

func (s *Server) record(c *gin.Context, body map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{Method: c.Request.Method, Path: c.Request.URL.Path, Body: body})
}

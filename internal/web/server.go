// Package web provides an HTTP status server for the sonar-sensor daemon.
package web

import (
	"bytes"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"github.com/sweeney/sonar-sensor/internal/status"
)

// BuildInfo identifies the running binary on /version.
type BuildInfo struct {
	Module  string
	Version string
}

// Server serves the status page over HTTP.
type Server struct {
	app     *fiber.App
	addr    string
	tracker *status.Tracker
	build   BuildInfo
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, build BuildInfo) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		addr:    addr,
		tracker: tracker,
		build:   build,
	}

	s.app.Get("/", s.handleIndex)
	s.app.Get("/index.html", s.handleIndex)
	s.app.Get("/index.json", s.handleJSON)
	s.app.Get("/measurement", s.handleMeasurement)
	s.app.Get("/version", s.handleVersion)
	s.app.Get("/health", s.handleHealth)

	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.app.Listen(s.addr)
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := renderHTML(&buf, s.tracker.Snapshot()); err != nil {
		debug.ErrorLog.Printf("web: render index: %v", err)
		return fiber.ErrInternalServerError
	}
	c.Set(fiber.HeaderContentType, "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

func (s *Server) handleJSON(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/json")
	return c.Send(status.FormatJSON(s.tracker.Snapshot()))
}

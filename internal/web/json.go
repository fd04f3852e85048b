package web

import (
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"github.com/sweeney/sonar-sensor/internal/status"
)

// HealthJSON reports process health.
type HealthJSON struct {
	NumGoroutines      int    `json:"num_goroutines"`
	NumCPU             int    `json:"num_cpu"`
	HeapAllocatedBytes uint64 `json:"heap_allocated_bytes"`
	SysMemoryBytes     uint64 `json:"sys_memory_bytes"`
	Version            string `json:"version"`
	ProgLang           string `json:"prog_lang"`
	HostName           string `json:"host_name"`
	Time               string `json:"time"`
}

// handleMeasurement returns the last committed measurement. Before the first
// cycle completes it reports ticks=0, seq=0.
func (s *Server) handleMeasurement(c *fiber.Ctx) error {
	debug.DebugLog.Print("web request measurement")

	view := status.MeasurementView(s.tracker.Snapshot())
	if view == nil {
		view = &status.MeasurementJSON{}
	}
	return c.JSON(view)
}

func (s *Server) handleVersion(c *fiber.Ctx) error {
	debug.DebugLog.Print("web request version")

	return c.JSON(fiber.Map{
		"version":     s.build.Version,
		"description": s.build.Module,
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	debug.DebugLog.Print("web request health")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	host, _ := os.Hostname()

	return c.JSON(HealthJSON{
		NumGoroutines:      runtime.NumGoroutine(),
		NumCPU:             runtime.NumCPU(),
		HeapAllocatedBytes: m.Alloc,
		SysMemoryBytes:     m.Sys,
		Version:            s.build.Version,
		ProgLang:           runtime.Version(),
		HostName:           host,
		Time:               time.Now().Format(time.RFC3339),
	})
}

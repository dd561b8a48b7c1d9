package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStats is the body of GET /stats.
type SystemStats struct {
	Timestamp     string        `json:"timestamp"`
	Version       string        `json:"version"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Runtime       RuntimeStats  `json:"runtime"`
	WebSocket     WSStats       `json:"websocket"`
	Database      DatabaseStats `json:"database"`
}

// RuntimeStats contains Go runtime statistics.
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSStats contains WebSocket hub statistics.
type WSStats struct {
	ConnectedClients int `json:"connected_clients"`
}

// DatabaseStats describes the served database and its connection pool.
type DatabaseStats struct {
	Name            string `json:"name"`
	Path            string `json:"path"`
	Open            bool   `json:"open"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"wait_count"`
}

// handleStats returns process and database statistics.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := SystemStats{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStats{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.hub != nil {
		stats.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	s.dbMu.Lock()
	pool := s.handle.Stats()
	stats.Database = DatabaseStats{
		Name:            s.handle.Name(),
		Path:            s.handle.Path(),
		Open:            s.handle.IsOpen(),
		OpenConnections: pool.OpenConnections,
		InUse:           pool.InUse,
		Idle:            pool.Idle,
		WaitCount:       pool.WaitCount,
	}
	s.dbMu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}

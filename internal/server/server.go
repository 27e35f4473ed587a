// Package server serves offscreen map snapshots over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/internal/snapshot"
)

// MaxZoom bounds the zoom query parameter.
const MaxZoom = 22

// Snapshotter renders the canvas a host would show at center and zoom.
type Snapshotter interface {
	Snapshot(ctx context.Context, center geo.LngLat, zoom float64) (snapshot.Result, error)
}

type Server struct {
	startTime time.Time
	version   string
	snap      Snapshotter
}

func NewServer(version string, snap Snapshotter) *Server {
	return &Server{
		startTime: time.Now(),
		version:   version,
		snap:      snap,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// ExtentResponse is the body of GET /api/v1/extent.
type ExtentResponse struct {
	Center          [2]float64 `json:"center"`
	Zoom            float64    `json:"zoom"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	Extent          geo.Extent `json:"extent"`
	ProjectedExtent geo.Extent `json:"projectedExtent"`
	Complete        bool       `json:"complete"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler returns the router with the API mounted under /api/v1.
func (s *Server) Handler(timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors)

	r.Get("/health", s.GetHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Get("/snapshot.png", s.GetSnapshot)
		r.Get("/extent", s.GetExtent)
	})
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	})
}

// GetSnapshot renders ?lon&lat&zoom as PNG. A request that times out while
// tiles are loading still gets the partial image, flagged by the
// X-Snapshot-Complete header.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	res, ok := s.render(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Snapshot-Complete", strconv.FormatBool(res.complete))
	w.Header().Set("X-Snapshot-Extent", fmt.Sprintf("%g,%g,%g,%g", res.Extent[0], res.Extent[1], res.Extent[2], res.Extent[3]))
	w.WriteHeader(http.StatusOK)
	if err := res.WritePNG(w); err != nil {
		log.Printf("Error encoding snapshot: %v", err)
	}
}

// GetExtent reports the area ?lon&lat&zoom covers.
func (s *Server) GetExtent(w http.ResponseWriter, r *http.Request) {
	res, ok := s.render(w, r)
	if !ok {
		return
	}
	b := res.Image.Bounds()
	s.writeJSON(w, http.StatusOK, ExtentResponse{
		Center:          [2]float64{res.Center.Lng, res.Center.Lat},
		Zoom:            res.Zoom,
		Width:           b.Dx(),
		Height:          b.Dy(),
		Extent:          res.Extent,
		ProjectedExtent: res.ProjectedExtent,
		Complete:        res.complete,
	})
}

type rendered struct {
	snapshot.Result
	complete bool
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) (rendered, bool) {
	center, zoom, err := parseView(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return rendered{}, false
	}
	res, err := s.snap.Snapshot(r.Context(), center, zoom)
	if res.Image == nil {
		log.Printf("Snapshot failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "RENDER_ERROR", "snapshot failed")
		return rendered{}, false
	}
	if err != nil {
		log.Printf("Snapshot incomplete at %v z%v: %v", center, zoom, err)
	}
	return rendered{Result: res, complete: err == nil}, true
}

func parseView(r *http.Request) (geo.LngLat, float64, error) {
	q := r.URL.Query()
	var vals [3]float64
	for i, name := range []string{"lon", "lat", "zoom"} {
		raw := q.Get(name)
		if raw == "" {
			return geo.LngLat{}, 0, fmt.Errorf("missing %s", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return geo.LngLat{}, 0, fmt.Errorf("invalid %s %q", name, raw)
		}
		vals[i] = v
	}
	lon, lat, zoom := vals[0], vals[1], vals[2]
	switch {
	case lon < -180 || lon > 180:
		return geo.LngLat{}, 0, fmt.Errorf("lon %v out of range", lon)
	case lat < -90 || lat > 90:
		return geo.LngLat{}, 0, fmt.Errorf("lat %v out of range", lat)
	case zoom < 0 || zoom > MaxZoom:
		return geo.LngLat{}, 0, fmt.Errorf("zoom %v out of range 0-%d", zoom, MaxZoom)
	}
	return geo.LngLat{Lng: lon, Lat: lat}, zoom, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

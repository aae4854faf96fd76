// Package server exposes the geotag operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/Fepozopo/exifgps/pkg/catalog"
	"github.com/Fepozopo/exifgps/pkg/geotag"
	"github.com/Fepozopo/exifgps/pkg/logging"
)

// Catalog records geotag writes. *catalog.Store satisfies it.
type Catalog interface {
	Record(ctx context.Context, e catalog.Entry) (catalog.Entry, error)
	List(ctx context.Context, limit int) ([]catalog.Entry, error)
	Get(ctx context.Context, id string) (catalog.Entry, error)
}

// Options configures a Server. Zero values pick sensible defaults.
type Options struct {
	Logger         *slog.Logger
	Catalog        Catalog // optional
	MaxUploadBytes int64
	AllowedOrigins []string
	Timeout        time.Duration
}

const defaultMaxUpload = 25 << 20

type Server struct {
	logger    *slog.Logger
	catalog   Catalog
	maxUpload int64
	origins   []string
	timeout   time.Duration
}

func New(opts Options) *Server {
	s := &Server{
		logger:    opts.Logger,
		catalog:   opts.Catalog,
		maxUpload: opts.MaxUploadBytes,
		origins:   opts.AllowedOrigins,
		timeout:   opts.Timeout,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(corsHandler.Handler)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/geotag", s.handleGeotag)
		r.Post("/inspect", s.handleInspect)
		r.Post("/strip", s.handleStrip)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryEntry)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		writeCodecError(w, err)
		return nil, false
	}
	if len(body) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "empty_body", "request body must contain a JPEG image")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJPEG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func floatParam(r *http.Request, name string, required bool) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		if required {
			return 0, false, fmt.Errorf("missing query parameter %q", name)
		}
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("query parameter %q: %q is not a number", name, raw)
	}
	return v, true, nil
}

// GeotagResponse is returned by POST /v1/geotag?format=datauri.
type GeotagResponse struct {
	ID        string  `json:"id,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Bytes     int     `json:"bytes"`
	DataURI   string  `json:"data_uri"`
}

func (s *Server) handleGeotag(w http.ResponseWriter, r *http.Request) {
	lat, _, err := floatParam(r, "lat", true)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	lon, _, err := floatParam(r, "lon", true)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	var opts []geotag.Option
	if alt, ok, err := floatParam(r, "altitude", false); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	} else if ok {
		opts = append(opts, geotag.WithAltitude(alt))
	}
	if raw := r.URL.Query().Get("time"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_parameter", fmt.Sprintf("query parameter \"time\": %q is not RFC3339", raw))
			return
		}
		opts = append(opts, geotag.WithTime(ts))
	}

	img, ok := s.readImage(w, r)
	if !ok {
		return
	}
	start := time.Now()
	out, err := geotag.Tag(img, lat, lon, opts...)
	if err != nil {
		logging.LogOperationError(s.logger, "geotag", "upload", err)
		writeCodecError(w, err)
		return
	}
	source := r.URL.Query().Get("name")
	if source == "" {
		source = "upload"
	}
	logging.LogGeotag(s.logger, source, lat, lon, len(img), len(out), time.Since(start))

	var id string
	if s.catalog != nil {
		info, _ := geotag.Point(lat, lon)
		e, err := s.catalog.Record(r.Context(), catalog.Entry{
			Source:    source,
			Latitude:  lat,
			Longitude: lon,
			LatRef:    info.LatitudeRef,
			LonRef:    info.LongitudeRef,
			BytesIn:   len(img),
			BytesOut:  len(out),
		})
		if err != nil {
			s.logger.Warn("failed to record geotag", "error", err)
		}
		id = e.ID
	}

	if r.URL.Query().Get("format") == "datauri" {
		writeJSON(w, http.StatusOK, GeotagResponse{
			ID:        id,
			Latitude:  lat,
			Longitude: lon,
			Bytes:     len(out),
			DataURI:   geotag.EncodeDataURI(out),
		})
		return
	}
	if id != "" {
		w.Header().Set("X-Geotag-Id", id)
	}
	writeJPEG(w, out)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	img, ok := s.readImage(w, r)
	if !ok {
		return
	}
	report, err := geotag.Inspect(img)
	if err != nil {
		writeCodecError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	img, ok := s.readImage(w, r)
	if !ok {
		return
	}
	out, err := geotag.StripGPS(img)
	if err != nil {
		logging.LogOperationError(s.logger, "strip", "upload", err)
		writeCodecError(w, err)
		return
	}
	writeJPEG(w, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		WriteAPIError(w, http.StatusNotFound, "catalog_disabled", "the geotag catalog is not enabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteAPIError(w, http.StatusBadRequest, "invalid_parameter", fmt.Sprintf("limit %q must be a non-negative integer", raw))
			return
		}
		limit = n
	}
	entries, err := s.catalog.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list catalog", "error", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list catalog")
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		WriteAPIError(w, http.StatusNotFound, "catalog_disabled", "the geotag catalog is not enabled")
		return
	}
	e, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		WriteAPIError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		s.logger.Error("failed to read catalog entry", "error", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read catalog entry")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitecorpus/internal/app"
	"github.com/JakeFAU/sitecorpus/internal/config"
	"github.com/JakeFAU/sitecorpus/internal/corpus"
	"github.com/JakeFAU/sitecorpus/internal/crawler"
	iduuid "github.com/JakeFAU/sitecorpus/internal/id/uuid"
	"github.com/JakeFAU/sitecorpus/internal/metrics"
	"github.com/JakeFAU/sitecorpus/internal/site"
)

// Service is the part of the application the handlers drive.
type Service interface {
	Crawl(ctx context.Context, req app.CrawlRequest) (*corpus.Corpus, app.CrawlReport, error)
	ProbeFeeds(ctx context.Context, bases []string) []string
	LoadSnapshot(ctx context.Context, crawlID string) (*corpus.Corpus, error)
	SiteConfig() site.Config
}

// Server wires HTTP handlers to the application service.
type Server struct {
	router chi.Router
	svc    Service
	cfg    config.ServerConfig
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc Service, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 300
	}
	if cfg.MaxURLs <= 0 {
		cfg.MaxURLs = 500
	}
	s := &Server{svc: svc, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))
		r.Post("/crawl", s.crawl)
		r.Post("/probe", s.probe)
		r.Get("/crawls/{crawl_id}/attributes/{attribute}", s.attribute)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type crawlRequest struct {
	URLs        []string `json:"urls"`
	CrawlID     string   `json:"crawl_id"`
	Concurrency int      `json:"concurrency"`
	Mode        string   `json:"mode"`
	BlogSearch  *bool    `json:"blog_search"`
	AboutSearch *bool    `json:"about_search"`
	JoinChar    *string  `json:"join_char"`
	FilterNew   bool     `json:"filter_new"`
	Store       bool     `json:"store"`
	Snapshot    bool     `json:"snapshot"`
}

type crawlResponse struct {
	Report app.CrawlReport                `json:"report"`
	Pages  map[string]*crawler.PageRecord `json:"pages"`
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	appReq, err := s.toCrawlRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, report, err := s.svc.Crawl(r.Context(), appReq)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		s.logger.Warn("crawl failed", zap.String("crawl_id", report.CrawlID), zap.Error(err))
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, crawlResponse{Report: report, Pages: result.Records()})
}

func (s *Server) toCrawlRequest(req crawlRequest) (app.CrawlRequest, error) {
	urls := cleanURLs(req.URLs)
	if len(urls) == 0 {
		return app.CrawlRequest{}, errors.New("urls required")
	}
	if len(urls) > s.cfg.MaxURLs {
		return app.CrawlRequest{}, fmt.Errorf("at most %d urls per request", s.cfg.MaxURLs)
	}
	if req.Concurrency < 0 {
		return app.CrawlRequest{}, errors.New("concurrency must be >= 0")
	}

	siteCfg := s.svc.SiteConfig()
	if req.Mode != "" {
		mode, err := crawler.ParseMode(req.Mode)
		if err != nil {
			return app.CrawlRequest{}, err
		}
		siteCfg.Mode = mode
	}
	siteCfg.BlogSearch = boolOrDefault(req.BlogSearch, siteCfg.BlogSearch)
	siteCfg.AboutSearch = boolOrDefault(req.AboutSearch, siteCfg.AboutSearch)
	if req.JoinChar != nil {
		siteCfg.JoinChar = *req.JoinChar
	}

	crawlID := ""
	if req.CrawlID != "" {
		id, err := iduuid.Canonical(req.CrawlID)
		if err != nil {
			return app.CrawlRequest{}, err
		}
		crawlID = id
	}

	return app.CrawlRequest{
		URLs:        urls,
		CrawlID:     crawlID,
		Concurrency: req.Concurrency,
		Site:        siteCfg,
		FilterNew:   req.FilterNew,
		Store:       req.Store,
		Snapshot:    req.Snapshot,
	}, nil
}

type probeRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) probe(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	urls := cleanURLs(req.URLs)
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "urls required")
		return
	}
	feeds := s.svc.ProbeFeeds(r.Context(), urls)
	if feeds == nil {
		feeds = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"feeds": feeds})
}

func (s *Server) attribute(w http.ResponseWriter, r *http.Request) {
	crawlID := chi.URLParam(r, "crawl_id")
	attr := corpus.Attribute(chi.URLParam(r, "attribute"))

	c, err := s.svc.LoadSnapshot(r.Context(), crawlID)
	if err != nil {
		s.logger.Info("snapshot not loaded", zap.String("crawl_id", crawlID), zap.Error(err))
		writeError(w, http.StatusNotFound, "crawl not found")
		return
	}
	values, err := c.Extract(attr, nil)
	if err != nil {
		if errors.Is(err, corpus.ErrUnknownAttribute) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crawl_id": c.CrawlID(), "attribute": attr, "values": values})
}

func cleanURLs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func boolOrDefault(ptr *bool, def bool) bool {
	if ptr == nil {
		return def
	}
	return *ptr
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("request_id", requestID(r.Context())),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

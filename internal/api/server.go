package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webcheck/internal/api/middleware"
	"github.com/khanhnv2901/webcheck/internal/metrics"
	"github.com/khanhnv2901/webcheck/internal/scan"
	"github.com/khanhnv2901/webcheck/internal/shared/constants"
	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
	"github.com/khanhnv2901/webcheck/internal/web"
)

// ScanService is the scan surface the HTTP API exposes.
type ScanService interface {
	Firewall(ctx context.Context, rawURL string) (*scan.FirewallReport, error)
	Domains(ctx context.Context, domain string) (*scan.DomainsReport, error)
	TLS(ctx context.Context, rawURL string) (*scan.TLSReport, error)
	ServerInfo(ctx context.Context, rawURL string) (*scan.ServerInfo, error)
	Security(ctx context.Context, rawURL string) (*scan.SecurityReport, error)
	Whois(ctx context.Context, domain string) (*scan.WhoisReport, error)
}

type HealthService interface {
	Check(ctx context.Context) error
	Ready(ctx context.Context) error
}

type Config struct {
	Scanner     ScanService
	Health      HealthService
	Assets      fs.FS // Static page; nil disables "/" and "/static/"
	Metrics     *metrics.Metrics
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
	// Proxies whose X-Forwarded-For is believed when keying the rate
	// limiter. Addresses or CIDR ranges; empty trusts nobody.
	TrustedProxies []string
}

// scanRequest accepts both field names so a domain endpoint can be handed
// the raw URL from the form.
type scanRequest struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	handler  http.Handler
	limiters *rateLimiterMap
	proxies  []netip.Prefix
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	proxies, err := ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		cfg.Logger.Warn("ignoring trusted proxies", zap.Error(err))
	}
	srv.proxies = proxies
	srv.routes()
	// RequestID -> AccessLog -> RateLimit -> CORS -> mux (auth is per route)
	srv.handler = middleware.RequestID(
		middleware.AccessLog(cfg.Logger, srv.observe)(
			srv.withRateLimit(srv.withCORS(srv.mux))))
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) routes() {
	s.mux.Handle("/api/scan", s.withAuth(urlHandler(s, s.scanner().Firewall)))
	s.mux.Handle("/api/domains", s.withAuth(domainHandler(s, s.scanner().Domains)))
	s.mux.Handle("/api/tls", s.withAuth(urlHandler(s, s.scanner().TLS)))
	s.mux.Handle("/api/server-info", s.withAuth(urlHandler(s, s.scanner().ServerInfo)))
	s.mux.Handle("/api/security", s.withAuth(urlHandler(s, s.scanner().Security)))
	s.mux.Handle("/api/whois", s.withAuth(domainHandler(s, s.scanner().Whois)))

	s.mux.Handle("/api/health", s.withAuth(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/api/ready", s.withAuth(http.HandlerFunc(s.handleReady)))
	s.mux.Handle("/api/", s.withAuth(http.HandlerFunc(s.handleNotFound)))

	if s.cfg.Metrics != nil {
		s.mux.Handle("/metrics", s.cfg.Metrics.Handler())
	}

	if s.cfg.Assets != nil {
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.cfg.Assets))))
		s.mux.HandleFunc("/", s.handleIndex)
	}
}

func (s *Server) scanner() ScanService {
	if s.cfg.Scanner == nil {
		return unavailableScanner{}
	}
	return s.cfg.Scanner
}

// urlHandler serves a POST {url} endpoint backed by fn.
func urlHandler[T any](s *Server, fn func(context.Context, string) (T, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeScanRequest(w, r)
		if !ok {
			return
		}
		s.respond(w, r, func() (any, error) { return fn(r.Context(), req.URL) })
	})
}

// domainHandler serves a POST {domain} endpoint; {url} is accepted as a fallback.
func domainHandler[T any](s *Server, fn func(context.Context, string) (T, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeScanRequest(w, r)
		if !ok {
			return
		}
		domain := req.Domain
		if domain == "" {
			domain = req.URL
		}
		s.respond(w, r, func() (any, error) { return fn(r.Context(), domain) })
	})
}

func (s *Server) decodeScanRequest(w http.ResponseWriter, r *http.Request) (scanRequest, bool) {
	var req scanRequest
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, r, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		case errors.Is(err, io.EOF):
			s.writeError(w, r, http.StatusBadRequest, errors.New("request body is empty"))
		default:
			s.writeError(w, r, http.StatusBadRequest, errors.New("invalid JSON body"))
		}
		return req, false
	}
	return req, true
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, call func() (any, error)) {
	result, err := call()
	if err != nil {
		s.writeError(w, r, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusForError maps lookup errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperrors.ErrUpstream), errors.Is(err, apperrors.ErrTLSUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Check(r.Context()); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Health != nil {
		if err := s.cfg.Health.Ready(r.Context()); err != nil {
			s.writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.handleNotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.methodNotAllowed(w, r)
		return
	}
	page, err := fs.ReadFile(s.cfg.Assets, web.IndexFile)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(page)
	}
}

// observe feeds the access log into Prometheus with a bounded route label.
func (s *Server) observe(r *http.Request, status int, elapsed time.Duration) {
	s.cfg.Metrics.ObserveHTTP(routeLabel(r.URL.Path), r.Method, status, elapsed)
}

var knownRoutes = map[string]bool{
	"/":                true,
	"/metrics":         true,
	"/api/scan":        true,
	"/api/domains":     true,
	"/api/tls":         true,
	"/api/server-info": true,
	"/api/security":    true,
	"/api/whois":       true,
	"/api/health":      true,
	"/api/ready":       true,
}

func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/"
	}
	return "other"
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowedOrigin := range s.cfg.CORSOrigins {
				if allowedOrigin == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
			if allowOrigin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay in the server log; a plain 500 never leaks its cause.
	if status >= 500 {
		s.requestLogger(r).Error("request_failed",
			zap.Error(err),
			zap.Int("status", status),
		)
		if status == http.StatusInternalServerError {
			msg = "internal server error"
		}
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// unavailableScanner answers every scan with 500 when no service is wired.
type unavailableScanner struct{}

var errNoScanner = errors.New("scan service not configured")

func (unavailableScanner) Firewall(context.Context, string) (*scan.FirewallReport, error) {
	return nil, errNoScanner
}

func (unavailableScanner) Domains(context.Context, string) (*scan.DomainsReport, error) {
	return nil, errNoScanner
}

func (unavailableScanner) TLS(context.Context, string) (*scan.TLSReport, error) {
	return nil, errNoScanner
}

func (unavailableScanner) ServerInfo(context.Context, string) (*scan.ServerInfo, error) {
	return nil, errNoScanner
}

func (unavailableScanner) Security(context.Context, string) (*scan.SecurityReport, error) {
	return nil, errNoScanner
}

func (unavailableScanner) Whois(context.Context, string) (*scan.WhoisReport, error) {
	return nil, errNoScanner
}

package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/consoleauth/internal/rate"
	"github.com/MrEthical07/consoleauth/jwt"
	"github.com/MrEthical07/consoleauth/middleware"
	"github.com/MrEthical07/consoleauth/password"
	"github.com/MrEthical07/consoleauth/permission"
	"github.com/MrEthical07/consoleauth/session"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// Deps are the collaborators of a Server.
type Deps struct {
	Directory *Directory
	Redis     redis.UniversalClient
	Tokens    *jwt.Manager
	Logger    *slog.Logger
}

// Server serves the console API.
type Server struct {
	cfg      Config
	dir      *Directory
	sessions *session.Store
	limiter  *rate.Limiter
	tokens   *jwt.Manager
	hasher   *password.Hasher
	logger   *slog.Logger
	faults   *Faults

	roles atomic.Pointer[permission.RoleManager]
	now   func() time.Time
}

// New validates cfg and wires a Server. Roles are loaded from the directory.
func New(ctx context.Context, cfg Config, deps Deps) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Directory == nil || deps.Redis == nil || deps.Tokens == nil {
		return nil, errors.New("mockapi: directory, redis and token manager are required")
	}
	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:      cfg,
		dir:      deps.Directory,
		sessions: session.NewStore(deps.Redis, cfg.SessionPrefix),
		limiter:  rate.New(deps.Redis, cfg.Rate),
		tokens:   deps.Tokens,
		hasher:   hasher,
		logger:   logger,
		faults:   &Faults{},
		now:      time.Now,
	}
	if err := s.ReloadRoles(ctx); err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return s, nil
}

// Faults returns the fault injector.
func (s *Server) Faults() *Faults {
	return s.faults
}

// Hasher returns the password hasher used for stored credentials.
func (s *Server) Hasher() *password.Hasher {
	return s.hasher
}

// ReloadRoles rebuilds the role table from the directory. Disabled roles
// grant nothing.
func (s *Server) ReloadRoles(ctx context.Context) error {
	roles, err := s.dir.ListRoles(ctx)
	if err != nil {
		return err
	}
	rm := permission.NewRoleManager()
	for _, r := range roles {
		if r.Status != "1" {
			continue
		}
		if err := rm.RegisterRole(r.RoleKey, r.Perms); err != nil {
			s.logger.Warn("skipping role", "role", r.RoleKey, "error", err)
		}
	}
	rm.Freeze()
	s.roles.Store(rm)
	return nil
}

// Resolve implements middleware.RoleResolver over the current role table.
func (s *Server) Resolve(roleKeys ...string) permission.Set {
	return s.roles.Load().Resolve(roleKeys...)
}

// Router returns the chi router for the console API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(s.cfg.MaxBodyBytes))

	r.Get("/healthz", s.health)
	if s.cfg.EnableDevEndpoints {
		r.Route("/__dev", func(r chi.Router) {
			r.Get("/faults", s.getFaults)
			r.Post("/faults", s.setFaults)
			r.Get("/stats", s.stats)
			r.Post("/reset", s.resetFaults)
		})
	}

	mount := func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.login)
			r.Post("/refresh", s.refresh)
			r.Post("/logout", s.logout)
			r.Post("/register", s.register)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.injectUnauthorized)
			if s.cfg.StrictSessions {
				r.Use(middleware.RequireStrict(s.tokens, s.sessions))
			} else {
				r.Use(middleware.RequireJWTOnly(s.tokens))
			}

			r.Get("/getInfo", s.getInfo)
			r.Get("/getRouters", s.getRouters)
			r.Get("/getSideBarMenus", s.getSideBar)
			r.Route("/system", s.systemRoutes)
		})
	}

	if s.cfg.Prefix == "" {
		mount(r)
	} else {
		r.Route(s.cfg.Prefix, mount)
	}
	return r
}

// WithCORS allows browser callers from any origin.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			// Credentialed requests cannot use the "*" wildcard.
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) injectUnauthorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.faults.takeUnauthorized() {
			middleware.WriteError(w, http.StatusUnauthorized, "token expired (injected)")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"sqlite": "ok", "redis": "ok"}
	code := http.StatusOK
	if err := s.dir.Ping(ctx); err != nil {
		status["sqlite"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if _, err := s.sessions.Ping(ctx); err != nil {
		status["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	middleware.WriteJSON(w, code, status)
}

/*
====================================
DEV ENDPOINTS
*/

func (s *Server) getFaults(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteData(w, http.StatusOK, s.faults.Settings())
}

func (s *Server) setFaults(w http.ResponseWriter, r *http.Request) {
	var in FaultSettings
	if !decodeBody(w, r, &in) {
		return
	}
	s.faults.Apply(in)
	s.logger.Info("faults updated", "unauthorized", in.Unauthorized, "refresh_failures", in.RefreshFailures, "refresh_delay_ms", in.RefreshDelayMS)
	middleware.WriteData(w, http.StatusOK, s.faults.Settings())
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteData(w, http.StatusOK, s.faults.Stats())
}

func (s *Server) resetFaults(w http.ResponseWriter, _ *http.Request) {
	s.faults.Reset()
	middleware.WriteData(w, http.StatusOK, s.faults.Settings())
}

/*
====================================
HELPERS
*/

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeBusiness answers 200 with a failure code in the envelope, the way
// the console reports validation and conflict errors.
func writeBusiness(w http.ResponseWriter, code int, message string) {
	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{Code: code, Message: message})
}

// writeStoreError maps directory errors onto envelope replies.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeBusiness(w, http.StatusNotFound, "record not found")
	case errors.Is(err, ErrConflict):
		writeBusiness(w, http.StatusConflict, "record already exists or is still referenced")
	default:
		s.logger.Error("directory", "path", r.URL.Path, "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Command userapp demonstrates how to wire a small layered HTTP service with
// grove. Run it with:
//
//	go run ./cmd/userapp
//
// then request http://localhost:8080/users/1, /metrics or /debug/rules.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ARTM2000/grove"
	"github.com/ARTM2000/grove/grovehttp"
	"github.com/ARTM2000/grove/metrics"
)

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

type Config struct {
	Env         string
	Addr        string
	DatabaseURL string
}

type Database struct {
	URL   string
	log   *zap.Logger
	users map[int]string
}

func (db *Database) Find(id int) (string, bool) {
	db.log.Debug("query", zap.String("table", "users"), zap.Int("id", id))
	name, ok := db.users[id]
	return name, ok
}

// Seed is called by the container after the database is built.
func (db *Database) Seed(names ...string) {
	for i, n := range names {
		db.users[i+1] = n
	}
}

// RequestInfo is shared by every object built for one HTTP request.
type RequestInfo struct {
	ID     string
	Method string
	Path   string
}

type UserRepository struct {
	DB *Database
}

type UserService struct {
	Repo *UserRepository
	Info *RequestInfo
	log  *zap.Logger
}

func (s *UserService) Get(id int) (string, error) {
	s.log.Info("looking up user", zap.Int("user", id), zap.String("request", s.Info.ID))
	name, ok := s.Repo.DB.Find(id)
	if !ok {
		return "", fmt.Errorf("user %d not found", id)
	}
	return name, nil
}

// ShowUser is built once per request by grovehttp.
type ShowUser struct {
	Users *UserService
	Info  *RequestInfo
	r     *http.Request
}

func (h *ShowUser) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(h.r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}

	name, err := h.Users.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error(), "request": h.Info.ID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "name": name, "request": h.Info.ID})
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func NewConfig() *Config {
	return &Config{
		Env:         env("APP_ENV", "local"),
		Addr:        env("APP_ADDR", ":8080"),
		DatabaseURL: env("DATABASE_URL", "memory://users"),
	}
}

func NewDatabase(cfg *Config, log *zap.Logger) *Database {
	return &Database{URL: cfg.DatabaseURL, log: log, users: make(map[int]string)}
}

func NewRequestInfo(r *http.Request) *RequestInfo {
	return &RequestInfo{ID: uuid.NewString(), Method: r.Method, Path: r.URL.Path}
}

func NewUserRepository(db *Database) *UserRepository {
	return &UserRepository{DB: db}
}

func NewUserService(repo *UserRepository, info *RequestInfo, log *zap.Logger) *UserService {
	return &UserService{Repo: repo, Info: info, log: log}
}

func NewShowUser(users *UserService, info *RequestInfo, r *http.Request) *ShowUser {
	return &ShowUser{Users: users, Info: info, r: r}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(appEnv string) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if appEnv == "production" {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		// Fallback to development logger
		log, _ = zap.NewDevelopment()
	}
	return log
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

type ruleView struct {
	Shared          bool     `json:"shared"`
	InstanceOf      string   `json:"instance_of,omitempty"`
	ConstructParams []string `json:"construct_params,omitempty"`
	ShareInstances  []string `json:"share_instances,omitempty"`
	Calls           []string `json:"calls,omitempty"`
}

func describe(r grove.Rule) ruleView {
	v := ruleView{Shared: r.IsShared(), ShareInstances: r.ShareInstances.V}
	if r.InstanceOf.Set {
		v.InstanceOf = r.InstanceOf.V.ID
		if r.InstanceOf.V.Factory != nil {
			v.InstanceOf = "factory"
		}
	}
	for _, p := range r.ConstructParams.V {
		v.ConstructParams = append(v.ConstructParams, p.String())
	}
	for _, c := range r.Calls.V {
		v.Calls = append(v.Calls, c.Method)
	}
	return v
}

func rulesHandler(c *grove.Container, ids []string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := make(map[string]ruleView, len(ids))
		for _, id := range ids {
			out[id] = describe(c.GetRule(id))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

// newRouter wires the container and returns the application's routes.
func newRouter(cfg *Config, log *zap.Logger) (chi.Router, error) {
	reg := grove.NewRegistry()
	for _, ctor := range []any{
		func() *Config { return cfg },
		NewDatabase,
		NewRequestInfo,
		NewUserRepository,
		NewUserService,
		NewShowUser,
	} {
		if err := reg.Provide(ctor); err != nil {
			return nil, fmt.Errorf("registering constructor: %w", err)
		}
	}

	m := metrics.NewCollector("userapp")
	c := grove.New(reg, grove.WithLogger(log.Named("grove")), grove.WithObserver(m))

	c.AddRule(grove.ID[*Config](), grove.Shared(true))
	c.AddRule(grove.ID[*zap.Logger](), grove.Shared(true), grove.InstanceOfFactory(func(*grove.Container) (any, error) {
		return log, nil
	}))
	c.AddRule(grove.ID[*Database](), grove.Shared(true), grove.CallMethod("Seed", "ada", "grace", "linus"))
	c.AddRule(grove.ID[*ShowUser](), grove.ShareInstances(grove.ID[*RequestInfo]()))

	adapter := grovehttp.New(c, grovehttp.WithLogger(log))

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Method(http.MethodGet, "/users/{id}", adapter.Handler(grove.ID[*ShowUser]()))
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	router.Get("/debug/rules", rulesHandler(c, []string{
		grove.ID[*Config](),
		grove.ID[*Database](),
		grove.ID[*UserService](),
		grove.ID[*ShowUser](),
	}))
	return router, nil
}

func main() {
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load()

	cfg := NewConfig()
	log := newLogger(cfg.Env)
	defer func() { _ = log.Sync() }()

	router, err := newRouter(cfg, log)
	if err != nil {
		log.Fatal("wiring application", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"scanx/config"
	"scanx/internal/agent"
	"scanx/internal/auth"
	"scanx/internal/db"
	"scanx/internal/devices"
	"scanx/internal/directory"
	"scanx/internal/health"
	"scanx/internal/ingest"
	"scanx/internal/logs"
	"scanx/internal/middleware"
	"scanx/internal/repo"
	"scanx/internal/users"
)

const serviceName = "scanx"

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	syncer     *directory.Syncer

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB + схема */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		logs.Logger.Fatalf("db open failed: %v", err)
	}
	if err := db.Migrate(d); err != nil {
		logs.Logger.Fatalf("db migrate failed: %v", err)
	}
	a.db = d

	/* 3) Хранилища и сервисы */
	deviceStore := repo.NewDeviceStore(a.db)
	userStore := repo.NewUserStore(a.db)
	adminStore := repo.NewAdminStore(a.db)

	tokens := auth.NewTokens(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
	gate := auth.Gate(tokens, a.cfg.Auth.CookieName)
	authH := auth.NewHandler(adminStore, auth.NewHasher(a.cfg.Auth.BcryptCost), tokens, auth.CookieOptions{
		Name:   a.cfg.Auth.CookieName,
		Secure: a.cfg.Server.CookieSecure,
	})
	agentH := agent.New(ingest.NewService(deviceStore, userStore))
	devicesH := devices.NewHandler(deviceStore)
	usersH := users.NewHandler(userStore)

	/* 4) Router + middleware */
	a.Router = mux.NewRouter()
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	health.RegisterRoutesWithDB(a.Router, serviceName, a.db) // /, /healthz, /readyz

	// API доступно и от корня, и под /api (пути дашборда)
	mount := func(r *mux.Router, legacy bool) {
		agent.RegisterRoutes(r, agentH, legacy) // до /devices: без авторизации
		auth.RegisterRoutes(r, authH, gate)
		devices.RegisterRoutes(r, devicesH, gate)
		users.RegisterRoutes(r, usersH, gate)
	}
	mount(a.Router.PathPrefix("/api").Subrouter(), true)
	mount(a.Router, false)

	a.handler = middleware.CORS(a.cfg.Server.CORSOrigins)(a.Router)

	/* 5) Синхронизация каталога */
	src, err := directory.NewSource(context.Background(), directory.Options{
		Source:   a.cfg.Directory.Source,
		FilePath: a.cfg.Directory.FilePath,
		Google: directory.GoogleOptions{
			KeyFile:    a.cfg.Directory.Google.KeyFile,
			AdminEmail: a.cfg.Directory.Google.AdminEmail,
			Customer:   a.cfg.Directory.Google.Customer,
		},
	})
	if err != nil {
		logs.Logger.Warnf("users sync disabled: %v", err)
	} else {
		a.syncer = directory.NewSyncer(src, userStore, a.cfg.Directory.Interval)
	}

	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := rt.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		logs.Logger.Debugf("route: %-6v %s", methods, path)
		return nil
	})
}

// Handler: корневой обработчик (CORS поверх роутера).
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	defer a.cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	if a.syncer != nil {
		go a.syncer.Run(a.ctx)
		logs.Logger.Infof("users sync scheduler started (every %s)", a.cfg.Directory.Interval)
	}

	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GooseOb/pai2024/internal/config"
	"github.com/GooseOb/pai2024/internal/database"
	"github.com/GooseOb/pai2024/internal/notify"
	"github.com/GooseOb/pai2024/internal/router"
	"github.com/GooseOb/pai2024/internal/service"
	"github.com/GooseOb/pai2024/internal/session"
	"github.com/GooseOb/pai2024/internal/store"
	"github.com/GooseOb/pai2024/internal/util"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "config.json", "configuration file (json, yaml or toml)")
	flag.Parse()

	// load configuration; a missing or broken file only means defaults
	cfg, err := config.Load(*configPath)
	if cfg == nil {
		log.Fatalf("load config: %v", err)
	}
	if err != nil {
		log.Printf("using default configuration: %v", err)
	} else {
		log.Printf("configuration loaded from %s", *configPath)
	}

	if cfg.Session.Secret == "" {
		secret, err := util.RandomString(32)
		if err != nil {
			log.Fatalf("generate session secret: %v", err)
		}
		cfg.Session.Secret = secret
		log.Println("session.secret not set, sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init database; unreachable store is fatal
	log.Println("connecting to database...")
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	log.Println("database connection established")

	sessions, err := openSessionStore(cfg, db)
	if err != nil {
		log.Fatalf("session store: %v", err)
	}

	hub := notify.NewHub()
	persons := service.NewPersonService(db.Persons(), cfg.Security.BcryptCost)
	projects := service.NewProjectService(db.Projects(), db.Tasks(), hub)
	tasks := service.NewTaskService(db.Tasks(), projects, hub)
	auth := service.NewAuthService(persons, session.NewManager(sessions, cfg.Session.Secret, cfg.Session.TTL()))

	created, err := persons.EnsureAdmin(ctx, cfg.Bootstrap.Login, cfg.Bootstrap.Password)
	if err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}
	if created {
		log.Printf("created admin %q", cfg.Bootstrap.Login)
	}

	r := router.SetupRouter(cfg, router.Deps{
		Store:    db,
		Auth:     auth,
		Persons:  persons,
		Projects: projects,
		Tasks:    tasks,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           r,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := sessions.Close(); err != nil {
		log.Printf("close session store: %v", err)
	}
	if err := db.Close(shutdownCtx); err != nil {
		log.Printf("close database: %v", err)
	}
}

func openSessionStore(cfg *config.Config, db store.Store) (session.Store, error) {
	switch cfg.Session.Store {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "database":
		return session.NewRepositoryStore(db.Sessions()), nil
	case "redis":
		rdb := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis at %s: %w", cfg.Redis.Addr, err)
		}
		return session.NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unknown session store %q (want memory, database or redis)", cfg.Session.Store)
	}
}

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harlequingg/project-tracker/internal/auth"
	"github.com/harlequingg/project-tracker/internal/config"
	"github.com/harlequingg/project-tracker/internal/store"
	"github.com/harlequingg/project-tracker/internal/tracker"
)

const version = "1.0.0"

type application struct {
	config  *config.Config
	service *tracker.Service
	mailer  mailSender
	logger  *log.Logger
	wg      sync.WaitGroup
}

func main() {
	logger := log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)

	var (
		configPath string
		port       int
		env        string
		reconcile  bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("TRACKER_CONFIG"), "Path to YAML config file")
	flag.IntVar(&port, "port", 0, "Server port (overrides config)")
	flag.StringVar(&env, "env", "", "Environment [development|staging|production] (overrides config)")
	flag.BoolVar(&reconcile, "reconcile", false, "Repair orphaned tasks, task lists, progress and project counts before serving")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if port != 0 {
		cfg.Port = port
	}
	if env != "" {
		cfg.Env = env
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	if cfg.JWT.Secret == "" {
		secret := make([]byte, 32)
		_, err = rand.Read(secret)
		if err != nil {
			logger.Fatal(err)
		}
		cfg.JWT.Secret = string(secret)
		logger.Println("no jwt secret configured; tokens will not survive a restart")
	}

	st, err := store.Open(store.DBConfig{
		Driver:       cfg.DB.Driver,
		DSN:          cfg.DB.DSN,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxIdleTime:  cfg.DB.MaxIdleTime,
	})
	if err != nil {
		logger.Fatal(err)
	}
	logger.Printf("established a connection with %s database", cfg.DB.Driver)

	app := &application{
		config:  cfg,
		service: tracker.New(st, auth.NewTokens([]byte(cfg.JWT.Secret), cfg.JWT.TTL), logger),
		logger:  logger,
	}
	if cfg.SMTP.Host != "" {
		app.mailer = newMailer(cfg.SMTP)
	}

	if reconcile || cfg.ReconcileOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		_, err := app.service.Reconcile(ctx)
		cancel()
		if err != nil {
			st.Close()
			logger.Fatal(err)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      composeRoutes(app),
		ErrorLog:     logger,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger.Printf("Starting %s server on port %d\n", cfg.Env, cfg.Port)
	err = app.serve(ctx, srv)
	stop()
	if cerr := st.Close(); cerr != nil {
		logger.Printf("closing store: %v", cerr)
	}
	if err != nil {
		logger.Fatal(err)
	}
	logger.Println("server stopped")
}

// serve runs srv until ctx is done, then shuts it down gracefully and
// waits for background work. A listen failure is returned as is.
func (app *application) serve(ctx context.Context, srv *http.Server) error {
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		app.wg.Wait()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if lerr := <-listenErr; !errors.Is(lerr, http.ErrServerClosed) && err == nil {
		err = lerr
	}
	app.wg.Wait()
	return err
}

// background runs fn in its own goroutine, recovering any panic.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Printf("background task panic: %v", err)
			}
		}()
		fn()
	}()
}

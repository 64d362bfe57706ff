package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"UserManagerService/config"
	"UserManagerService/handlers"
	"UserManagerService/store"
	"UserManagerService/validation"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST gateway",
	Long: `Run the REST gateway over a JSON document.

The document is created with an empty "users" collection when it does not
exist. Every other top-level array in it is served under /api as well.

Examples:
  usermanager serve
  usermanager serve --port 8080 --db /var/lib/usermanager/db.json
  usermanager serve --static ./build`,
	RunE: runServe,
}

var (
	servePort   string
	serveDB     string
	serveStatic string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "Port or host:port to listen on (overrides PORT)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Path of the JSON document (overrides DB_FILE)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "Directory served for unmatched GET requests (overrides STATIC_DIR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(c *config.Config) {
		if cmd.Flags().Changed("port") {
			c.Port = servePort
		}
		if cmd.Flags().Changed("db") {
			c.DBFile = serveDB
		}
		if cmd.Flags().Changed("static") {
			c.StaticDir = serveStatic
		}
	})
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	s, err := store.Open(cfg.DBFile, []string{"users"})
	if err != nil {
		log.WithFields(logrus.Fields{"operation": "open store", "file": cfg.DBFile}).Error(err.Error())
		return err
	}
	resources, err := s.Resources(cmd.Context())
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"file": cfg.DBFile, "resources": resources}).Info("document loaded")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gin.SetMode(gin.ReleaseMode)
	router, err := handlers.NewRouter(handlers.Options{
		Store:     s,
		Schemas:   map[string]*validation.Schema{"users": validation.Users()},
		Logger:    log,
		Registry:  reg,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		StaticDir: cfg.StaticDir,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "file": s.Path()}).Info("Server listening on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithFields(logrus.Fields{"operation": "serve"}).Error(err.Error())
		return err
	}
	log.Info("server stopped")
	return nil
}

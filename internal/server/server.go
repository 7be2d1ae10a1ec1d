// Package server exposes the REST and real-time surface of Questboard.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rowanvale/questboard/internal/notify"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB       *gorm.DB
	Port     int
	Resolver TokenResolver
	Hub      *notify.Hub
	Gateway  notify.Gateway // defaults to the hub alone
	Out      io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Resolver == nil {
		return fmt.Errorf("server: token resolver is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.Hub == nil {
		opts.Hub = notify.NewHub()
	}
	if opts.Gateway == nil {
		opts.Gateway = opts.Hub
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts.DB, opts.Resolver, opts.Hub, opts.Gateway)

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Questboard API listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the Gin engine with all routes registered.
func NewRouter(gdb *gorm.DB, resolver TokenResolver, hub *notify.Hub, gateway notify.Gateway) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, gdb, resolver, hub, gateway)
	return router
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	vmcctl "github.com/wagiedev/vmcctl"
)

var startedAt = time.Now()

// newRouter exposes health, metrics and tracker liveness over HTTP.
func newRouter(client vmcctl.Client, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		if client.Status() != vmcctl.StatusConnected {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":  client.Status().String(),
			"uptime":  time.Since(startedAt).String(),
			"service": "vmcctl",
			"version": version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/trackers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"active": client.ActiveTrackers(),
		})
	})

	r.GET("/trackers/:serial", func(c *gin.Context) {
		serial := c.Param("serial")
		c.JSON(http.StatusOK, gin.H{
			"serial": serial,
			"active": client.IsTrackerActive(serial),
		})
	})

	return r
}

// serveMetrics runs the HTTP surface on addr until ctx is cancelled.
func serveMetrics(ctx context.Context, log *slog.Logger, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "address", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smartschoolbus/tracker/internal/metrics"
)

type HTTPServer struct {
	srv *http.Server
}

// StartHTTP serves the gateway websocket route plus health and metrics
// endpoints, and shuts down when ctx ends.
func StartHTTP(ctx context.Context, addr string, database *sql.DB, ws gin.HandlerFunc, log *zap.Logger) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		pctx, cancel := context.WithTimeout(c.Request.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := database.PingContext(pctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db not ok: %v", err)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		c.String(http.StatusOK, "ok")
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", ws)

	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &HTTPServer{srv: srv}
}

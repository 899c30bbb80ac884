package servehttp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/account"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/entity/entityrest"
	"github.com/assujiar/ugc-business-command-portal-sub003/indices"
	"github.com/assujiar/ugc-business-command-portal-sub003/infra/metrics"
	"github.com/assujiar/ugc-business-command-portal-sub003/infra/tracing"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BuildEngine wires every REST API behind the token filter and the per-request role resolution.
// Health and metrics stay unauthenticated.
func BuildEngine(m *metrics.Metrics) *gin.Engine {
	engine := gin.New()
	engine.Use(
		gin.LoggerWithWriter(logrus.StandardLogger().WriterLevel(logrus.InfoLevel)),
		common.Correlation(),
		tracing.TracingIngress(),
		bizerror.ErrorHandling(),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": common.GetServiceName()})
	})
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	auth := []gin.HandlerFunc{session.SimpleAuthFilter(), account.ActorFilter()}
	RegisterWorkflowsRestAPI(engine, auth...)
	entityrest.RegisterEntitiesRestAPI(engine, auth...)
	account.RegisterAccountsRestAPI(engine, auth...)
	indices.RegisterIndicesRestAPI(engine, auth...)
	return engine
}

// StartHTTPServer serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains in-flight requests
// for at most shutdownTimeout.
func StartHTTPServer(ctx context.Context, addr string, engine http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, failed := <-serveErr:
		if failed {
			return err
		}
		return nil
	case <-quit:
		logrus.Info("[QUIT] shutdown signal has been received")
	case <-ctx.Done():
		logrus.Info("[QUIT] context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logrus.Info("[QUIT] http server is shutdown gracefully, new request will be rejected.")
	return nil
}

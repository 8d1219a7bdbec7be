package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/psds-microservice/mentor-queue/internal/config"
	"github.com/psds-microservice/mentor-queue/internal/handler"
	"github.com/psds-microservice/mentor-queue/internal/router"
)

// API приложение: HTTP-сервер очереди (режим api).
type API struct {
	cfg     *config.Config
	log     *logrus.Logger
	stack   *Stack
	httpSrv *http.Server
}

// NewAPI создаёт приложение для режима api.
func NewAPI(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*API, error) {
	stack, err := Build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := router.New(router.Deps{
		Sessions: stack.Auth,
		Session:  handler.NewSessionHandler(stack.Auth, stack.Service, log),
		Tickets:  handler.NewTicketHandler(stack.Service),
		Presence: handler.NewPresenceHandler(stack.Service),
		Stream:   handler.NewStreamHandler(stack.Facade),
		Settings: handler.NewSettingsHandler(stack.Facade),
		Ready:    stack.Ready,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// WriteTimeout не задан: /api/v1/stream держит соединение открытым.
		IdleTimeout: 60 * time.Second,
	}

	return &API{cfg: cfg, log: log, stack: stack, httpSrv: httpSrv}, nil
}

// Run запускает HTTP-сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	a.log.Infof("HTTP server listening on %s", a.httpSrv.Addr)
	a.log.Infof("  Swagger UI:    %s/swagger", base)
	a.log.Infof("  Swagger spec:  %s/swagger/openapi.json", base)
	a.log.Infof("  Health:        %s/health", base)
	a.log.Infof("  Ready:         %s/ready", base)
	a.log.Infof("  API v1:        %s/api/v1/", base)
	a.log.Infof("  Events:        %s/api/v1/stream", base)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	if err := a.stack.Close(); err != nil {
		a.log.WithError(err).Warn("shutdown: close resources")
	}
	return runErr
}

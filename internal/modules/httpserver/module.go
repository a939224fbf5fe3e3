package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"options_analyzer/internal/modules/config"
	"options_analyzer/internal/modules/httpserver/service"
	"options_analyzer/internal/runner"
	"options_analyzer/pkg/logger"

	"go.uber.org/fx"
)

// RunHTTP starts the public API server and the admin (probes, metrics) server.
func RunHTTP(lc fx.Lifecycle, cfg *config.Config, api *service.API, state *service.State) {
	servers := []*http.Server{
		newServer(cfg.Service.Host, cfg.Service.PublicPort, service.NewPublicRouter(api)),
		newServer(cfg.Service.Host, cfg.Service.AdminPort, service.NewAdminRouter(state)),
	}

	for _, srv := range servers {
		srv := srv
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return fmt.Errorf("listen %s: %w", srv.Addr, err)
				}
				logger.Info("[HTTP] listening on %s", srv.Addr)
				go func() {
					if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
						logger.Error("[HTTP] serve %s: %v", srv.Addr, err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})
	}
}

func newServer(host string, port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(host, fmt.Sprint(port)),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func Module() fx.Option {
	return fx.Module("httpserver",
		fx.Provide(
			service.NewState,
			func(a *runner.Analyzer) service.Analyzer {
				return a
			},
			service.NewAPI,
		),
		fx.Invoke(RunHTTP),
	)
}

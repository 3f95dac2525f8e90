package server

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/gemini-chat/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Run serves handler on cfg.Addr until ctx is cancelled, then shuts down
// gracefully. Background tasks run alongside and stop with ctx.
func Run(ctx context.Context, cfg config.ServerConfig, handler http.Handler, background ...func(context.Context)) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return serve(ctx, srv, background...)
}

func serve(ctx context.Context, srv *http.Server, background ...func(context.Context)) error {
	eg, egCtx := errgroup.WithContext(ctx)

	for _, task := range background {
		eg.Go(func() error {
			task(egCtx)
			return nil
		})
	}

	eg.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("chat server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		log.Info().Msg("chat server stopped")
		return nil
	})

	return eg.Wait()
}

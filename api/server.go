package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/sync/errgroup"
)

// ListenAndServe serves until ctx is done or one of the servers fails to
// listen. All servers are then shut down together, with shutdownTimeout for
// in-flight requests to complete. The first listen failure is returned.
func ListenAndServe(ctx context.Context, shutdownTimeout time.Duration, servers ...*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			logs.WithTag("addr", srv.Addr).Info("server listening")

			err := srv.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				return errors.New("server stopped").
					WithTag("addr", srv.Addr).
					Wrap(err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		logs.WithTag("timeout", shutdownTimeout.String()).
			WithTag("servers", len(servers)).
			Info("shutting down")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(sctx); err != nil {
				logs.Warn(errors.New("shutting down the server failed").
					WithTag("addr", srv.Addr).
					Wrap(err))
			}
		}
		return nil
	})

	return g.Wait()
}

// MetricsPathFormatter groups request metrics by route template. Rejected
// requests are not recorded.
func MetricsPathFormatter(statusCode int, path string) string {
	switch statusCode {
	case http.StatusMovedPermanently,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusMethodNotAllowed:
		return ""
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 1 && segments[0] == "maps" {
		segments[1] = "{map_id}"
	}
	return "/" + strings.Join(segments, "/")
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// recoveryLogger reports handler panics caught by handlers.RecoveryHandler.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	logs.WithTag("panic", fmt.Sprint(v...)).
		Error(errors.New("handler panicked"))
}

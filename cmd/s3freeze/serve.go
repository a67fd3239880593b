package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCommand serves the live site, eg to check pages before exporting.
func NewServeCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := zap.L().Named("serve")
			s := newSite(v, l, nil)
			if s.SendQuote == nil {
				l.Warn("no mail transport configured, quote requests will be rejected")
			}

			srv := &http.Server{
				Handler:           withLogger(s, l),
				Addr:              addressFlag(v),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			l.Info("serving site", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	addContentRootFlag(flags, v)
	addTemplatesFlag(flags, v)
	addStaticRootFlag(flags, v)
	addAddressFlag(flags, v)

	return cmd
}

func withLogger(handler http.Handler, l *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// pass the handler to httpsnoop to get http status and latency
		m := httpsnoop.CaptureMetrics(handler, w, r)
		l.Info("http",
			zap.Int("code", m.Code),
			zap.Duration("duration", m.Duration),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
	})
}

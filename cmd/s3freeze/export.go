package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/panyam/s3freeze"
	"github.com/panyam/s3freeze/metrics"
	"github.com/panyam/s3freeze/site"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func NewExportCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render every exportable route of the site into a static tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := zap.L().Named("export")
			cfg, err := loadExportConfig(v)
			if err != nil {
				return err
			}
			s := newSite(v, l, cfg)
			exportConfig(v, cfg, s, l)
			exp, err := s3freeze.NewExporter(cfg)
			if err != nil {
				return err
			}
			logPhases(exp.Hooks, l)

			ctx, err := exp.Run()
			if err != nil {
				return err
			}
			if err := afterRun(cmd.Context(), v, ctx, l); err != nil {
				return err
			}
			if !watchFlag(v) {
				if strictFlag(v) {
					return ctx.Report.Err()
				}
				return nil
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			w := s3freeze.NewWatcher(exp, append([]string{s.ContentRoot, cfg.StaticRoot}, s.TemplateFolders...)...)
			w.OnRebuild = func(ctx *s3freeze.ExportContext, changed []string, err error) {
				if err != nil {
					return
				}
				if err := afterRun(sigCtx, v, ctx, l); err != nil {
					l.Error("post export step failed", zap.Error(err))
				}
			}
			return w.Run(sigCtx)
		},
	}

	flags := cmd.Flags()
	addContentRootFlag(flags, v)
	addTemplatesFlag(flags, v)
	addStaticRootFlag(flags, v)
	addOutputFlag(flags, v)
	addConfigFlag(flags, v)
	addRunLogFlag(flags, v)
	addSummaryFlag(flags, v)
	addMetricsFileFlag(flags, v)
	addStrictFlag(flags, v)
	addWatchFlag(flags, v)
	addPublishBucketFlag(flags, v)
	addPublishPrefixFlag(flags, v)

	return cmd
}

// newSite builds the live site from flags.  A non nil cfg overrides where
// static files live and are served from, so the site and the exporter
// always agree on the static tree.
func newSite(v *viper.Viper, l *zap.Logger, cfg *s3freeze.Config) *site.Site {
	s := &site.Site{
		ContentRoot:     contentRootFlag(v),
		TemplateFolders: templatesFlag(v),
		StaticRoot:      staticRootFlag(v),
		Logger:          l.Named("site"),
	}
	if cfg != nil {
		if cfg.StaticRoot != "" {
			s.StaticRoot = cfg.StaticRoot
		}
		if cfg.StaticPrefix != "" {
			s.StaticPrefix = "/" + strings.Trim(cfg.StaticPrefix, "/")
		}
	}
	return s.Init()
}

// loadExportConfig reads the config file, if any, and applies the output flag.
func loadExportConfig(v *viper.Viper) (*s3freeze.Config, error) {
	cfg := &s3freeze.Config{}
	if path := configFlag(v); path != "" {
		if err := s3freeze.LoadConfig(path, cfg); err != nil {
			return nil, err
		}
	}
	if out := outputFlag(v); out != "" {
		cfg.OutputDir = out
	}
	return cfg, nil
}

// exportConfig completes cfg from the site it exports.
func exportConfig(v *viper.Viper, cfg *s3freeze.Config, s *site.Site, l *zap.Logger) {
	cfg.StaticRoot = s.StaticRoot
	cfg.StaticPrefix = s.StaticPrefix
	cfg.Routes = s3freeze.MuxRoutes(s.GetRouter())
	cfg.Handler = s
	cfg.Logger = l
	cfg.Init()

	if runLog := runLogFlag(v); runLog != "" {
		cfg.RunLog = runLog
	} else if cfg.RunLog == "" {
		// next to the tree, not inside it, so repeated runs stay identical
		cfg.RunLog = filepath.Clean(cfg.OutputDir) + ".log"
	}
}

func logPhases(hooks *s3freeze.HookRegistry, l *zap.Logger) {
	var started time.Time
	for _, phase := range []s3freeze.ExportPhase{
		s3freeze.PhaseInit, s3freeze.PhaseAssetSweep, s3freeze.PhaseRouteRender, s3freeze.PhaseDone,
	} {
		hooks.OnPhaseStart(phase, func(*s3freeze.ExportContext) {
			started = time.Now()
		})
		hooks.OnPhaseEnd(phase, func(ctx *s3freeze.ExportContext) {
			l.Debug("phase finished", zap.Stringer("phase", ctx.CurrentPhase), zap.Duration("took", time.Since(started)))
		})
	}
	hooks.OnPageWritten(func(_ *s3freeze.ExportContext, page s3freeze.PageResult) {
		l.Info("exported", zap.String("route", page.Route.Pattern), zap.String("file", page.Output))
	})
}

// afterRun writes the optional artefacts of a finished run.
func afterRun(ctx context.Context, v *viper.Viper, ectx *s3freeze.ExportContext, l *zap.Logger) error {
	if path := summaryFlag(v); path != "" {
		if err := ectx.Report.SaveJSON(path); err != nil {
			return errors.Wrap(err, "writing summary")
		}
	}
	if path := metricsFileFlag(v); path != "" {
		if err := metrics.WriteFile(path); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	if bucket := publishBucketFlag(v); bucket != "" {
		p, err := s3freeze.OpenPublisher(ctx, bucket, publishPrefixFlag(v), l)
		if err != nil {
			return err
		}
		defer p.Close()
		if _, err := p.Publish(ctx, ectx.Config.OutputDir); err != nil {
			return err
		}
	}
	return nil
}

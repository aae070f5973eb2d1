package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"tableflip.dev/jot/pkg/blob"
	"tableflip.dev/jot/pkg/config"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/logging"
	"tableflip.dev/jot/pkg/metrics"
	"tableflip.dev/jot/pkg/remote"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/store"
)

var errNoOwner = errors.New("no owner configured; set owner in .jot.yaml, JOT_OWNER or --owner")

// loadEnv resolves configuration into the collaborators runners need. The
// returned func releases them.
func loadEnv(v *viper.Viper, kind item.Kind, requireOwner bool) (*runner.Env, func(), error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}

	owner, ok := cfg.Auth().Owner()
	if !ok && requireOwner {
		return nil, nil, errNoOwner
	}
	if ok && !cfg.Auth().Verified() {
		log.Info("account not verified", zap.String("owner", owner))
	}

	lang, err := language.Parse(cfg.Language)
	if err != nil {
		return nil, nil, fmt.Errorf("config: language %q: %w", cfg.Language, err)
	}

	p, err := store.Load(cfg, store.WithLogger(log.Named("store")))
	if err != nil {
		return nil, nil, err
	}
	blobs, err := blob.NewLocal(cfg.BlobPath())
	if err != nil {
		_ = p.Close()
		return nil, nil, err
	}

	m := metrics.Default()
	stopMetrics := serveMetrics(cfg.Metrics.Addr, log)

	client := remote.New(kind, p,
		remote.WithLogger(log),
		remote.WithBlobs(blobs),
		remote.WithMetrics(m),
	)
	env := &runner.Env{
		Owner:    owner,
		Client:   client,
		Blobs:    blobs,
		Locator:  cfg.Locator(),
		Log:      log,
		Metrics:  m,
		Language: lang,
	}
	cleanup := func() {
		stopMetrics()
		if err := p.Close(); err != nil {
			log.Warn("closing store", zap.Error(err))
		}
		_ = log.Sync()
	}
	return env, cleanup, nil
}

// serveMetrics exposes the default Prometheus registry on addr until the
// returned func is called. An empty addr serves nothing.
func serveMetrics(addr string, log *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

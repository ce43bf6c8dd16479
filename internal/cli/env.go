// Package cli holds the state shared by the deppy-fd commands: the loaded
// configuration, the logger and the observability hooks installed for one
// invocation.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/operator-framework/deppy-fd/internal/config"
	"github.com/operator-framework/deppy-fd/internal/logging"
	"github.com/operator-framework/deppy-fd/internal/metrics"
	"github.com/operator-framework/deppy-fd/internal/telemetry"
	"github.com/operator-framework/deppy-fd/pkg/cp"
	"github.com/operator-framework/deppy-fd/pkg/cp/search"
)

// Env is filled from the global flags before a command runs.
type Env struct {
	Version    string
	ConfigPath string
	Trace      bool
	Metrics    bool

	Config *config.Config
	Log    logr.Logger

	registry *prometheus.Registry
	monitor  *metrics.Monitor
	shutdown func(context.Context) error
}

// Start loads the configuration and installs logging, tracing and metrics.
// Spans and exported metrics go to out, logs to errOut.
func (e *Env) Start(ctx context.Context, out, errOut io.Writer) error {
	cfg, err := config.Load(e.ConfigPath)
	if err != nil {
		return err
	}
	e.Config = cfg
	e.Log = logging.New(cfg.Log, errOut)

	tcfg := telemetry.Config{Version: e.Version}
	if e.Trace || cfg.Telemetry.Trace {
		tcfg.Spans, tcfg.Metrics = out, out
	}
	if e.Metrics || cfg.Telemetry.Metrics {
		e.registry = prometheus.NewRegistry()
		e.monitor = metrics.NewMonitor(e.registry)
		tcfg.Registerer = e.registry
	}
	if tcfg.Spans != nil || tcfg.Registerer != nil {
		e.shutdown, err = telemetry.Setup(ctx, tcfg)
		if err != nil {
			return err
		}
	}
	return nil
}

// NetworkOptions returns the options of every network built by a command.
func (e *Env) NetworkOptions() []cp.Option {
	return []cp.Option{cp.WithLogger(e.Log.WithName("network"))}
}

// SearchOptions returns the configured search options followed by extra.
func (e *Env) SearchOptions(extra ...search.Option) []search.Option {
	opts := []search.Option{search.WithLogger(e.Log.WithName("search"))}
	if e.Config != nil {
		opts = append(opts, e.Config.Search.Options()...)
	}
	if e.monitor != nil {
		opts = append(opts, search.WithMonitor(e.monitor))
	}
	return append(opts, extra...)
}

// SATBackend returns the oracle selected for cross-checks.
func (e *Env) SATBackend() string {
	if e.Config == nil {
		return ""
	}
	return e.Config.Telemetry.SATBackend
}

// Finish flushes spans and prints the gathered metrics to out.
func (e *Env) Finish(ctx context.Context, out io.Writer) error {
	var errs []error
	if e.registry != nil {
		errs = append(errs, metrics.Dump(out, e.registry))
	}
	if e.shutdown != nil {
		errs = append(errs, e.shutdown(ctx))
		e.shutdown = nil
	}
	return errors.Join(errs...)
}

// Package metrics exposes playback counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// Play registration results.
const (
	ResultOK         = "ok"
	ResultCorrected  = "corrected"
	ResultFailed     = "failed"
	ResultSuperseded = "superseded" // reply to an older registration
)

// Metrics holds the collectors on a private registry, so several instances
// can live in one process (tests, mostly).
type Metrics struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	resolutionFailures prometheus.Counter
	playRegistrations  *prometheus.CounterVec
	playbackErrors     *prometheus.CounterVec
	handlerPanics      *prometheus.CounterVec
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodia_transitions_total",
				Help: "Track transitions by reason",
			},
			[]string{"reason"},
		),
		resolutionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "melodia_resolution_failures_total",
				Help: "Selections that could not be resolved",
			},
		),
		playRegistrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodia_play_registrations_total",
				Help: "Remote play registrations by result",
			},
			[]string{"result"},
		),
		playbackErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodia_playback_errors_total",
				Help: "Audio load and start failures by operation",
			},
			[]string{"op"},
		),
		handlerPanics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melodia_event_handler_panics_total",
				Help: "Recovered event handler panics by event type",
			},
			[]string{"event_type"},
		),
	}

	m.registry.MustRegister(
		m.transitions,
		m.resolutionFailures,
		m.playRegistrations,
		m.playbackErrors,
		m.handlerPanics,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TransitionObserved counts a track transition.
func (m *Metrics) TransitionObserved(reason domain.TransitionReason) {
	m.transitions.WithLabelValues(string(reason)).Inc()
}

// ResolutionFailed counts a failed selection.
func (m *Metrics) ResolutionFailed() {
	m.resolutionFailures.Inc()
}

// PlayRegistered counts a remote play registration outcome.
func (m *Metrics) PlayRegistered(result string) {
	m.playRegistrations.WithLabelValues(result).Inc()
}

// PlaybackFailed counts an audio failure.
func (m *Metrics) PlaybackFailed(op string) {
	m.playbackErrors.WithLabelValues(op).Inc()
}

// HandlerPanicked counts a recovered event handler panic.
func (m *Metrics) HandlerPanicked(eventType domain.EventType) {
	m.handlerPanics.WithLabelValues(string(eventType)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", slog.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) TransitionObserved(domain.TransitionReason) {}
func (Nop) ResolutionFailed()                          {}
func (Nop) PlayRegistered(string)                      {}
func (Nop) PlaybackFailed(string)                      {}
func (Nop) HandlerPanicked(domain.EventType)           {}

var (
	_ ports.Metrics = (*Metrics)(nil)
	_ ports.Metrics = Nop{}
)

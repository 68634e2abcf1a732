package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/metrics"
	"github.com/tejashwikalptaru/melodia/internal/ports"
)

// DefaultRegisterTimeout bounds a single remote play registration.
const DefaultRegisterTimeout = 10 * time.Second

// PlayCountService registers plays on the server without holding up playback.
//
// The local counter is bumped first and announced; the server call runs in
// the background and, if the server's count differs, the local counter is
// overwritten with it. Only the reply to the newest registration of a track
// may correct it. Failures are logged and counted, never retried.
type PlayCountService struct {
	registrar ports.PlayRegistrar
	repo      ports.PlayCountRepository
	bus       ports.EventBus
	metrics   ports.Metrics
	logger    *slog.Logger
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlayCountService creates a new play count service.
func NewPlayCountService(
	registrar ports.PlayRegistrar,
	repo ports.PlayCountRepository,
	bus ports.EventBus,
	m ports.Metrics,
	logger *slog.Logger,
) *PlayCountService {
	if m == nil {
		m = metrics.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PlayCountService{
		registrar: registrar,
		repo:      repo,
		bus:       bus,
		metrics:   m,
		logger:    logger,
		timeout:   DefaultRegisterTimeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetTimeout changes the per-call timeout of remote registrations.
func (s *PlayCountService) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.timeout = d
	}
}

// Register records one play of track. It returns the optimistic local count
// immediately; the remote registration continues in the background.
func (s *PlayCountService) Register(track domain.Track) int {
	count, seq := s.repo.Increment(track.ID, track.PlayCount)
	s.bus.Publish(domain.NewPlayCountChangedEvent(track.ID, count, false))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return count
	}
	timeout := s.timeout
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.registerRemote(track.ID, seq, timeout)
	}()
	return count
}

func (s *PlayCountService) registerRemote(trackID string, seq uint64, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	remote, err := s.registrar.RegisterPlay(ctx, trackID)
	if errors.Is(err, domain.ErrNoPlayCount) {
		s.metrics.PlayRegistered(metrics.ResultOK)
		return
	}
	if err != nil {
		s.metrics.PlayRegistered(metrics.ResultFailed)
		s.logger.Warn("play registration failed",
			slog.String("track_id", trackID),
			slog.String("error", err.Error()))
		return
	}

	local, _ := s.repo.Get(trackID)
	if remote == local {
		s.metrics.PlayRegistered(metrics.ResultOK)
		return
	}

	if !s.repo.Correct(trackID, seq, remote) {
		s.metrics.PlayRegistered(metrics.ResultSuperseded)
		s.logger.Debug("late play count reply ignored",
			slog.String("track_id", trackID),
			slog.Int("remote", remote))
		return
	}
	s.metrics.PlayRegistered(metrics.ResultCorrected)
	s.logger.Debug("play count corrected by server",
		slog.String("track_id", trackID),
		slog.Int("local", local),
		slog.Int("remote", remote))
	s.bus.Publish(domain.NewPlayCountChangedEvent(trackID, remote, true))
}

// Count returns the locally known play count of a track.
func (s *PlayCountService) Count(trackID string) (int, bool) {
	return s.repo.Get(trackID)
}

// Wait blocks until every in-flight registration finished.
func (s *PlayCountService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels in-flight registrations and waits for them.
func (s *PlayCountService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info("play count service shut down")
	return nil
}

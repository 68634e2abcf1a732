package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/melodia/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/melodia/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/logger"
	"github.com/tejashwikalptaru/melodia/internal/testutil"
)

// scriptedRegistrar answers RegisterPlay with a fixed count or error,
// optionally blocking until released.
type scriptedRegistrar struct {
	mu    sync.Mutex
	count int
	err   error
	gate  chan struct{}
	calls []string
}

func (r *scriptedRegistrar) RegisterPlay(ctx context.Context, trackID string) (int, error) {
	r.mu.Lock()
	r.calls = append(r.calls, trackID)
	gate, count, err := r.gate, r.count, r.err
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return count, err
}

func newTestPlayCountService(t *testing.T, reg *scriptedRegistrar) (*PlayCountService, *eventbus.SyncEventBus, *memory.PlayCountRepository) {
	t.Helper()
	repo, err := memory.NewPlayCountRepository(16)
	require.NoError(t, err)
	bus := eventbus.NewSyncEventBus()
	svc := NewPlayCountService(reg, repo, bus, nil, logger.NewTestLogger())
	t.Cleanup(func() {
		require.NoError(t, svc.Shutdown())
		_ = bus.Close()
	})
	return svc, bus, repo
}

func TestPlayCountService_OptimisticThenConfirmed(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	reg := &scriptedRegistrar{count: 11}
	svc, bus, _ := newTestPlayCountService(t, reg)
	rec := recordEvents(bus, domain.EventPlayCountChanged)

	track := createTestTrack("a")
	assert.Equal(t, 11, svc.Register(track), "local counter is bumped immediately")
	svc.Wait()

	count, ok := svc.Count("a")
	require.True(t, ok)
	assert.Equal(t, 11, count)

	events := rec.all()
	require.Len(t, events, 1, "matching server count publishes no correction")
	first := events[0].(domain.PlayCountChangedEvent)
	assert.False(t, first.Confirmed)
	assert.Equal(t, 11, first.Count)
}

func TestPlayCountService_ServerCorrectsLocalCount(t *testing.T) {
	reg := &scriptedRegistrar{count: 57}
	svc, bus, _ := newTestPlayCountService(t, reg)
	rec := recordEvents(bus, domain.EventPlayCountChanged)

	svc.Register(createTestTrack("a"))
	svc.Wait()

	count, _ := svc.Count("a")
	assert.Equal(t, 57, count)

	events := rec.all()
	require.Len(t, events, 2)
	corrected := events[1].(domain.PlayCountChangedEvent)
	assert.True(t, corrected.Confirmed)
	assert.Equal(t, 57, corrected.Count)
}

func TestPlayCountService_FailureIsSwallowed(t *testing.T) {
	reg := &scriptedRegistrar{err: errors.New("503 service unavailable")}
	svc, _, _ := newTestPlayCountService(t, reg)

	assert.Equal(t, 11, svc.Register(createTestTrack("a")))
	assert.Equal(t, 12, svc.Register(createTestTrack("a")))
	svc.Wait()

	count, _ := svc.Count("a")
	assert.Equal(t, 12, count, "failed registrations keep the optimistic count")
	assert.Equal(t, []string{"a", "a"}, reg.calls)
}

func TestPlayCountService_RegisterDoesNotBlock(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	reg := &scriptedRegistrar{count: 99, gate: make(chan struct{})}
	svc, _, _ := newTestPlayCountService(t, reg)

	done := make(chan struct{})
	go func() {
		svc.Register(createTestTrack("a"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register blocked on the remote call")
	}

	close(reg.gate)
	svc.Wait()
	count, _ := svc.Count("a")
	assert.Equal(t, 99, count)
}

func TestPlayCountService_ShutdownCancelsInflight(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	reg := &scriptedRegistrar{count: 99, gate: make(chan struct{})}
	svc, _, _ := newTestPlayCountService(t, reg)

	svc.Register(createTestTrack("a"))
	require.NoError(t, svc.Shutdown())

	count, _ := svc.Count("a")
	assert.Equal(t, 11, count, "cancelled registration leaves the optimistic count")

	svc.Register(createTestTrack("a"))
	count, _ = svc.Count("a")
	assert.Equal(t, 12, count)
}

func TestPlayCountService_Timeout(t *testing.T) {
	reg := &scriptedRegistrar{count: 99, gate: make(chan struct{})}
	svc, _, _ := newTestPlayCountService(t, reg)
	svc.SetTimeout(10 * time.Millisecond)

	svc.Register(createTestTrack("a"))
	svc.Wait()

	count, _ := svc.Count("a")
	assert.Equal(t, 11, count)
}

func TestPlayCountService_ReplyWithoutCountKeepsLocal(t *testing.T) {
	reg := &scriptedRegistrar{err: fmt.Errorf("%w: a", domain.ErrNoPlayCount)}
	svc, bus, _ := newTestPlayCountService(t, reg)
	rec := recordEvents(bus, domain.EventPlayCountChanged)

	track := createTestTrack("a")
	track.PlayCount = 10
	assert.Equal(t, 11, svc.Register(track))
	svc.Wait()

	count, _ := svc.Count("a")
	assert.Equal(t, 11, count)
	events := rec.all()
	require.Len(t, events, 1, "no confirmed event without a server count")
	assert.False(t, events[0].(domain.PlayCountChangedEvent).Confirmed)
}

// orderedRegistrar answers the n-th call with counts[n] once gates[n] is closed.
type orderedRegistrar struct {
	mu     sync.Mutex
	calls  int
	counts []int
	gates  []chan struct{}
	start  chan int
}

func (r *orderedRegistrar) RegisterPlay(ctx context.Context, _ string) (int, error) {
	r.mu.Lock()
	n := r.calls
	r.calls++
	r.mu.Unlock()
	r.start <- n

	select {
	case <-r.gates[n]:
		return r.counts[n], nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func TestPlayCountService_LateReplyDoesNotRollBack(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	reg := &orderedRegistrar{
		counts: []int{11, 12},
		gates:  []chan struct{}{make(chan struct{}), make(chan struct{})},
		start:  make(chan int, 2),
	}
	repo, err := memory.NewPlayCountRepository(16)
	require.NoError(t, err)
	bus := eventbus.NewSyncEventBus()
	svc := NewPlayCountService(reg, repo, bus, nil, logger.NewTestLogger())
	t.Cleanup(func() {
		require.NoError(t, svc.Shutdown())
		_ = bus.Close()
	})

	track := createTestTrack("a")
	track.PlayCount = 5
	svc.Register(track)
	<-reg.start
	svc.Register(track)
	<-reg.start

	// the server counts 11 and 12; the replies arrive in reverse order
	close(reg.gates[1])
	require.Eventually(t, func() bool {
		n, _ := svc.Count("a")
		return n == 12
	}, time.Second, 5*time.Millisecond)
	close(reg.gates[0])
	svc.Wait()

	count, _ := svc.Count("a")
	assert.Equal(t, 12, count, "the newest registration wins")
}

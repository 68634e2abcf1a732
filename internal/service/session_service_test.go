package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/testutil"
)

func historyIDs(s domain.SessionSnapshot) []string {
	ids := make([]string, len(s.History))
	for i, t := range s.History {
		ids[i] = t.ID
	}
	return ids
}

func currentID(s domain.SessionSnapshot) string {
	if s.CurrentTrack == nil {
		return ""
	}
	return s.CurrentTrack.ID
}

func TestSessionService_AdvanceRetreatScenario(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B", "C")

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))

	require.NoError(t, f.session.Advance(ctx))
	snap := f.session.Snapshot()
	assert.Equal(t, "B", currentID(snap))
	assert.Equal(t, []string{"A"}, historyIDs(snap))

	require.NoError(t, f.session.Advance(ctx))
	snap = f.session.Snapshot()
	assert.Equal(t, "C", currentID(snap))
	assert.Equal(t, []string{"A", "B"}, historyIDs(snap))

	require.NoError(t, f.session.Retreat(ctx))
	snap = f.session.Snapshot()
	assert.Equal(t, "B", currentID(snap))
	assert.Equal(t, []string{"A"}, historyIDs(snap))

	require.NoError(t, f.session.Retreat(ctx))
	snap = f.session.Snapshot()
	assert.Equal(t, "A", currentID(snap))
	assert.Empty(t, snap.History)
}

func TestSessionService_ReplaySameTrack(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	y, x := createTestTrack("Y"), createTestTrack("X")

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(y, nil)))
	before := f.session.Snapshot().ReplayTrigger

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(x, nil)))
	snap := f.session.Snapshot()
	assert.Equal(t, "X", currentID(snap))
	assert.Equal(t, []string{"Y"}, historyIDs(snap))

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(x, nil)))
	snap = f.session.Snapshot()
	assert.Equal(t, "X", currentID(snap))
	assert.Equal(t, []string{"Y", "X"}, historyIDs(snap))
	assert.Equal(t, before+2, snap.ReplayTrigger)

	assert.Equal(t, []string{"Y", "X", "X"}, f.plays.registered(), "every explicit play counts")
}

func TestSessionService_EndOfQueueIsNoop(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B")
	rec := recordEvents(f.bus, domain.EventEndOfQueue, domain.EventTrackChanged)

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[1], q)))
	before := f.session.Snapshot()

	err := f.session.Advance(ctx)
	assert.ErrorIs(t, err, domain.ErrEndOfQueue)

	after := f.session.Snapshot()
	assert.Equal(t, "B", currentID(after))
	assert.Equal(t, historyIDs(before), historyIDs(after))
	assert.Equal(t, before.ReplayTrigger, after.ReplayTrigger)
	assert.Equal(t, []string{"B"}, f.plays.registered())

	events := rec.all()
	require.Len(t, events, 2)
	end, ok := events[1].(domain.EndOfQueueEvent)
	require.True(t, ok)
	assert.Equal(t, "B", end.Track.ID)
}

func TestSessionService_RepeatIdempotence(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B", "C")

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	require.True(t, f.session.ToggleRepeat())
	start := f.session.Snapshot()

	for i := 1; i <= 5; i++ {
		require.NoError(t, f.session.Advance(ctx))
		snap := f.session.Snapshot()
		assert.Equal(t, "A", currentID(snap))
		assert.Equal(t, start.ReplayTrigger+uint64(i), snap.ReplayTrigger)
		assert.Empty(t, snap.History)
		assert.Equal(t, q.IDs(), snap.Queue.IDs())
	}
	assert.Len(t, f.plays.registered(), 6)
}

func TestSessionService_ShuffleGuard(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A")

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	f.session.ToggleShuffle()

	assert.ErrorIs(t, f.session.Advance(ctx), domain.ErrEndOfQueue)
	assert.Equal(t, "A", currentID(f.session.Snapshot()))
}

func TestSessionService_ShuffleAdvanceStaysInQueue(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B", "C", "D")

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	f.session.ToggleShuffle()

	prev := "A"
	for i := 0; i < 20; i++ {
		require.NoError(t, f.session.Advance(ctx))
		cur := currentID(f.session.Snapshot())
		assert.NotEqual(t, prev, cur)
		assert.True(t, q.Contains(cur))
		prev = cur
	}
}

func TestSessionService_TogglesDoNotTrigger(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	rec := recordEvents(f.bus, domain.EventModeChanged)
	q := createTestQueue("A", "B")

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	before := f.session.Snapshot().ReplayTrigger

	assert.True(t, f.session.ToggleShuffle())
	assert.True(t, f.session.ToggleRepeat())
	assert.False(t, f.session.ToggleShuffle())

	snap := f.session.Snapshot()
	assert.Equal(t, before, snap.ReplayTrigger)
	assert.False(t, snap.ShuffleEnabled)
	assert.True(t, snap.RepeatEnabled)
	assert.Len(t, f.plays.registered(), 1)

	events := rec.all()
	require.Len(t, events, 3)
	last := events[2].(domain.ModeChangedEvent)
	assert.False(t, last.Shuffle)
	assert.True(t, last.Repeat)
}

func TestSessionService_RetreatFallsBackToQueueIndex(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B", "C")
	rec := recordEvents(f.bus, domain.EventTrackChanged)

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[2], q)))

	require.NoError(t, f.session.Retreat(ctx))
	snap := f.session.Snapshot()
	assert.Equal(t, "B", currentID(snap))
	assert.Empty(t, snap.History, "queue-relative retreat does not push")

	require.NoError(t, f.session.Retreat(ctx))
	assert.Equal(t, "A", currentID(f.session.Snapshot()))

	trigger := f.session.Snapshot().ReplayTrigger
	assert.ErrorIs(t, f.session.Retreat(ctx), domain.ErrStartOfQueue)
	assert.Equal(t, trigger, f.session.Snapshot().ReplayTrigger)

	changes := rec.trackChanges()
	require.Len(t, changes, 3)
	assert.Equal(t, domain.ReasonRetreatIndex, changes[1].Reason)
	assert.Equal(t, domain.ReasonRetreatIndex, changes[2].Reason)
}

func TestSessionService_RetreatWhenCurrentNotInQueue(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B")

	// X joins the existing queue without being a member of it
	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(createTestTrack("X"), nil)))
	require.NoError(t, f.session.Retreat(ctx))
	assert.Equal(t, "A", currentID(f.session.Snapshot()))

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(createTestTrack("X"), nil)))
	f.session.history.Clear()

	assert.ErrorIs(t, f.session.Retreat(ctx), domain.ErrStartOfQueue)
	assert.ErrorIs(t, f.session.Advance(ctx), domain.ErrEndOfQueue)
	assert.Equal(t, "X", currentID(f.session.Snapshot()))
}

func TestSessionService_RoundTrip(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B", "C", "D", "E", "F")

	for n := 0; n < len(q); n++ {
		require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
		start := currentID(f.session.Snapshot())

		for i := 0; i < n; i++ {
			require.NoError(t, f.session.Advance(ctx))
		}
		for i := 0; i < n; i++ {
			require.NoError(t, f.session.Retreat(ctx))
		}
		assert.Equal(t, start, currentID(f.session.Snapshot()), "round trip with n=%d", n)
	}
}

func TestSessionService_TriggerMonotonic(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B", "C", "D")
	rng := rand.New(rand.NewPCG(3, 9))

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	last := f.session.Snapshot().ReplayTrigger

	for i := 0; i < 200; i++ {
		var err error
		changes := true
		switch rng.IntN(5) {
		case 0:
			err = f.session.Advance(ctx)
		case 1:
			err = f.session.Retreat(ctx)
		case 2:
			err = f.session.PlayRequested(ctx, domain.SelectTrack(q[rng.IntN(len(q))], nil))
		case 3:
			f.session.ToggleShuffle()
			changes = false
		case 4:
			f.session.ToggleRepeat()
			changes = false
		}

		snap := f.session.Snapshot()
		switch {
		case !changes || err != nil:
			assert.Equal(t, last, snap.ReplayTrigger)
		default:
			assert.Equal(t, last+1, snap.ReplayTrigger)
		}
		require.NotNil(t, snap.CurrentTrack)
		assert.True(t, snap.Queue.Contains(snap.CurrentTrack.ID), "current track stays in the queue")
		last = snap.ReplayTrigger
	}
}

func TestSessionService_ResolutionFailureLeavesStateUntouched(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	rec := recordEvents(f.bus, domain.EventResolutionFailed, domain.EventTrackChanged)

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectAlbum("alb-1", "")))
	before := f.session.Snapshot()

	f.catalog.FailTrack("s-201", errors.New("catalog down"))
	err := f.session.PlayRequested(ctx, domain.SelectTrackID("s-201"))
	require.Error(t, err)

	var resErr *domain.ResolutionError
	assert.ErrorAs(t, err, &resErr)
	assert.Equal(t, before, f.session.Snapshot())

	events := rec.all()
	require.Len(t, events, 2)
	failed, ok := events[1].(domain.ResolutionFailedEvent)
	require.True(t, ok)
	assert.Equal(t, "s-201", failed.Selection.TrackID)
	assert.Equal(t, []string{"s-101"}, f.plays.registered())
}

func TestSessionService_SelectionByIDReusesQueue(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectAlbum("alb-1", "s-101")))
	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrackID("s-103")))

	snap := f.session.Snapshot()
	assert.Equal(t, "s-103", currentID(snap))
	assert.Equal(t, []string{"s-101", "s-102", "s-103"}, snap.Queue.IDs())
}

func TestSessionService_StaleSelectionIsDiscarded(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestSession(t)
	rec := recordEvents(f.bus, domain.EventTrackChanged)

	release := f.catalog.HoldTrack("s-101")
	f.bus.Publish(domain.NewPlayRequestedEvent(domain.SelectTrackID("s-101")))

	require.NoError(t, f.session.PlayRequested(context.Background(), domain.SelectTrackID("s-202")))
	release()
	f.session.Wait()

	snap := f.session.Snapshot()
	assert.Equal(t, "s-202", currentID(snap))
	assert.Empty(t, snap.History)

	changes := rec.trackChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, "s-202", changes[0].Track.ID)
	assert.Equal(t, []string{"s-202"}, f.plays.registered())
}

func TestSessionService_NavigationSupersedesPendingSelection(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B")
	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))

	release := f.catalog.HoldTrack("s-101")
	f.bus.Publish(domain.NewPlayRequestedEvent(domain.SelectTrackID("s-101")))
	f.bus.Publish(domain.NewAdvanceRequestedEvent())
	release()
	f.session.Wait()

	assert.Equal(t, "B", currentID(f.session.Snapshot()))
}

func TestSessionService_NaturalEndKeepsPendingSelection(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B")
	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	trigger := f.session.Snapshot().ReplayTrigger

	release := f.catalog.HoldTrack("s-101")
	f.bus.Publish(domain.NewPlayRequestedEvent(domain.SelectTrackID("s-101")))
	f.bus.Publish(domain.NewTrackEndedEvent(q[0], trigger))
	assert.Equal(t, "B", currentID(f.session.Snapshot()), "the queue advances meanwhile")
	release()
	f.session.Wait()

	snap := f.session.Snapshot()
	assert.Equal(t, "s-101", currentID(snap), "the click still lands")
	assert.Equal(t, []string{"A", "B"}, historyIDs(snap))
}

func TestSessionService_EventDrivenCommands(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestSession(t)
	rec := recordEvents(f.bus, domain.EventTrackChanged)

	f.bus.Publish(domain.NewPlayRequestedEvent(domain.SelectPlaylist("pl-1", "s-101")))
	f.session.Wait()
	f.bus.Publish(domain.NewAdvanceRequestedEvent())
	f.bus.Publish(domain.NewRetreatRequestedEvent())
	f.bus.Publish(domain.NewRepeatToggledEvent())
	f.bus.Publish(domain.NewShuffleToggledEvent())

	snap := f.session.Snapshot()
	assert.Equal(t, "s-101", currentID(snap))
	assert.True(t, snap.RepeatEnabled)
	assert.True(t, snap.ShuffleEnabled)

	changes := rec.trackChanges()
	require.Len(t, changes, 3)
	assert.Equal(t, []domain.TransitionReason{domain.ReasonPlay, domain.ReasonAdvance, domain.ReasonRetreat},
		[]domain.TransitionReason{changes[0].Reason, changes[1].Reason, changes[2].Reason})
	assert.Equal(t, "s-301", changes[1].Track.ID)
	assert.Equal(t, []string{"s-201", "s-101", "s-301", "s-103"}, changes[0].Queue.IDs())
}

func TestSessionService_TrackEnded(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()
	q := createTestQueue("A", "B", "C")
	require.NoError(t, f.session.PlayRequested(ctx, domain.SelectTrack(q[0], q)))
	snap := f.session.Snapshot()

	err := f.session.TrackEnded(ctx, q[0], snap.ReplayTrigger-1)
	assert.ErrorIs(t, err, domain.ErrStaleSelection)
	assert.Equal(t, "A", currentID(f.session.Snapshot()))

	f.bus.Publish(domain.NewTrackEndedEvent(q[0], snap.ReplayTrigger))
	assert.Equal(t, "B", currentID(f.session.Snapshot()))

	f.session.ToggleRepeat()
	snap = f.session.Snapshot()
	f.bus.Publish(domain.NewTrackEndedEvent(q[1], snap.ReplayTrigger))
	after := f.session.Snapshot()
	assert.Equal(t, "B", currentID(after))
	assert.Equal(t, snap.ReplayTrigger+1, after.ReplayTrigger)
}

func TestSessionService_NothingLoaded(t *testing.T) {
	f := newTestSession(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.session.Advance(ctx), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, f.session.Retreat(ctx), domain.ErrNoTrackLoaded)
	assert.Nil(t, f.session.Snapshot().CurrentTrack)
	assert.Zero(t, f.session.Snapshot().ReplayTrigger)
}

func TestSessionService_ShutdownUnsubscribes(t *testing.T) {
	testutil.VerifyNoLeaks(t)
	f := newTestSession(t)

	require.NoError(t, f.session.Shutdown())
	require.NoError(t, f.session.Shutdown())

	assert.False(t, f.bus.HasSubscribers(domain.EventPlayRequested))
	f.bus.Publish(domain.NewPlayRequestedEvent(domain.SelectTrackID("s-101")))
	assert.Nil(t, f.session.Snapshot().CurrentTrack)
}

package service

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/melodia/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/melodia/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/melodia/internal/domain"
	"github.com/tejashwikalptaru/melodia/internal/logger"
)

// Helper to create a test track
func createTestTrack(id string) domain.Track {
	return domain.Track{
		ID:          id,
		Title:       "Track " + id,
		AudioRef:    fmt.Sprintf("http://files.test/files/%s.mp3", id),
		ArtistLabel: "Test Artist",
		PlayCount:   10,
	}
}

func createTestQueue(ids ...string) domain.Queue {
	q := make(domain.Queue, len(ids))
	for i, id := range ids {
		q[i] = createTestTrack(id)
	}
	return q
}

// eventRecorder collects events of the given types in publish order.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func recordEvents(bus *eventbus.SyncEventBus, types ...domain.EventType) *eventRecorder {
	r := &eventRecorder{}
	for _, et := range types {
		bus.Subscribe(et, func(e domain.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		})
	}
	return r
}

func (r *eventRecorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) trackChanges() []domain.TrackChangedEvent {
	var out []domain.TrackChangedEvent
	for _, e := range r.all() {
		if tc, ok := e.(domain.TrackChangedEvent); ok {
			out = append(out, tc)
		}
	}
	return out
}

// countingRegistration records every play-count side effect.
type countingRegistration struct {
	mu  sync.Mutex
	ids []string
}

func (c *countingRegistration) Register(track domain.Track) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, track.ID)
	return len(c.ids)
}

func (c *countingRegistration) registered() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

type sessionFixture struct {
	session *SessionService
	bus     *eventbus.SyncEventBus
	catalog *memory.Catalog
	plays   *countingRegistration
}

// Helper to create a session controller over the demo catalog with a seeded shuffle.
func newTestSession(t *testing.T) *sessionFixture {
	t.Helper()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus()
	catalog := memory.NewDemoCatalog("http://files.test")
	plays := &countingRegistration{}

	session := NewSessionService(
		log,
		NewResolver(catalog, log),
		NewNavigator(rand.New(rand.NewPCG(1, 2))),
		plays,
		bus,
		nil,
	)
	t.Cleanup(func() {
		require.NoError(t, session.Shutdown())
		_ = bus.Close()
	})

	return &sessionFixture{session: session, bus: bus, catalog: catalog, plays: plays}
}

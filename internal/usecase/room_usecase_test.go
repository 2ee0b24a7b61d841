package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/RoomWatch/internal/application/config"
	"github.com/qrave1/RoomWatch/internal/domain"
	"github.com/qrave1/RoomWatch/internal/domain/events"
	"github.com/qrave1/RoomWatch/internal/domain/output"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/memory"
)

type sentEvent struct {
	ConnID  uuid.UUID
	RoomID  string
	Type    string
	Payload any
}

type fakeTransport struct {
	mu     sync.Mutex
	direct []sentEvent
	room   []sentEvent
}

func (f *fakeTransport) SendTo(connID uuid.UUID, eventType string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.direct = append(f.direct, sentEvent{ConnID: connID, Type: eventType, Payload: payload})
}

func (f *fakeTransport) SendToRoom(roomID string, eventType string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.room = append(f.room, sentEvent{RoomID: roomID, Type: eventType, Payload: payload})
}

func (f *fakeTransport) directTo(connID uuid.UUID, eventType string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentEvent
	for _, ev := range f.direct {
		if ev.ConnID == connID && ev.Type == eventType {
			out = append(out, ev)
		}
	}

	return out
}

func (f *fakeTransport) roomEvents(eventType string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentEvent
	for _, ev := range f.room {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}

	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.direct = nil
	f.room = nil
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, ref string) ([]domain.ResolvedItem, error)
	searchFn  func(ctx context.Context, query string, limit int) ([]domain.ResolvedItem, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
	if f.resolveFn == nil {
		return nil, domain.ErrNoResults
	}

	return f.resolveFn(ctx, ref)
}

func (f *fakeResolver) Search(ctx context.Context, query string, limit int) ([]domain.ResolvedItem, error) {
	if f.searchFn == nil {
		return nil, domain.ErrNoResults
	}

	return f.searchFn(ctx, query, limit)
}

type fakeAutoDJ struct {
	mu     sync.Mutex
	called int
}

func (f *fakeAutoDJ) Continue(ctx context.Context, requester uuid.UUID, room *domain.Room) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.called++

	return false
}

func (f *fakeAutoDJ) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.called
}

func testConfig() *config.Config {
	return &config.Config{
		Room: config.RoomConfig{
			MaxUsers:    5,
			MaxPlaylist: 100,
			EmptyTTL:    time.Hour,
		},
		Limits: config.LimitsConfig{
			JoinsPerMinute:    100,
			AddsPerMinute:     100,
			ShufflesPerMinute: 100,
		},
		YouTube: config.YouTubeConfig{Timeout: time.Second},
	}
}

type testEnv struct {
	usecase   RoomUsecase
	transport *fakeTransport
	resolver  *fakeResolver
	autoDJ    *fakeAutoDJ
	registry  memory.RoomRegistry
	sessions  memory.SessionRepository
}

func newTestEnv(cfg *config.Config, resolver *fakeResolver) *testEnv {
	transport := &fakeTransport{}
	autoDJ := &fakeAutoDJ{}
	registry := memory.NewRoomRegistry()
	sessions := memory.NewSessionRepository()

	uc := NewRoomUsecase(
		cfg,
		registry,
		sessions,
		transport,
		resolver,
		autoDJ,
		memory.NewRateLimiter(cfg.Limits.JoinsPerMinute, time.Minute),
		memory.NewRateLimiter(cfg.Limits.AddsPerMinute, time.Minute),
		memory.NewRateLimiter(cfg.Limits.ShufflesPerMinute, time.Minute),
	)

	return &testEnv{
		usecase:   uc,
		transport: transport,
		resolver:  resolver,
		autoDJ:    autoDJ,
		registry:  registry,
		sessions:  sessions,
	}
}

func (e *testEnv) join(t *testing.T, name string) uuid.UUID {
	t.Helper()

	connID := uuid.New()
	err := e.usecase.HandleJoin(context.Background(), connID, "10.0.0.1:1234", events.JoinEvent{
		Room:     "movies",
		Username: name,
	})
	require.NoError(t, err)
	require.NotEmpty(t, e.transport.directTo(connID, events.TypeLoginSuccess), "join should succeed for %s", name)

	return connID
}

func TestRoomUsecase_HandleJoin(t *testing.T) {
	t.Run("first join creates the room and confirms login", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})
		connID := uuid.New()

		err := env.usecase.HandleJoin(context.Background(), connID, "10.0.0.1:1", events.JoinEvent{
			Room:     "movies",
			Username: "alice",
			Password: "secret",
		})
		require.NoError(t, err)

		success := env.transport.directTo(connID, events.TypeLoginSuccess)
		require.Len(t, success, 1)
		assert.Equal(t, events.LoginSuccessEvent{Room: "movies", Username: "alice"}, success[0].Payload)

		_, ok := env.registry.Get("movies")
		assert.True(t, ok)

		require.NotEmpty(t, env.transport.roomEvents(events.TypeUpdateState))
		require.NotEmpty(t, env.transport.roomEvents(events.TypeNotification))
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})

		err := env.usecase.HandleJoin(context.Background(), uuid.New(), "10.0.0.1:1", events.JoinEvent{
			Room: "movies", Username: "alice", Password: "secret",
		})
		require.NoError(t, err)

		intruder := uuid.New()
		err = env.usecase.HandleJoin(context.Background(), intruder, "10.0.0.2:1", events.JoinEvent{
			Room: "movies", Username: "bob", Password: "nope",
		})
		require.NoError(t, err)

		errs := env.transport.directTo(intruder, events.TypeErrorMsg)
		require.Len(t, errs, 1)
		assert.Equal(t, events.ErrorEvent{Text: "Wrong password!"}, errs[0].Payload)
		assert.Empty(t, env.transport.directTo(intruder, events.TypeLoginSuccess))
	})

	t.Run("blank identifiers are rejected", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})
		connID := uuid.New()

		err := env.usecase.HandleJoin(context.Background(), connID, "10.0.0.1:1", events.JoinEvent{
			Room: "   ", Username: "alice",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, env.transport.directTo(connID, events.TypeErrorMsg))
		assert.Empty(t, env.registry.Snapshot())
	})

	t.Run("duplicate name in the room", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})
		env.join(t, "alice")

		dup := uuid.New()
		err := env.usecase.HandleJoin(context.Background(), dup, "10.0.0.2:1", events.JoinEvent{
			Room: "movies", Username: "alice",
		})
		require.NoError(t, err)

		errs := env.transport.directTo(dup, events.TypeErrorMsg)
		require.Len(t, errs, 1)
		assert.Equal(t, events.ErrorEvent{Text: "This name is already taken here."}, errs[0].Payload)
	})

	t.Run("full room", func(t *testing.T) {
		cfg := testConfig()
		cfg.Room.MaxUsers = 1
		env := newTestEnv(cfg, &fakeResolver{})
		env.join(t, "alice")

		late := uuid.New()
		err := env.usecase.HandleJoin(context.Background(), late, "10.0.0.2:1", events.JoinEvent{
			Room: "movies", Username: "bob",
		})
		require.NoError(t, err)

		errs := env.transport.directTo(late, events.TypeErrorMsg)
		require.Len(t, errs, 1)
		assert.Equal(t, events.ErrorEvent{Text: "Room is full."}, errs[0].Payload)
	})

	t.Run("switching rooms leaves the previous one", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})
		alice := env.join(t, "alice")
		env.transport.reset()

		err := env.usecase.HandleJoin(context.Background(), alice, "10.0.0.1:1234", events.JoinEvent{
			Room: "music", Username: "alice",
		})
		require.NoError(t, err)

		require.NotEmpty(t, env.transport.directTo(alice, events.TypeLoginSuccess))

		old, ok := env.registry.Get("movies")
		require.True(t, ok)
		assert.Equal(t, 0, old.MemberCount())

		session, ok := env.sessions.Get(alice)
		require.True(t, ok)
		assert.Equal(t, "music", session.RoomID)

		// Имя в старой комнате освободилось
		other := uuid.New()
		err = env.usecase.HandleJoin(context.Background(), other, "10.0.0.2:1", events.JoinEvent{
			Room: "movies", Username: "alice",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, env.transport.directTo(other, events.TypeLoginSuccess))
	})

	t.Run("join attempts are rate limited per address", func(t *testing.T) {
		cfg := testConfig()
		cfg.Limits.JoinsPerMinute = 2
		env := newTestEnv(cfg, &fakeResolver{})

		for i, name := range []string{"a", "b", "c"} {
			connID := uuid.New()
			err := env.usecase.HandleJoin(context.Background(), connID, "10.0.0.9:1", events.JoinEvent{
				Room: "movies", Username: name,
			})
			require.NoError(t, err)

			if i < 2 {
				assert.NotEmpty(t, env.transport.directTo(connID, events.TypeLoginSuccess))
			} else {
				errs := env.transport.directTo(connID, events.TypeErrorMsg)
				require.Len(t, errs, 1)
				assert.Equal(t, events.ErrorEvent{Text: "Too many join attempts, slow down."}, errs[0].Payload)
			}
		}
	})
}

func TestRoomUsecase_HandleDisconnect(t *testing.T) {
	t.Run("notifies the rest of the room", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})
		alice := env.join(t, "alice")
		env.join(t, "bob")
		env.transport.reset()

		env.usecase.HandleDisconnect(context.Background(), alice)

		notes := env.transport.roomEvents(events.TypeNotification)
		require.Len(t, notes, 1)
		assert.Equal(t, events.NotificationEvent{Text: "🔴 alice left."}, notes[0].Payload)

		_, ok := env.sessions.Get(alice)
		assert.False(t, ok)
	})

	t.Run("last member leaves silently, room stays for the sweeper", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})
		alice := env.join(t, "alice")
		env.transport.reset()

		env.usecase.HandleDisconnect(context.Background(), alice)

		assert.Empty(t, env.transport.roomEvents(events.TypeNotification))

		room, ok := env.registry.Get("movies")
		require.True(t, ok)
		assert.Equal(t, 0, room.MemberCount())
	})

	t.Run("unknown connection is a no-op", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})

		env.usecase.HandleDisconnect(context.Background(), uuid.New())

		assert.Empty(t, env.transport.room)
		assert.Empty(t, env.transport.direct)
	})
}

func TestRoomUsecase_HandleAddVideo(t *testing.T) {
	t.Run("resolved items land in the playlist", func(t *testing.T) {
		resolver := &fakeResolver{
			resolveFn: func(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
				return []domain.ResolvedItem{{ID: "vid1", Title: "Never Gonna Give You Up"}}, nil
			},
		}
		env := newTestEnv(testConfig(), resolver)
		alice := env.join(t, "alice")
		env.transport.reset()

		err := env.usecase.HandleAddVideo(context.Background(), alice, events.AddVideoEvent{URL: "https://youtu.be/vid1"})
		require.NoError(t, err)

		room, _ := env.registry.Get("movies")
		state := room.State()
		require.Len(t, state.Playlist, 1)
		assert.Equal(t, "vid1", state.Playlist[0].ID)
		assert.Equal(t, "alice", state.Playlist[0].AddedBy)
		assert.False(t, state.Playlist[0].Auto)
		assert.True(t, state.Anchor.Playing)

		require.NotEmpty(t, env.transport.roomEvents(events.TypeUpdateState))

		notes := env.transport.roomEvents(events.TypeNotification)
		require.Len(t, notes, 2) // "Reading link..." + итог
		assert.Contains(t, notes[1].Payload.(events.NotificationEvent).Text, "by alice")
	})

	t.Run("resolver failure notifies the requester only", func(t *testing.T) {
		resolver := &fakeResolver{
			resolveFn: func(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
				return nil, errors.New("upstream 403")
			},
		}
		env := newTestEnv(testConfig(), resolver)
		alice := env.join(t, "alice")
		env.join(t, "bob")
		env.transport.reset()

		err := env.usecase.HandleAddVideo(context.Background(), alice, events.AddVideoEvent{URL: "garbage"})
		require.NoError(t, err)

		room, _ := env.registry.Get("movies")
		assert.Empty(t, room.State().Playlist)

		failures := env.transport.directTo(alice, events.TypeNotification)
		require.Len(t, failures, 1)
		assert.Equal(t, events.NotificationEvent{Text: "❌ Invalid link or lookup failed."}, failures[0].Payload)

		assert.Empty(t, env.transport.roomEvents(events.TypeUpdateState))
	})

	t.Run("additions are rate limited per connection", func(t *testing.T) {
		cfg := testConfig()
		cfg.Limits.AddsPerMinute = 1
		resolver := &fakeResolver{
			resolveFn: func(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
				return []domain.ResolvedItem{{ID: "vid1", Title: "t"}}, nil
			},
		}
		env := newTestEnv(cfg, resolver)
		alice := env.join(t, "alice")

		require.NoError(t, env.usecase.HandleAddVideo(context.Background(), alice, events.AddVideoEvent{URL: "x"}))
		require.NoError(t, env.usecase.HandleAddVideo(context.Background(), alice, events.AddVideoEvent{URL: "x"}))

		errs := env.transport.directTo(alice, events.TypeErrorMsg)
		require.Len(t, errs, 1)
		assert.Equal(t, events.ErrorEvent{Text: "Too many additions, slow down."}, errs[0].Payload)
	})

	t.Run("without a session nothing happens", func(t *testing.T) {
		env := newTestEnv(testConfig(), &fakeResolver{})

		err := env.usecase.HandleAddVideo(context.Background(), uuid.New(), events.AddVideoEvent{URL: "x"})
		require.NoError(t, err)

		assert.Empty(t, env.transport.room)
		assert.Empty(t, env.transport.direct)
	})
}

func TestRoomUsecase_HandleControl(t *testing.T) {
	env := newTestEnv(testConfig(), &fakeResolver{})
	alice := env.join(t, "alice")
	env.transport.reset()

	t.Run("unknown action", func(t *testing.T) {
		err := env.usecase.HandleControl(context.Background(), alice, events.ControlActionEvent{Action: "rewind"})
		require.NoError(t, err)

		errs := env.transport.directTo(alice, events.TypeErrorMsg)
		require.Len(t, errs, 1)
		assert.Equal(t, events.ErrorEvent{Text: "Unknown control action."}, errs[0].Payload)
	})

	t.Run("pause re-anchors and broadcasts", func(t *testing.T) {
		env.transport.reset()

		err := env.usecase.HandleControl(context.Background(), alice, events.ControlActionEvent{Action: "pause", Time: 12.5})
		require.NoError(t, err)

		updates := env.transport.roomEvents(events.TypeUpdateState)
		require.Len(t, updates, 1)

		packet := updates[0].Payload.(output.RoomPacket)
		assert.False(t, packet.IsPlaying)
		assert.InDelta(t, 12.5, packet.AnchorTime, 1e-9)
	})
}

func TestRoomUsecase_HandleNext(t *testing.T) {
	t.Run("advances when queue has a next item", func(t *testing.T) {
		resolver := &fakeResolver{
			resolveFn: func(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
				return []domain.ResolvedItem{{ID: "a", Title: "a"}, {ID: "b", Title: "b"}}, nil
			},
		}
		env := newTestEnv(testConfig(), resolver)
		alice := env.join(t, "alice")
		require.NoError(t, env.usecase.HandleAddVideo(context.Background(), alice, events.AddVideoEvent{URL: "x"}))
		env.transport.reset()

		require.NoError(t, env.usecase.HandleNext(context.Background(), alice))

		room, _ := env.registry.Get("movies")
		assert.Equal(t, 1, room.State().Cursor)
		assert.NotEmpty(t, env.transport.roomEvents(events.TypeUpdateState))
		assert.Zero(t, env.autoDJ.calls())
	})

	t.Run("exhausted queue hands over to the continuation advisor", func(t *testing.T) {
		resolver := &fakeResolver{
			resolveFn: func(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
				return []domain.ResolvedItem{{ID: "a", Title: "a"}}, nil
			},
		}
		env := newTestEnv(testConfig(), resolver)
		alice := env.join(t, "alice")
		require.NoError(t, env.usecase.HandleAddVideo(context.Background(), alice, events.AddVideoEvent{URL: "x"}))

		require.NoError(t, env.usecase.HandleNext(context.Background(), alice))

		assert.Equal(t, 1, env.autoDJ.calls())
	})
}

func TestRoomUsecase_HandleForceSync(t *testing.T) {
	env := newTestEnv(testConfig(), &fakeResolver{})
	alice := env.join(t, "alice")
	env.transport.reset()

	err := env.usecase.HandleForceSync(context.Background(), alice, events.ForceSyncEvent{Time: 33, IsPlaying: true})
	require.NoError(t, err)

	updates := env.transport.roomEvents(events.TypeUpdateState)
	require.Len(t, updates, 1)

	packet := updates[0].Payload.(output.RoomPacket)
	assert.True(t, packet.IsPlaying)
	assert.InDelta(t, 33.0, packet.AnchorTime, 1e-9)

	notes := env.transport.roomEvents(events.TypeNotification)
	require.Len(t, notes, 1)
	assert.Equal(t, events.NotificationEvent{Text: "⚠️ Sync forced by alice"}, notes[0].Payload)
}

func TestRoomUsecase_HandleRemove(t *testing.T) {
	resolver := &fakeResolver{
		resolveFn: func(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
			return []domain.ResolvedItem{{ID: "a", Title: "a"}, {ID: "b", Title: "b"}}, nil
		},
	}
	env := newTestEnv(testConfig(), resolver)
	alice := env.join(t, "alice")
	require.NoError(t, env.usecase.HandleAddVideo(context.Background(), alice, events.AddVideoEvent{URL: "x"}))

	t.Run("stale index is silently ignored", func(t *testing.T) {
		env.transport.reset()

		err := env.usecase.HandleRemove(context.Background(), alice, events.RemoveEvent{Index: 0})
		require.NoError(t, err)

		assert.Empty(t, env.transport.room)
		assert.Empty(t, env.transport.direct)

		room, _ := env.registry.Get("movies")
		assert.Len(t, room.State().Playlist, 2)
	})

	t.Run("future item is removed and broadcast", func(t *testing.T) {
		env.transport.reset()

		err := env.usecase.HandleRemove(context.Background(), alice, events.RemoveEvent{Index: 1})
		require.NoError(t, err)

		room, _ := env.registry.Get("movies")
		assert.Len(t, room.State().Playlist, 1)
		assert.NotEmpty(t, env.transport.roomEvents(events.TypeUpdateState))
	})
}

func TestRoomUsecase_HandleToggleContinuation(t *testing.T) {
	env := newTestEnv(testConfig(), &fakeResolver{})
	alice := env.join(t, "alice")
	env.transport.reset()

	err := env.usecase.HandleToggleContinuation(context.Background(), alice, events.ToggleContinuationEvent{Enabled: false})
	require.NoError(t, err)

	updates := env.transport.roomEvents(events.TypeUpdateState)
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Payload.(output.RoomPacket).AutoDJEnabled)
}

func TestRoomUsecase_HandleRequestSync(t *testing.T) {
	env := newTestEnv(testConfig(), &fakeResolver{})
	alice := env.join(t, "alice")
	env.transport.reset()

	err := env.usecase.HandleRequestSync(context.Background(), alice)
	require.NoError(t, err)

	direct := env.transport.directTo(alice, events.TypeUpdateState)
	require.Len(t, direct, 1)

	packet := direct[0].Payload.(output.RoomPacket)
	assert.Equal(t, []string{"alice"}, packet.Users)
	assert.Empty(t, env.transport.room)
}

func TestRoomUsecase_HandleShuffle_EmptyPlaylist(t *testing.T) {
	env := newTestEnv(testConfig(), &fakeResolver{})
	alice := env.join(t, "alice")
	env.transport.reset()

	// Shuffle до первого трека - допустимый ввод
	require.NoError(t, env.usecase.HandleShuffle(context.Background(), alice))

	updates := env.transport.roomEvents(events.TypeUpdateState)
	require.Len(t, updates, 1)
	assert.Empty(t, updates[0].Payload.(output.RoomPacket).Playlist)
}

func TestRoomUsecase_HandleShuffle_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.ShufflesPerMinute = 1
	env := newTestEnv(cfg, &fakeResolver{})
	alice := env.join(t, "alice")
	env.transport.reset()

	require.NoError(t, env.usecase.HandleShuffle(context.Background(), alice))
	require.NoError(t, env.usecase.HandleShuffle(context.Background(), alice))

	errs := env.transport.directTo(alice, events.TypeErrorMsg)
	require.Len(t, errs, 1)
	assert.Equal(t, events.ErrorEvent{Text: "Too many shuffles, slow down."}, errs[0].Payload)
}

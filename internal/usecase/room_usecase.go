package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/qrave1/RoomWatch/internal/application/config"
	"github.com/qrave1/RoomWatch/internal/application/constant"
	"github.com/qrave1/RoomWatch/internal/domain"
	"github.com/qrave1/RoomWatch/internal/domain/events"
	"github.com/qrave1/RoomWatch/internal/domain/output"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/memory"
)

// MaxIDLen - предел длины имени участника и идентификатора комнаты
const MaxIDLen = 50

type RoomUsecase interface {
	HandleJoin(ctx context.Context, connID uuid.UUID, remoteAddr string, ev events.JoinEvent) error
	HandleDisconnect(ctx context.Context, connID uuid.UUID)

	HandleAddVideo(ctx context.Context, connID uuid.UUID, ev events.AddVideoEvent) error
	HandleControl(ctx context.Context, connID uuid.UUID, ev events.ControlActionEvent) error
	HandleSeek(ctx context.Context, connID uuid.UUID, ev events.SeekEvent) error
	HandleNext(ctx context.Context, connID uuid.UUID) error
	HandleForceSync(ctx context.Context, connID uuid.UUID, ev events.ForceSyncEvent) error
	HandleShuffle(ctx context.Context, connID uuid.UUID) error
	HandleRemove(ctx context.Context, connID uuid.UUID, ev events.RemoveEvent) error
	HandleToggleContinuation(ctx context.Context, connID uuid.UUID, ev events.ToggleContinuationEvent) error
	HandleRequestSync(ctx context.Context, connID uuid.UUID) error
}

type roomUsecase struct {
	cfg *config.Config

	registry memory.RoomRegistry
	sessions memory.SessionRepository

	transport Transport
	resolver  Resolver
	autoDJ    AutoDJUsecase

	joinLimiter    memory.RateLimiter
	addLimiter     memory.RateLimiter
	shuffleLimiter memory.RateLimiter
}

func NewRoomUsecase(
	cfg *config.Config,
	registry memory.RoomRegistry,
	sessions memory.SessionRepository,
	transport Transport,
	resolver Resolver,
	autoDJ AutoDJUsecase,
	joinLimiter memory.RateLimiter,
	addLimiter memory.RateLimiter,
	shuffleLimiter memory.RateLimiter,
) RoomUsecase {
	return &roomUsecase{
		cfg:            cfg,
		registry:       registry,
		sessions:       sessions,
		transport:      transport,
		resolver:       resolver,
		autoDJ:         autoDJ,
		joinLimiter:    joinLimiter,
		addLimiter:     addLimiter,
		shuffleLimiter: shuffleLimiter,
	}
}

func (u *roomUsecase) HandleJoin(ctx context.Context, connID uuid.UUID, remoteAddr string, ev events.JoinEvent) error {
	roomID := strings.TrimSpace(ev.Room)
	name := strings.TrimSpace(ev.Username)

	if !validIdentifier(roomID) || !validIdentifier(name) {
		u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Fill in name and room (50 characters max)."})
		return nil
	}

	if !u.joinLimiter.Allow(remoteAddr) {
		u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Too many join attempts, slow down."})
		return nil
	}

	// Повторный join с живого соединения - смена комнаты: сначала
	// покидаем старую, иначе там останется призрачный участник
	if _, ok := u.sessions.Get(connID); ok {
		u.HandleDisconnect(ctx, connID)
	}

	room, created, err := u.registry.GetOrCreate(roomID, func() (*domain.Room, error) {
		return domain.NewRoom(roomID, ev.Password, u.cfg.Room.MaxUsers, u.cfg.Room.MaxPlaylist, time.Now())
	})
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	// Пароль создателя становится секретом комнаты; дальше сверяем
	if !created && !room.CheckPassword(ev.Password) {
		u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Wrong password!"})
		return nil
	}

	if err := room.Join(name); err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomFull):
			u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Room is full."})
		case errors.Is(err, domain.ErrNameTaken):
			u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "This name is already taken here."})
		default:
			u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Could not join the room."})
		}

		return nil
	}

	u.sessions.Add(domain.Session{ConnID: connID, RoomID: roomID, Name: name})

	slog.Info(
		"user joined room",
		slog.Any(constant.ConnID, connID),
		slog.String(constant.RoomID, roomID),
		slog.String(constant.UserName, name),
	)

	u.transport.SendTo(connID, events.TypeLoginSuccess, events.LoginSuccessEvent{Room: roomID, Username: name})
	u.broadcastState(room)
	u.transport.SendToRoom(roomID, events.TypeNotification, events.NotificationEvent{Text: "🟢 " + name + " connected."})

	return nil
}

func (u *roomUsecase) HandleDisconnect(ctx context.Context, connID uuid.UUID) {
	session, ok := u.sessions.Get(connID)
	if !ok {
		return
	}

	u.sessions.Remove(connID)

	room, ok := u.registry.Get(session.RoomID)
	if !ok {
		return
	}

	empty := room.Leave(session.Name, time.Now())

	slog.Info(
		"user left room",
		slog.Any(constant.ConnID, connID),
		slog.String(constant.RoomID, session.RoomID),
		slog.String(constant.UserName, session.Name),
	)

	if empty {
		// Комнату не удаляем сразу: фоновая чистка заберет ее после
		// ROOM_EMPTY_TTL, давая шанс переподключиться
		return
	}

	u.transport.SendToRoom(session.RoomID, events.TypeNotification, events.NotificationEvent{Text: "🔴 " + session.Name + " left."})
	u.broadcastState(room)
}

func (u *roomUsecase) HandleAddVideo(ctx context.Context, connID uuid.UUID, ev events.AddVideoEvent) error {
	session, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	if !u.addLimiter.Allow(connID.String()) {
		u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Too many additions, slow down."})
		return nil
	}

	u.transport.SendToRoom(session.RoomID, events.TypeNotification, events.NotificationEvent{Text: "📼 Reading link..."})

	resolveCtx, cancel := context.WithTimeout(ctx, u.cfg.YouTube.Timeout)
	defer cancel()

	resolved, err := u.resolver.Resolve(resolveCtx, ev.URL)
	if err != nil {
		slog.Warn(
			"resolve media reference",
			slog.Any(constant.Error, err),
			slog.String(constant.RoomID, session.RoomID),
		)

		u.transport.SendTo(connID, events.TypeNotification, events.NotificationEvent{Text: "❌ Invalid link or lookup failed."})

		return nil
	}

	items := make([]domain.MediaItem, 0, len(resolved))
	for _, r := range resolved {
		items = append(items, domain.NewMediaItem(r, session.Name, false))
	}

	added, dropped, _ := room.AddItems(items, time.Now())
	if added == 0 {
		u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Playlist is full."})
		return nil
	}

	u.broadcastState(room)

	var msg string
	if added > 1 {
		msg = fmt.Sprintf("📚 %d tracks (by %s)", added, session.Name)
	} else {
		msg = fmt.Sprintf("Added: %s (by %s)", shortTitle(items[0].Title), session.Name)
	}
	if dropped > 0 {
		msg += fmt.Sprintf(", %d dropped over capacity", dropped)
	}

	u.transport.SendToRoom(session.RoomID, events.TypeNotification, events.NotificationEvent{Text: msg})

	return nil
}

func (u *roomUsecase) HandleControl(ctx context.Context, connID uuid.UUID, ev events.ControlActionEvent) error {
	_, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	if ev.Action != "play" && ev.Action != "pause" {
		u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Unknown control action."})
		return nil
	}

	room.Control(ev.Action == "play", ev.Time, time.Now())
	u.broadcastState(room)

	return nil
}

func (u *roomUsecase) HandleSeek(ctx context.Context, connID uuid.UUID, ev events.SeekEvent) error {
	_, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	room.Seek(ev.Time, time.Now())
	u.broadcastState(room)

	return nil
}

// HandleNext - единый путь перехода: и явный next_video, и video_ended
// приходят сюда, чтобы поведение не расходилось.
func (u *roomUsecase) HandleNext(ctx context.Context, connID uuid.UUID) error {
	_, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	if room.AdvanceNext(time.Now()) {
		u.broadcastState(room)
		return nil
	}

	u.autoDJ.Continue(ctx, connID, room)

	return nil
}

func (u *roomUsecase) HandleForceSync(ctx context.Context, connID uuid.UUID, ev events.ForceSyncEvent) error {
	session, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	room.ForceSync(ev.Time, ev.IsPlaying, time.Now())

	u.broadcastState(room)
	u.transport.SendToRoom(session.RoomID, events.TypeNotification, events.NotificationEvent{Text: "⚠️ Sync forced by " + session.Name})

	return nil
}

func (u *roomUsecase) HandleShuffle(ctx context.Context, connID uuid.UUID) error {
	_, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	if !u.shuffleLimiter.Allow(connID.String()) {
		u.transport.SendTo(connID, events.TypeErrorMsg, events.ErrorEvent{Text: "Too many shuffles, slow down."})
		return nil
	}

	room.ShuffleFuture()
	u.broadcastState(room)

	return nil
}

func (u *roomUsecase) HandleRemove(ctx context.Context, connID uuid.UUID, ev events.RemoveEvent) error {
	_, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	if _, err := room.RemoveAt(ev.Index); err != nil {
		// Устаревший индекс (текущий трек или история) - тихий no-op
		return nil
	}

	u.broadcastState(room)

	return nil
}

func (u *roomUsecase) HandleToggleContinuation(ctx context.Context, connID uuid.UUID, ev events.ToggleContinuationEvent) error {
	_, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	room.SetContinuation(ev.Enabled)
	u.broadcastState(room)

	return nil
}

func (u *roomUsecase) HandleRequestSync(ctx context.Context, connID uuid.UUID) error {
	_, room, ok := u.session(connID)
	if !ok {
		return nil
	}

	u.transport.SendTo(connID, events.TypeUpdateState, output.NewRoomPacket(room.State(), time.Now()))

	return nil
}

func (u *roomUsecase) session(connID uuid.UUID) (domain.Session, *domain.Room, bool) {
	session, ok := u.sessions.Get(connID)
	if !ok {
		return domain.Session{}, nil, false
	}

	room, ok := u.registry.Get(session.RoomID)
	if !ok {
		return domain.Session{}, nil, false
	}

	return session, room, true
}

// broadcastState снимает состояние под мьютексом комнаты, а пишет в
// сокеты уже после его освобождения
func (u *roomUsecase) broadcastState(room *domain.Room) {
	u.transport.SendToRoom(room.ID, events.TypeUpdateState, output.NewRoomPacket(room.State(), time.Now()))
}

func validIdentifier(s string) bool {
	return s != "" && utf8.RuneCountInString(s) <= MaxIDLen
}

func shortTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= 15 {
		return title
	}

	return string(runes[:15]) + "..."
}

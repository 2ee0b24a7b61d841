package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/qrave1/RoomWatch/internal/application/constant"
	"github.com/qrave1/RoomWatch/internal/domain/events"
	"github.com/qrave1/RoomWatch/internal/domain/output"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/memory"
)

// ReconcilerUsecase - фоновый цикл сверки: раз в интервал рассылает
// heartbeat-пакет всем занятым комнатам (лечит молча разъехавшихся
// клиентов) и удаляет комнаты, пустующие дольше TTL.
type ReconcilerUsecase interface {
	Run(ctx context.Context)
}

type reconcilerUsecase struct {
	registry  memory.RoomRegistry
	transport Transport

	interval time.Duration
	emptyTTL time.Duration
}

func NewReconcilerUsecase(
	registry memory.RoomRegistry,
	transport Transport,
	interval time.Duration,
	emptyTTL time.Duration,
) ReconcilerUsecase {
	return &reconcilerUsecase{
		registry:  registry,
		transport: transport,
		interval:  interval,
		emptyTTL:  emptyTTL,
	}
}

func (u *reconcilerUsecase) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.sweep(time.Now())
		}
	}
}

// sweep обходит снимок идентификаторов: комнаты, удаленные по ходу
// итерации, просто пропускаются
func (u *reconcilerUsecase) sweep(now time.Time) {
	for _, id := range u.registry.Snapshot() {
		u.reconcileRoom(id, now)
	}
}

// reconcileRoom изолирует сбой одной комнаты: паника логируется и не
// останавливает цикл для остальных
func (u *reconcilerUsecase) reconcileRoom(id string, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(
				"reconcile room panic",
				slog.Any(constant.Error, r),
				slog.String(constant.RoomID, id),
			)
		}
	}()

	room, ok := u.registry.Get(id)
	if !ok {
		return
	}

	if room.MemberCount() == 0 {
		if room.ExpiredSince(u.emptyTTL, now) {
			u.registry.Delete(id)

			slog.Info("empty room expired", slog.String(constant.RoomID, id))
		}

		return
	}

	u.transport.SendToRoom(id, events.TypeHeartbeat, output.NewRoomPacket(room.State(), now))
}

package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/qrave1/RoomWatch/internal/domain"
)

// Transport - примитивы доставки событий. Реализация никогда не
// блокирует вызывающего на сетевом I/O дольше, чем запись в сокет
// одного клиента; ошибки доставки поглощаются.
type Transport interface {
	SendTo(connID uuid.UUID, eventType string, payload any)
	SendToRoom(roomID string, eventType string, payload any)
}

// Resolver - внешний медиа-резолвер. Ошибка - штатный исход
// (битая ссылка, таймаут, блокировка апстрима), никогда не фатальный.
type Resolver interface {
	// Resolve принимает ссылку на видео, ссылку на плейлист или
	// текстовый запрос
	Resolve(ctx context.Context, ref string) ([]domain.ResolvedItem, error)

	// Search возвращает небольшой ранжированный набор кандидатов
	Search(ctx context.Context, query string, limit int) ([]domain.ResolvedItem, error)
}

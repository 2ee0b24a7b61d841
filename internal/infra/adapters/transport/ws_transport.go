package transport

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/qrave1/RoomWatch/internal/application/constant"
	"github.com/qrave1/RoomWatch/internal/domain/events"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/memory"
)

// WSTransport доставляет события поверх активных WebSocket соединений,
// разворачивая комнату в список соединений через сессии
type WSTransport struct {
	sessions memory.SessionRepository
	wsConns  memory.WebsocketConnectionRepository
}

func NewWSTransport(sessions memory.SessionRepository, wsConns memory.WebsocketConnectionRepository) *WSTransport {
	return &WSTransport{
		sessions: sessions,
		wsConns:  wsConns,
	}
}

func (t *WSTransport) SendTo(connID uuid.UUID, eventType string, payload any) {
	msg, ok := envelope(eventType, payload)
	if !ok {
		return
	}

	t.wsConns.Write(connID, msg)
}

func (t *WSTransport) SendToRoom(roomID string, eventType string, payload any) {
	msg, ok := envelope(eventType, payload)
	if !ok {
		return
	}

	for _, session := range t.sessions.GetByRoom(roomID) {
		t.wsConns.Write(session.ConnID, msg)
	}
}

func envelope(eventType string, payload any) (events.Message, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error(
			"marshal outbound event",
			slog.Any(constant.Error, err),
			slog.String(constant.Event, eventType),
		)

		return events.Message{}, false
	}

	return events.Message{Type: eventType, Data: data}, true
}

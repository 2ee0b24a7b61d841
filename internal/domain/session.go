package domain

import "github.com/google/uuid"

// Session - привязка живого соединения к комнате и имени участника
type Session struct {
	ConnID uuid.UUID
	RoomID string
	Name   string
}

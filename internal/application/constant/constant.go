package constant

// Ключи атрибутов для slog
const (
	Error    = "error"
	ConnID   = "conn_id"
	RoomID   = "room_id"
	UserName = "user_name"
	Event    = "event"
)

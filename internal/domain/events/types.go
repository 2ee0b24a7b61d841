package events

import "encoding/json"

// Message - общий конверт входящего события
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Входящие события

type JoinEvent struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type AddVideoEvent struct {
	URL string `json:"url"`
}

type ControlActionEvent struct {
	Action string  `json:"action"`
	Time   float64 `json:"time"`
}

type SeekEvent struct {
	Time float64 `json:"time"`
}

type ForceSyncEvent struct {
	Time      float64 `json:"time"`
	IsPlaying bool    `json:"is_playing"`
}

type RemoveEvent struct {
	Index int `json:"index"`
}

type ToggleContinuationEvent struct {
	Enabled bool `json:"enabled"`
}

// Исходящие события

type LoginSuccessEvent struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

type NotificationEvent struct {
	Text string `json:"text"`
}

type ErrorEvent struct {
	Text string `json:"text"`
}

package output

import (
	"time"

	"github.com/qrave1/RoomWatch/internal/domain"
)

// RoomPacket - широковещательный пакет состояния комнаты. Пароль в него
// не попадает никогда; один и тот же пакет используется для update_state,
// heartbeat и request_sync.
type RoomPacket struct {
	Playlist          []domain.MediaItem `json:"playlist"`
	CurrentVideoIndex int                `json:"current_video_index"`
	IsPlaying         bool               `json:"is_playing"`
	AnchorTime        float64            `json:"anchor_time"`
	ServerStartTime   float64            `json:"server_start_time"`
	AutoDJEnabled     bool               `json:"auto_dj_enabled"`
	Users             []string           `json:"users"`
	ServerNow         float64            `json:"server_now"`
}

func NewRoomPacket(state domain.RoomState, now time.Time) RoomPacket {
	return RoomPacket{
		Playlist:          state.Playlist,
		CurrentVideoIndex: state.Cursor,
		IsPlaying:         state.Anchor.Playing,
		AnchorTime:        state.Anchor.Position,
		ServerStartTime:   state.Anchor.AnchoredAt,
		AutoDJEnabled:     state.ContinuationEnabled,
		Users:             state.Members,
		ServerNow:         float64(now.UnixNano()) / float64(time.Second),
	}
}

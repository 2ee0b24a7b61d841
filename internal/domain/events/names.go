package events

// Имена входящих событий
const (
	TypeJoin               = "join"
	TypeAddVideo           = "add_video"
	TypeControlAction      = "control_action"
	TypeSeek               = "seek_event"
	TypeNextVideo          = "next_video"
	TypeMasterSyncForce    = "master_sync_force"
	TypeShuffle            = "shuffle"
	TypeRemove             = "remove"
	TypeToggleContinuation = "toggle_continuation"
	TypeRequestSync        = "request_sync"
	TypeVideoEnded         = "video_ended"
)

// Имена исходящих событий
const (
	TypeLoginSuccess = "login_success"
	TypeUpdateState  = "update_state"
	TypeHeartbeat    = "heartbeat"
	TypeNotification = "notification"
	TypeErrorMsg     = "error_msg"
)

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomWatch/internal/application/config"
	"github.com/qrave1/RoomWatch/internal/application/constant"
	"github.com/qrave1/RoomWatch/internal/application/metric"
	"github.com/qrave1/RoomWatch/internal/domain/events"
	"github.com/qrave1/RoomWatch/internal/infra/adapters/memory"
	"github.com/qrave1/RoomWatch/internal/usecase"
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	roomUsecase usecase.RoomUsecase

	wsConnRepo memory.WebsocketConnectionRepository
}

func NewWebSocketHandler(cfg *config.Config, roomUsecase usecase.RoomUsecase, wsConnRepo memory.WebsocketConnectionRepository) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		roomUsecase: roomUsecase,
		wsConnRepo:  wsConnRepo,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	connID := uuid.New()
	remoteAddr := c.RealIP()

	h.wsConnRepo.Add(connID, ws)
	defer h.wsConnRepo.Remove(connID)

	// Отложенный выход из комнаты: выполняется на любом пути завершения,
	// включая панику ниже по стеку. Повторный вызов - no-op.
	defer h.roomUsecase.HandleDisconnect(context.Background(), connID)

	err = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	if err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					slog.Error("ping failed", slog.Any(constant.Error, err))
					return
				}
			case <-c.Request().Context().Done():
				return
			}
		}
	}()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		default:
			_, msg, err := ws.ReadMessage()
			if err != nil {
				h.handleWebsocketError(connID, err)

				return nil
			}

			message := new(events.Message)

			if err = json.Unmarshal(msg, &message); err != nil {
				slog.Error("unmarshal websocket message", slog.Any(constant.Error, err))

				continue
			}

			if err = h.handleMessage(c.Request().Context(), connID, remoteAddr, message); err != nil {
				slog.Error(
					"handle message",
					slog.Any(constant.Error, err),
					slog.String(constant.Event, message.Type),
				)
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(
	ctx context.Context,
	connID uuid.UUID,
	remoteAddr string,
	msg *events.Message,
) error {
	metric.RecordInboundEvent(msg.Type)

	switch msg.Type {
	case events.TypeJoin:
		var joinEvent events.JoinEvent

		if err := json.Unmarshal(msg.Data, &joinEvent); err != nil {
			return fmt.Errorf("unmarshal join event: %w", err)
		}

		return h.roomUsecase.HandleJoin(ctx, connID, remoteAddr, joinEvent)

	case events.TypeAddVideo:
		var addEvent events.AddVideoEvent

		if err := json.Unmarshal(msg.Data, &addEvent); err != nil {
			return fmt.Errorf("unmarshal add_video event: %w", err)
		}

		return h.roomUsecase.HandleAddVideo(ctx, connID, addEvent)

	case events.TypeControlAction:
		var controlEvent events.ControlActionEvent

		if err := json.Unmarshal(msg.Data, &controlEvent); err != nil {
			return fmt.Errorf("unmarshal control_action event: %w", err)
		}

		return h.roomUsecase.HandleControl(ctx, connID, controlEvent)

	case events.TypeSeek:
		var seekEvent events.SeekEvent

		if err := json.Unmarshal(msg.Data, &seekEvent); err != nil {
			return fmt.Errorf("unmarshal seek_event: %w", err)
		}

		return h.roomUsecase.HandleSeek(ctx, connID, seekEvent)

	case events.TypeNextVideo, events.TypeVideoEnded:
		// Оба события идут в один путь, чтобы поведение не расходилось
		return h.roomUsecase.HandleNext(ctx, connID)

	case events.TypeMasterSyncForce:
		var forceEvent events.ForceSyncEvent

		if err := json.Unmarshal(msg.Data, &forceEvent); err != nil {
			return fmt.Errorf("unmarshal master_sync_force event: %w", err)
		}

		return h.roomUsecase.HandleForceSync(ctx, connID, forceEvent)

	case events.TypeShuffle:
		return h.roomUsecase.HandleShuffle(ctx, connID)

	case events.TypeRemove:
		var removeEvent events.RemoveEvent

		if err := json.Unmarshal(msg.Data, &removeEvent); err != nil {
			return fmt.Errorf("unmarshal remove event: %w", err)
		}

		return h.roomUsecase.HandleRemove(ctx, connID, removeEvent)

	case events.TypeToggleContinuation:
		var toggleEvent events.ToggleContinuationEvent

		if err := json.Unmarshal(msg.Data, &toggleEvent); err != nil {
			return fmt.Errorf("unmarshal toggle_continuation event: %w", err)
		}

		return h.roomUsecase.HandleToggleContinuation(ctx, connID, toggleEvent)

	case events.TypeRequestSync:
		return h.roomUsecase.HandleRequestSync(ctx, connID)

	default:
		return errors.New("unknown message type")
	}
}

func (h *WebSocketHandler) handleWebsocketError(connID uuid.UUID, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			slog.Info("user disconnected from websocket", slog.Any(constant.ConnID, connID))
		default:
			slog.Error("websocket close error", slog.Any(constant.Error, err))
		}
	} else {
		slog.Error(
			"websocket read",
			slog.Any(constant.Error, err),
		)
	}
}

package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"anima/internal/geofence"
	"anima/internal/location"
	"anima/internal/positioning"
	"anima/internal/workspace"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/httputil"
	"anima/pkg/requestcontext"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	stateBuffer    = 8
)

// Client messages on the watch socket.
const (
	watchMessageFix    = "fix"
	watchMessageStatus = "status"
	watchMessageState  = "state"
)

type watchInbound struct {
	Type   string        `json:"type"`
	Fix    *location.Fix `json:"fix,omitempty"`
	Status *statusReport `json:"status,omitempty"`
}

type watchOutbound struct {
	Type  string          `json:"type"`
	State *geofence.State `json:"state"`
}

// handleWatch upgrades to a websocket, starts a live watch on the caller's
// engine and streams every published state. The phone streams fixes back on
// the same socket. Closing the socket stops the watch.
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	mode, err := parseMode(query.Get("mode"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	siteID, err := parseOptionalSiteID(query.Get("site_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if _, err := ws.StartWatch(watchCtx, geofence.WatchOptions{Mode: mode, SiteID: siteID}); err != nil {
		if errors.Is(err, geofence.ErrWatchActive) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a watch is already active"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start watch"))
		return
	}
	defer ws.StopWatch()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			"user_id", ws.UserID,
			"error", err,
		)
		return
	}
	defer conn.Close()

	states := make(chan *geofence.State, stateBuffer)
	unsubscribe := ws.Engine.Subscribe(func(s *geofence.State) {
		select {
		case states <- s:
		default:
			// a newer state follows
		}
	})
	defer unsubscribe()

	h.logger.InfoContext(ctx, "watch started",
		"user_id", ws.UserID,
		"mode", mode,
		"request_id", requestcontext.RequestID(ctx),
	)
	go h.readWatch(watchCtx, cancel, conn, ws)
	h.writeWatch(watchCtx, conn, ws.Engine.Current(), states)
	h.logger.InfoContext(ctx, "watch stopped", "user_id", ws.UserID)
}

// readWatch feeds inbound fixes and status reports into the workspace until
// the socket fails, then cancels the watch.
func (h *Handler) readWatch(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, ws *workspace.Workspace) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	userAgent := requestcontext.UserAgent(ctx)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WarnContext(ctx, "watch socket closed", "user_id", ws.UserID, "error", err)
			}
			return
		}
		var msg watchInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.DebugContext(ctx, "invalid watch message", "user_id", ws.UserID, "error", err)
			continue
		}
		switch msg.Type {
		case watchMessageFix:
			if msg.Fix == nil || validateFix(0, *msg.Fix) != nil {
				continue
			}
			ws.Feed.Push(positioning.Stamp(*msg.Fix, h.now()))
		case watchMessageStatus:
			if msg.Status != nil {
				h.applyStatus(ws.Feed, userAgent, *msg.Status)
			}
		default:
			h.logger.DebugContext(ctx, "unknown watch message type", "user_id", ws.UserID, "type", msg.Type)
		}
	}
}

func (h *Handler) writeWatch(ctx context.Context, conn *websocket.Conn, initial *geofence.State, states <-chan *geofence.State) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	send := func(s *geofence.State) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(watchOutbound{Type: watchMessageState, State: s})
	}
	if err := send(initial); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case s := <-states:
			if err := send(s); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package call

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ai-voice-bridge-service/internal/observability/logging"
	"ai-voice-bridge-service/internal/service/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The telephony provider connects from its own infrastructure; origin
	// checks do not apply to server-to-server media streams.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler accepts telephony media WebSocket connections and runs one session
// per connection.
type Handler struct {
	base   Options
	collab Collaborators
}

// NewHandler creates the media endpoint handler. base supplies service-level
// defaults; per-call fields are filled from query parameters.
func NewHandler(base Options, collab Collaborators) *Handler {
	return &Handler{base: base, collab: collab}
}

// ServeHTTP upgrades the connection and drives the session until the socket
// closes. The call identifier is required before the upgrade so a misrouted
// request fails with a plain HTTP error instead of a dead WebSocket.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	callID := r.URL.Query().Get("call_id")
	if callID == "" {
		callID = r.URL.Query().Get("room")
	}
	if callID == "" {
		http.Error(w, "missing call_id parameter", http.StatusBadRequest)
		return
	}

	opts := h.base
	opts.CallID = callID
	opts.CampaignID = r.URL.Query().Get("campaign_id")
	if lang := r.URL.Query().Get("language"); lang != "" {
		opts.LanguageHint = lang
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("callId", callID).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := logging.WithCall(callID)
	session := NewSession(conn, opts, h.collab, logger)

	if err := session.Negotiate(r.Context()); err != nil {
		logger.Error().Err(err).Msg("Session negotiation failed")
		return
	}
	defer session.HandleDisconnect()

	for {
		var ev providerEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("Telephony connection closed unexpectedly")
			}
			return
		}
		session.HandleTelephonyEvent(ev)
		if session.lifecycle.State() == StateDraining || session.lifecycle.IsTerminal() {
			return
		}
	}
}

// DialRealtime adapts realtime.Dial to the session's AILeg contract.
func DialRealtime(ctx context.Context, cfg realtime.Config) (AILeg, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := realtime.Dial(dialCtx, cfg, log.Logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

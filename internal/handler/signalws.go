package handler

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/famlink/assist-server-go/internal/audit"
	apperrors "github.com/famlink/assist-server-go/internal/errors"
	redisclient "github.com/famlink/assist-server-go/internal/redis"
	"github.com/famlink/assist-server-go/internal/service"
	"github.com/famlink/assist-server-go/internal/signal"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

var signalCodePattern = regexp.MustCompile(`^[0-9A-Za-z]{4,12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Signaling carries no credentials and channel names are unguessable
	// short-lived codes; cross-origin browser clients are expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SignalHandler bridges websocket connections to the redis-backed signaling
// broker. Each frame must be a valid protocol envelope; anything else is
// dropped without disturbing the channel.
type SignalHandler struct {
	broker    *signal.Broker
	camTokens *service.CameraTokenService
}

func NewSignalHandler(broker *signal.Broker, camTokens *service.CameraTokenService) *SignalHandler {
	return &SignalHandler{broker: broker, camTokens: camTokens}
}

// GET /v1/signal/{code}
func (h *SignalHandler) Screen(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !signalCodePattern.MatchString(code) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid code"})
		return
	}

	h.bridge(w, r, redisclient.SignalChannel(code))
}

// GET /v1/signalcam/{code}?token=
//
// The camera channel is capability-gated: the token must resolve to the same
// support code as the path. A token for a different code gets a 403, an
// unknown or expired one surfaces the resolver's own status.
func (h *SignalHandler) Camera(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !signalCodePattern.MatchString(code) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid code"})
		return
	}
	// Support codes are canonically upper-case; the token resolver returns
	// them in that form.
	code = strings.ToUpper(code)

	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing camera token"})
		return
	}

	resolved, err := h.camTokens.ResolveToken(r.Context(), token)
	if err != nil {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventCameraTokenDenied, Code: code})
		writeError(w, err)
		return
	}
	if resolved != code {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventCameraTokenDenied, Code: code})
		writeError(w, apperrors.Forbidden("Token does not match this channel"))
		return
	}

	h.bridge(w, r, redisclient.CamSignalChannel(code))
}

func (h *SignalHandler) bridge(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Warn().Err(err).Str("channel", channel).Msg("websocket upgrade failed")
		return
	}

	sub := h.broker.Subscribe(channel)

	log.Info().Str("channel", channel).Msg("signal peer connected")

	done := make(chan struct{})
	go h.writePump(conn, sub, done)
	h.readPump(r, conn, channel)

	h.broker.Unsubscribe(sub)
	<-done
	conn.Close()

	log.Info().Str("channel", channel).Msg("signal peer disconnected")
}

// readPump relays inbound frames to the broker until the peer goes away.
func (h *SignalHandler) readPump(r *http.Request, conn *websocket.Conn, channel string) {
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("channel", channel).Msg("websocket read error")
			}
			return
		}

		env, err := signal.ParseEnvelope(data)
		if err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed signal frame")
			continue
		}

		if err := h.broker.Publish(r.Context(), channel, env); err != nil {
			log.Error().Err(err).Str("channel", channel).Msg("signal publish failed")
		}
	}
}

// writePump relays broker envelopes to the peer and keeps the connection
// alive with pings. Exits when the subscription or the connection dies.
func (h *SignalHandler) writePump(conn *websocket.Conn, sub *signal.Subscription, done chan<- struct{}) {
	defer close(done)
	// Closing the connection here unblocks readPump when the write side
	// fails first.
	defer conn.Close()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-sub.Envelopes:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-sub.Done:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

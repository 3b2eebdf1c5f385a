package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	apperrors "github.com/openclaw/wallet-relay-go/internal/errors"
	"github.com/openclaw/wallet-relay-go/internal/protocol"
	"github.com/openclaw/wallet-relay-go/internal/session"
	"github.com/openclaw/wallet-relay-go/internal/ws"
)

type WSHandler struct {
	store    *session.Store
	upgrader websocket.Upgrader
}

func NewWSHandler(store *session.Store) *WSHandler {
	return &WSHandler{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The mobile side connects from a wallet's in-app browser on a
			// different origin; origin checks would only break pairing.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GET /ws?session=<id>&role=<dapp|mobile>[&k=<secret>]
//
// Validation happens before the upgrade so failures surface as plain HTTP
// statuses the client libraries can act on.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	id := q.Get("session")
	if id == "" {
		writeError(w, apperrors.MissingRequired("session"))
		return
	}
	roleParam := q.Get("role")
	if roleParam == "" {
		writeError(w, apperrors.MissingRequired("role"))
		return
	}
	role, ok := session.ParseRole(roleParam)
	if !ok {
		writeError(w, apperrors.InvalidInput("role", "must be dapp or mobile"))
		return
	}

	if _, ok := h.store.Get(id); !ok {
		writeError(w, apperrors.SessionNotFound())
		return
	}

	if role == session.RoleMobile {
		if !h.store.VerifySecret(id, q.Get("k")) {
			writeError(w, apperrors.InvalidSecret())
			return
		}
		if h.store.IsMobileLocked(id) {
			writeError(w, apperrors.MobileLocked())
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote its own error response.
		log.Warn().Err(err).Str("sessionId", id).Msg("websocket upgrade failed")
		return
	}

	peer := ws.NewPeer(conn)

	// The pre-upgrade checks may have been raced; the register is the
	// authoritative one. Registering inside Attach keeps the ready frame
	// ahead of anything the opposite peer forwards to the fresh slot.
	var attach *session.Attach
	registered := peer.Attach(func() bool {
		a, ok := h.store.Register(id, role, peer)
		attach = a
		return ok
	}, protocol.Ready())
	if !registered {
		peer.Close(session.ClosePolicyError, "Session not found or already locked")
		return
	}

	if role == session.RoleDapp && attach.Peer != nil {
		attach.Peer.Send(protocol.DappReconnected())
	}

	h.readLoop(id, role, peer)
}

func (h *WSHandler) readLoop(id string, role session.Role, peer *ws.Peer) {
	defer func() {
		// A socket whose slot was already replaced by a reconnect must not
		// tell the survivor its peer is gone.
		if h.store.Unregister(id, role, peer) {
			if other := h.store.Peer(id, role); other != nil {
				other.Send(protocol.Disconnect("Peer disconnected"))
			}
		}
		peer.Close(session.CloseNormal, "")
	}()

	for {
		frame, err := peer.ReadFrame()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug().Err(err).Str("sessionId", id).Str("role", string(role)).Msg("websocket closed")
			}
			return
		}

		// Payloads stay opaque; the only routing decision is which peer is
		// on the other side right now.
		target := h.store.Peer(id, role)
		if target == nil {
			peer.Send(protocol.PeerNotConnected())
			continue
		}
		if err := target.Send(frame); err != nil {
			log.Error().Err(err).Str("sessionId", id).Str("role", string(role)).Msg("failed to forward frame")
		}
	}
}

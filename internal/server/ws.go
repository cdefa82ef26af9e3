package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"shootinggallery/internal/wshub"
)

const maxFrameBytes = 64 << 10

// handleWS upgrades the connection and feeds its frames, in order, to the relay.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		s.Log.Warn("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wsConn := wshub.NewWSConn(conn)
	client := s.Registry.Register(wsConn)
	s.Log.Info("new websocket connection", zap.String("clientId", client.ID), zap.String("remote", r.RemoteAddr))

	go func() {
		wsConn.WritePump(ctx, client.Send)
		cancel()
	}()

	s.Router.Welcome(client.ID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == -1 && !errors.Is(err, context.Canceled) {
				s.Log.Debug("websocket read error", zap.String("clientId", client.ID), zap.Error(err))
			}
			break
		}
		s.Router.Handle(ctx, client.ID, data)
	}

	s.Router.Disconnect(client.ID)
	conn.Close(websocket.StatusNormalClosure, "")
}

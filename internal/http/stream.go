package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// TapSocket upgrades to a websocket and streams live tap frames plus
// keepalives. There is no replay: a reconnecting client starts from the next
// published tap.
func (s *Server) TapSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := s.Hub.Subscribe()
	defer func() {
		s.Hub.Unsubscribe(sub)
		_ = conn.Close()
	}()

	// Drain the read side so client closes (graceful or abrupt) are noticed;
	// unsubscribing closes the channel and ends the write loop below.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.Hub.Unsubscribe(sub)
				return
			}
		}
	}()

	for msg := range sub.C() {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"skilld/internal/bus"
)

const (
	eventBuffer = 64
	writeWait   = 5 * time.Second
	pingPeriod  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts same-host origins, origin-less clients (CLIs) and, when
// CORS is enabled, the configured origins.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if corsEnabled {
		for _, o := range corsAllowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// topicFilter matches message types against ?topic= prefixes. No prefixes
// matches everything.
type topicFilter []string

func (f topicFilter) match(typ string) bool {
	if len(f) == 0 {
		return true
	}
	for _, p := range f {
		if strings.HasPrefix(typ, p) {
			return true
		}
	}
	return false
}

// eventsHandler streams bus messages to a websocket client as JSON objects.
// A client that cannot keep up loses messages rather than stalling the bus.
func eventsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := topicFilter(r.URL.Query()["topic"])
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already replied
			zlog.Debug().Err(err).Msg("http event=ws_upgrade_failed")
			return
		}
		defer conn.Close()
		eventStreamClients.Inc()
		defer eventStreamClients.Dec()

		ch := make(chan bus.Message, eventBuffer)
		unsub := svc.SubscribeEvents(func(msg bus.Message) {
			if !filter.match(msg.Type) {
				return
			}
			select {
			case ch <- msg:
			default:
				eventStreamDropped.Inc()
			}
		})
		defer unsub()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadLimit(512)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-closed:
				return
			case <-serverBaseCtx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			case msg := <-ch:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}
}

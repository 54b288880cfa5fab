package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame delivery so one stalled viewer cannot hold
// up the fan-out indefinitely; the deadline error gets the viewer evicted.
const writeWait = 10 * time.Second

// wsRecipient adapts a gorilla websocket connection to the Recipient
// interface. Writes are serialized with a mutex; gorilla connections allow
// only one concurrent writer.
type wsRecipient struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewWSRecipient wraps conn as a Recipient.
func NewWSRecipient(conn *websocket.Conn) Recipient {
	return &wsRecipient{conn: conn}
}

func (r *wsRecipient) Send(payload []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return r.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close is idempotent; repeated calls after eviction or shutdown are safe.
func (r *wsRecipient) Close() error {
	r.closeOnce.Do(func() {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
		_ = r.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = r.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = r.conn.Close()
	})
	return nil
}

package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipe upgrades one server-side connection and hands back both ends.
func pipe(t *testing.T) (*Peer, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	serverConn := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConn <- conn
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewPeer(<-serverConn), client
}

func TestPeerSend(t *testing.T) {
	t.Run("delivers text frames", func(t *testing.T) {
		peer, client := pipe(t)

		require.NoError(t, peer.Send([]byte(`{"type":"ready"}`)))

		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		msgType, data, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, msgType)
		assert.Equal(t, `{"type":"ready"}`, string(data))
	})

	t.Run("concurrent senders do not interleave frames", func(t *testing.T) {
		peer, client := pipe(t)

		const n = 50
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				peer.Send([]byte(`{"type":"chainChanged","chainId":1}`))
			}()
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			client.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, data, err := client.ReadMessage()
			require.NoError(t, err)
			assert.Equal(t, `{"type":"chainChanged","chainId":1}`, string(data))
		}
	})

	t.Run("fails after close", func(t *testing.T) {
		peer, _ := pipe(t)

		peer.Close(1000, "done")
		assert.Error(t, peer.Send([]byte("late")))
	})
}

func TestPeerAttach(t *testing.T) {
	t.Run("writes the greeting when register succeeds", func(t *testing.T) {
		peer, client := pipe(t)

		require.True(t, peer.Attach(func() bool { return true }, []byte(`{"type":"ready"}`)))

		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, `{"type":"ready"}`, string(data))
	})

	t.Run("writes nothing when register fails", func(t *testing.T) {
		peer, client := pipe(t)

		require.False(t, peer.Attach(func() bool { return false }, []byte(`{"type":"ready"}`)))
		peer.Close(1008, "denied")

		// the next thing on the wire is the close frame, not the greeting
		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := client.ReadMessage()
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
	})

	t.Run("greeting precedes sends racing the attach", func(t *testing.T) {
		peer, client := pipe(t)

		sent := make(chan struct{})
		ok := peer.Attach(func() bool {
			// a forwarder finds the handle the moment register publishes it
			go func() {
				peer.Send([]byte(`{"type":"request","id":1}`))
				close(sent)
			}()
			time.Sleep(20 * time.Millisecond)
			return true
		}, []byte(`{"type":"ready"}`))
		require.True(t, ok)
		<-sent

		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, first, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, `{"type":"ready"}`, string(first))

		_, second, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, `{"type":"request","id":1}`, string(second))
	})
}

func TestPeerClose(t *testing.T) {
	t.Run("sends close code and reason", func(t *testing.T) {
		peer, client := pipe(t)

		peer.Close(1008, "Session not found or already locked")

		client.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := client.ReadMessage()
		require.Error(t, err)
		closeErr, ok := err.(*websocket.CloseError)
		require.True(t, ok, "expected close error, got %v", err)
		assert.Equal(t, 1008, closeErr.Code)
		assert.Equal(t, "Session not found or already locked", closeErr.Text)
	})

	t.Run("is idempotent", func(t *testing.T) {
		peer, _ := pipe(t)
		peer.Close(1000, "")
		peer.Close(1000, "")
	})
}

package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/notification"
	"github.com/xiebiao/library/pkg/mq"
)

func TestHub_BroadcastsToConnectedClients(t *testing.T) {
	hub := NewHub(quiet)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, 1)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Send(context.Background(), event(notification.KindFineIncurred, "please pay the fine")))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, body, err := conn.ReadMessage()
	require.NoError(t, err)

	var got notification.Event
	require.NoError(t, mq.Decode(body, &got))
	assert.Equal(t, notification.KindFineIncurred, got.Kind)
	assert.Equal(t, "please pay the fine", got.Text)

	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_SendAfterStop(t *testing.T) {
	hub := NewHub(quiet)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case <-hub.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// broadcast有缓冲，填满后只能走done分支
	require.Eventually(t, func() bool {
		return hub.Send(context.Background(), event(notification.KindBorrowingCreated, "x")) != nil
	}, time.Second, time.Millisecond)
}

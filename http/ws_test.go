package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svmpredict/workflow"
)

func dialSession(t *testing.T) (*websocket.Conn, *SessionHub) {
	t.Helper()
	wf := testWorkflow(t, nil)
	hub := NewSessionHub(wf, nil)
	srv := httptest.NewServer(NewRouter(DefaultServerConfig(), wf, nil, hub, nil))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, hub
}

func readReply(t *testing.T, conn *websocket.Conn) Reply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply Reply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestSessionChannel(t *testing.T) {
	conn, hub := dialSession(t)

	first := readReply(t, conn)
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "select", first.Action)
	assert.Equal(t, "Fish Dataset", first.View.Dataset)
	assert.Equal(t, workflow.StateAwaitingInput, first.View.State)
	assert.Equal(t, 1, hub.Len())

	require.NoError(t, conn.WriteJSON(Action{Action: "select", Dataset: "Pumpkin Dataset"}))
	reply := readReply(t, conn)
	assert.Empty(t, reply.Error)
	assert.Equal(t, first.SessionID, reply.SessionID)
	assert.Len(t, reply.View.Fields, 12)

	require.NoError(t, conn.WriteJSON(Action{Action: "predict"}))
	reply = readReply(t, conn)
	require.Empty(t, reply.Error)
	assert.Equal(t, workflow.StateResultShown, reply.View.State)
	require.NotNil(t, reply.View.Result)
	assert.Equal(t, "Çerçevelik", reply.View.Result.Label)

	require.NoError(t, conn.WriteJSON(Action{Action: "input", Feature: "Area", Value: 1}))
	reply = readReply(t, conn)
	require.Empty(t, reply.Error)
	assert.Equal(t, workflow.StateAwaitingInput, reply.View.State)
	assert.Nil(t, reply.View.Result)
	assert.Equal(t, 1.0, reply.View.Fields[0].Value)
}

func TestSessionChannelErrors(t *testing.T) {
	conn, _ := dialSession(t)
	readReply(t, conn)

	tests := []struct {
		name    string
		message string
		wantErr string
	}{
		{"unknown dataset", `{"action":"select","dataset":"Bird"}`, "unknown dataset"},
		{"unknown feature", `{"action":"input","feature":"height","value":1}`, "unknown feature"},
		{"unknown action", `{"action":"train"}`, "unknown action"},
		{"invalid json", `{"action":`, "invalid message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.message)))
			reply := readReply(t, conn)
			assert.Contains(t, reply.Error, tt.wantErr)
			assert.Equal(t, "Fish Dataset", reply.View.Dataset)
		})
	}
}

func TestReplyAfterWriterExit(t *testing.T) {
	hub := NewSessionHub(testWorkflow(t, nil), nil)
	c := &client{id: "closed", send: make(chan []byte), done: make(chan struct{})}
	close(c.done)

	returned := make(chan bool, 1)
	go func() { returned <- hub.reply(c, Reply{SessionID: c.id}) }()

	select {
	case ok := <-returned:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("reply blocked on a session whose writer has exited")
	}
}

func TestStalledClientIsDropped(t *testing.T) {
	wf := testWorkflow(t, nil)
	hub := NewSessionHub(wf, nil)
	hub.writeWait = 50 * time.Millisecond
	srv := httptest.NewServer(NewRouter(DefaultServerConfig(), wf, nil, hub, nil))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Ask for views without ever reading the replies.
	view := []byte(`{"action":"view"}`)
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < 20000; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, view); err != nil {
			break
		}
	}
	time.Sleep(200 * time.Millisecond)
	conn.Close()

	assert.Eventually(t, func() bool { return hub.Len() == 0 }, 5*time.Second, 20*time.Millisecond)
}

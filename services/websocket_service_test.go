package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tasknotes/tasknotes/broker"
	"tasknotes/tasknotes/models"
	"tasknotes/tasknotes/testutils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsTestEnv struct {
	service *WebSocketService
	input   chan *nats.Msg
	server  *httptest.Server
}

// setupWebSocketTest starts a hub behind a test server. The ?as= query
// parameter stands in for the websocket auth middleware.
func setupWebSocketTest(t *testing.T) *wsTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := NewWebSocketService()
	input := make(chan *nats.Msg, 16)
	service.SetInputChannel(input)
	service.Start()

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		if id, err := uuid.Parse(c.Query("as")); err == nil {
			c.Set("userID", id)
		}
		service.HandleConnection(c)
	})
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		service.Stop()
		server.Close()
	})
	return &wsTestEnv{service: service, input: input, server: server}
}

func (env *wsTestEnv) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?as=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (env *wsTestEnv) publish(t *testing.T, subject, event, entity string, owner uuid.UUID) {
	t.Helper()
	msg := models.NewStandardMessage(models.EventMessage, event, map[string]interface{}{
		"entity": entity,
	}).ForUser(owner.String())
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	env.input <- &nats.Msg{Subject: subject, Data: data}
}

func (env *wsTestEnv) clientOf(userID uuid.UUID) *Client {
	env.service.clientsMutex.RLock()
	defer env.service.clientsMutex.RUnlock()
	for _, client := range env.service.clients {
		if client.UserID == userID {
			return client
		}
	}
	return nil
}

func readEvent(t *testing.T, conn *websocket.Conn) models.StandardMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg models.StandardMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func assertNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocketService_DeliversOnlyToOwner(t *testing.T) {
	env := setupWebSocketTest(t)
	alice, bob := uuid.New(), uuid.New()

	aliceConn := env.dial(t, alice)
	bobConn := env.dial(t, bob)
	assert.Eventually(t, func() bool { return env.service.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	env.publish(t, broker.TaskSubject, "task.created", "task", alice)

	msg := readEvent(t, aliceConn)
	assert.Equal(t, models.EventMessage, msg.Type)
	assert.Equal(t, "task.created", msg.Event)
	assert.Equal(t, alice.String(), msg.UserID)

	assertNoEvent(t, bobConn)
}

func TestWebSocketService_Subscriptions(t *testing.T) {
	env := setupWebSocketTest(t)
	alice := uuid.New()

	conn := env.dial(t, alice)
	assert.Eventually(t, func() bool { return env.clientOf(alice) != nil }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "unsubscribe",
		"payload": map[string]string{"resource": "all"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "subscribe",
		"payload": map[string]string{"resource": "note"},
	}))

	client := env.clientOf(alice)
	require.NotNil(t, client)
	assert.Eventually(t, func() bool {
		return client.subscribed("note") && !client.subscribed("task")
	}, 2*time.Second, 10*time.Millisecond)

	env.publish(t, broker.TaskSubject, "task.updated", "task", alice)
	env.publish(t, broker.NoteSubject, "note.created", "note", alice)

	msg := readEvent(t, conn)
	assert.Equal(t, "note.created", msg.Event)
}

func TestWebSocketService_DisconnectUnregisters(t *testing.T) {
	env := setupWebSocketTest(t)

	conn := env.dial(t, uuid.New())
	assert.Eventually(t, func() bool { return env.service.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return env.service.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketService_RequiresUser(t *testing.T) {
	service := NewWebSocketService()

	w := httptest.NewRecorder()
	c := testutils.GetTestGinContext(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	service.HandleConnection(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, service.ClientCount())
}

func TestWebSocketService_StartStop(t *testing.T) {
	service := NewWebSocketService()
	service.Start()
	service.Start()
	service.Stop()
	assert.NotPanics(t, service.Stop)
}

package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/middleware"
	"tutorly-backend/internal/models"
	"tutorly-backend/internal/progress"
)

const testSecret = "hub-secret"

func newTestHub(t *testing.T) (*Hub, *redis.Client, *httptest.Server) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	hub := NewHub(client, middleware.NewJWTAuth(testSecret), "http://localhost:9002", logger.Nop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))

	t.Cleanup(func() {
		srv.Close()
		hub.Close()
		client.Close()
	})
	return hub, client, srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
}

func tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestHub_RejectsMissingToken(t *testing.T) {
	_, _, srv := newTestHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_RelaysProgressErrors(t *testing.T) {
	_, client, srv := newTestHub(t)
	userID := uuid.New()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, tokenFor(t, userID)), nil)
	require.NoError(t, err)
	defer ws.Close()

	notifier := progress.NewRedisNotifier(client)
	evt := models.ProgressErrorEvent{PlanID: uuid.New(), SessionID: "s1", ErrorCode: "PERSISTENCE_DENIED", Message: "not saved"}

	// the subscription is opened asynchronously
	channel := progress.UserChannel(userID)
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(context.Background(), channel).Result()
		return err == nil && n[channel] > 0
	}, 2*time.Second, 20*time.Millisecond)
	require.NoError(t, notifier.PublishProgressError(context.Background(), userID, evt))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string                    `json:"type"`
		Payload models.ProgressErrorEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, progress.MessageTypeProgressError, msg.Type)
	assert.Equal(t, "s1", msg.Payload.SessionID)
	assert.Equal(t, "PERSISTENCE_DENIED", msg.Payload.ErrorCode)
}

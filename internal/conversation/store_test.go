package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/logger"
	"tutorly-backend/internal/models"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour, nil), mr
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	conv := &models.Conversation{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		ProfileID:     uuid.New(),
		ActiveSession: &models.StudySession{ID: "s1", Topic: "Fractions"},
		SessionStart:  &start,
		History: []models.ChatTurn{
			{Role: models.RoleLearner, Question: "explain fractions"},
		},
	}
	require.NoError(t, store.Save(ctx, conv))
	assert.Equal(t, time.Hour, mr.TTL(conversationKey(conv.ID)))

	got, err := store.Get(ctx, conv.UserID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ActiveSession.ID)
	assert.True(t, got.SessionStart.Equal(start))
	require.Len(t, got.History, 1)
	assert.Equal(t, "explain fractions", got.History[0].Question)
}

func TestRedisStore_GetNotFound(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, uuid.New(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	conv := &models.Conversation{ID: uuid.New(), UserID: uuid.New()}
	require.NoError(t, store.Save(ctx, conv))

	_, err = store.Get(ctx, uuid.New(), conv.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "other learners cannot read it")

	got, err := store.Get(ctx, conv.UserID, conv.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.History)

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, conv.UserID, conv.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "expired")
}

func TestRedisStore_LockRejectsOverlappingTurns(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	release, err := store.Lock(ctx, id)
	require.NoError(t, err)

	_, err = store.Lock(ctx, id)
	assert.Equal(t, apperr.KindTurnInFlight, apperr.KindOf(err))

	release()
	assert.False(t, mr.Exists(lockKey(id)))

	release2, err := store.Lock(ctx, id)
	require.NoError(t, err)
	defer release2()
}

func TestRedisStore_StaleReleaseKeepsNewLock(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	staleRelease, err := store.Lock(ctx, id)
	require.NoError(t, err)

	// first holder's lock expires and someone else takes over
	mr.FastForward(lockTTL + time.Second)
	_, err = store.Lock(ctx, id)
	require.NoError(t, err)

	staleRelease()
	assert.True(t, mr.Exists(lockKey(id)))
}

func TestRedisStore_FailedReleaseIsLogged(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	core, logs := observer.New(zap.WarnLevel)
	store := NewRedisStore(client, time.Hour, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})
	id := uuid.New()

	release, err := store.Lock(context.Background(), id)
	require.NoError(t, err)

	mr.SetError("ERR backend unavailable")
	release()
	mr.SetError("")

	entries := logs.FilterMessage("Conversation lock release failed, held until expiry").All()
	require.Len(t, entries, 1)
	assert.Equal(t, id.String(), entries[0].ContextMap()["conversation_id"])
	assert.True(t, mr.Exists(lockKey(id)))
}

package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mirror-chat-study/pkg/errors"
)

func TestStoreCreateAndGet(t *testing.T) {
	s := NewStore(0, 0)
	defer s.Close()

	session := s.Create(context.Background())
	require.NotNil(t, session)
	assert.Len(t, session.UserID, 8)

	got, err := s.Get(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)
}

func TestStoreGetMissing(t *testing.T) {
	s := NewStore(0, 0)
	defer s.Close()

	_, err := s.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionNotFound, apperrors.AsAppError(err).Code)
}

func TestStoreDeleteIdempotent(t *testing.T) {
	s := NewStore(0, 0)
	defer s.Close()

	session := s.Create(context.Background())
	s.Delete(context.Background(), session.ID)
	s.Delete(context.Background(), session.ID)
	assert.Zero(t, s.Len())
}

func TestStoreEvictExpired(t *testing.T) {
	s := NewStore(time.Minute, time.Hour)
	defer s.Close()

	stale := s.Create(context.Background())
	fresh := s.Create(context.Background())
	fresh.Lock()
	fresh.UpdatedAt = time.Now()
	fresh.Unlock()
	stale.Lock()
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	stale.Unlock()

	s.evictExpired(time.Now())

	_, err := s.Get(context.Background(), stale.ID)
	assert.Error(t, err)
	_, err = s.Get(context.Background(), fresh.ID)
	assert.NoError(t, err)
}

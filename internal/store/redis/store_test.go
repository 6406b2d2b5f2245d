package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"onboarding-agent/internal/domain"
	"onboarding-agent/internal/store"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := NewFromClient(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func testSession(id string) *domain.Session {
	return &domain.Session{
		ID:            id,
		Identity:      "user-1",
		Status:        domain.StatusQuestion,
		CurrentStepID: "display_name",
		Steps: []domain.StepProgress{
			{StepID: "display_name", Status: domain.StepCurrent},
			{StepID: "birthday", Status: domain.StepUpcoming},
		},
		Answers:   map[string]domain.Answer{},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_CreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testSession("s1")))
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "s1", got.ID)
	require.Equal(t, "display_name", got.CurrentStepID)
	require.EqualValues(t, 0, got.Revision)
}

func TestStore_CreateDuplicateConflicts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testSession("s1")))
	require.ErrorIs(t, s.Create(ctx, testSession("s1")), store.ErrConflict)
}

func TestStore_SaveBumpsRevision(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, testSession("s1")))

	sess, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	sess.CurrentStepID = "birthday"
	require.NoError(t, s.Save(ctx, sess))
	require.EqualValues(t, 1, sess.Revision)

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "birthday", got.CurrentStepID)
	require.EqualValues(t, 1, got.Revision)
}

func TestStore_SaveStaleRevisionConflicts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, testSession("s1")))

	a, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	b, err := s.Get(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, a))
	require.ErrorIs(t, s.Save(ctx, b), store.ErrConflict)
}

func TestStore_SaveUnknownSession(t *testing.T) {
	s, _ := newTestStore(t)
	require.ErrorIs(t, s.Save(context.Background(), testSession("ghost")), store.ErrNotFound)
}

func TestStore_TTLApplied(t *testing.T) {
	s, mr := newTestStore(t, WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testSession("s1")))
	ttl := mr.TTL("onboarding:session:s1")
	require.Greater(t, ttl, time.Duration(0))

	mr.FastForward(2 * time.Hour)
	_, err := s.Get(ctx, "s1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_PrefixOverride(t *testing.T) {
	s, mr := newTestStore(t, WithPrefix("custom:"))
	require.NoError(t, s.Create(context.Background(), testSession("s1")))
	require.True(t, mr.Exists("custom:s1"))
}

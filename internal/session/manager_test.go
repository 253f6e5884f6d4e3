package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/research"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := NewManager(config.RedisConfig{Addr: mr.Addr()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCreateAndGet(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	sess := &Session{ID: "s1", Topic: "quantum computing", MaxAnalysts: 3}
	require.NoError(t, m.Create(ctx, sess))

	got, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "quantum computing", got.Topic)
	assert.Equal(t, PhaseGenerating, got.Phase)
	assert.Zero(t, got.Revision)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGet_SurvivesCacheLoss(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, &Session{ID: "s1", Topic: "t"}))

	// Drop the local cache to force a Redis round trip.
	m.mu.Lock()
	m.localCache = make(map[string]*Session)
	m.mu.Unlock()

	got, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Topic)
}

func TestSetPersonas_ReplacesBatchAndBumpsRevision(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, &Session{ID: "s1", Topic: "t"}))

	first := []research.Analyst{{Name: "A", Role: "r", Affiliation: "x", Description: "d"}}
	require.NoError(t, m.SetPersonas(ctx, "s1", first))

	sess, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Revision)
	assert.Equal(t, PhaseAwaitingFeedback, sess.Phase)

	second := []research.Analyst{
		{Name: "B", Role: "r", Affiliation: "y", Description: "d"},
		{Name: "C", Role: "r", Affiliation: "z", Description: "d"},
	}
	require.NoError(t, m.SetPersonas(ctx, "s1", second))

	sess, err = m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Revision)
	require.Len(t, sess.Analysts, 2)
	assert.Equal(t, "B", sess.Analysts[0].Name)
}

func TestAppendTokenUsage_Accumulates(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, &Session{ID: "s1"}))

	require.NoError(t, m.AppendTokenUsage(ctx, "s1", 100))
	require.NoError(t, m.AppendTokenUsage(ctx, "s1", 250))
	require.NoError(t, m.AppendTokenUsage(ctx, "s1", 7))

	sess, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []int{100, 250, 7}, sess.TokenUsage)
	assert.Equal(t, 357, sess.TotalTokens())
}

func TestSetName_FirstWriteWins(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, &Session{ID: "s1"}))

	require.NoError(t, m.SetName(ctx, "s1", "Quantum Deep Dive"))
	require.NoError(t, m.SetName(ctx, "s1", "Should Not Replace"))

	sess, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Quantum Deep Dive", sess.Name)
}

func TestSetFinalReport_CompletesSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, &Session{ID: "s1"}))

	require.NoError(t, m.SetFinalReport(ctx, "s1", "# Report"))
	sess, err := m.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, sess.Phase)
	assert.Equal(t, "# Report", sess.FinalReport)
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Create(ctx, &Session{ID: "s1"}))
	require.NoError(t, m.Delete(ctx, "s1"))
	_, err := m.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

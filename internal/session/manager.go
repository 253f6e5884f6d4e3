package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/metrics"
	"github.com/roundtable-ai/orchestrator/internal/research"
)

// Store is the capability activities and the service boundary depend on. The
// Redis manager is the production implementation; tests may substitute.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	SetPersonas(ctx context.Context, sessionID string, analysts []research.Analyst) error
	SetPhase(ctx context.Context, sessionID string, phase Phase) error
	SetName(ctx context.Context, sessionID string, name string) error
	AppendTokenUsage(ctx context.Context, sessionID string, tokens int) error
	SetFinalReport(ctx context.Context, sessionID string, report string) error
}

// Manager handles session records with a Redis backend and a local cache.
type Manager struct {
	client     *redis.Client
	logger     *zap.Logger
	ttl        time.Duration
	mu         sync.RWMutex
	localCache map[string]*Session
}

// NewManager creates a session manager and verifies the Redis connection.
func NewManager(cfg config.RedisConfig, logger *zap.Logger) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Manager{
		client:     client,
		logger:     logger,
		ttl:        24 * time.Hour,
		localCache: make(map[string]*Session),
	}, nil
}

// Create stores a new session record. Timestamps and TTL are filled here.
func (m *Manager) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("session requires an id")
	}
	now := time.Now()
	sess.CreatedAt = now
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(m.ttl)
	if sess.Phase == "" {
		sess.Phase = PhaseGenerating
	}

	if err := m.save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.localCache[sess.ID] = sess
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	m.logger.Info("Created research session",
		zap.String("session_id", sess.ID),
		zap.String("topic", sess.Topic),
	)
	metrics.SessionsCreated.Inc()
	return nil
}

// Get retrieves a session by ID, consulting the local cache first.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	if sess, ok := m.localCache[sessionID]; ok {
		m.mu.RUnlock()
		metrics.SessionCacheHits.Inc()
		if sess.IsExpired() {
			return nil, ErrSessionExpired
		}
		return sess, nil
	}
	m.mu.RUnlock()
	metrics.SessionCacheMisses.Inc()

	data, err := m.client.Get(ctx, m.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.IsExpired() {
		return nil, ErrSessionExpired
	}

	m.mu.Lock()
	m.localCache[sessionID] = &sess
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()

	return &sess, nil
}

// SetPersonas replaces the persona batch and bumps the revision. Regeneration
// fully replaces the prior batch; there is no merge.
func (m *Manager) SetPersonas(ctx context.Context, sessionID string, analysts []research.Analyst) error {
	return m.update(ctx, sessionID, func(sess *Session) {
		sess.Analysts = analysts
		sess.Revision++
		sess.Phase = PhaseAwaitingFeedback
	})
}

// SetPhase records a lifecycle transition.
func (m *Manager) SetPhase(ctx context.Context, sessionID string, phase Phase) error {
	return m.update(ctx, sessionID, func(sess *Session) {
		sess.Phase = phase
	})
}

// SetName records the generated session name (first write wins).
func (m *Manager) SetName(ctx context.Context, sessionID string, name string) error {
	return m.update(ctx, sessionID, func(sess *Session) {
		if sess.Name == "" {
			sess.Name = name
		}
	})
}

// AppendTokenUsage records one usage increment. Increments are append-only and
// never reset within a session.
func (m *Manager) AppendTokenUsage(ctx context.Context, sessionID string, tokens int) error {
	return m.update(ctx, sessionID, func(sess *Session) {
		sess.TokenUsage = append(sess.TokenUsage, tokens)
	})
}

// SetFinalReport stores the finalized report and marks the session completed.
func (m *Manager) SetFinalReport(ctx context.Context, sessionID string, report string) error {
	return m.update(ctx, sessionID, func(sess *Session) {
		sess.FinalReport = report
		sess.Phase = PhaseCompleted
	})
}

// Delete removes a session record.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := m.client.Del(ctx, m.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	m.mu.Lock()
	delete(m.localCache, sessionID)
	metrics.SessionCacheSize.Set(float64(len(m.localCache)))
	m.mu.Unlock()
	return nil
}

// Close closes the Redis client.
func (m *Manager) Close() error {
	return m.client.Close()
}

func (m *Manager) update(ctx context.Context, sessionID string, mutate func(*Session)) error {
	sess, err := m.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	mutate(sess)
	sess.UpdatedAt = time.Now()
	if err := m.save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.mu.Lock()
	m.localCache[sessionID] = sess
	m.mu.Unlock()
	return nil
}

func (m *Manager) key(sessionID string) string {
	return fmt.Sprintf("research:session:%s", sessionID)
}

func (m *Manager) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = m.ttl
	}
	return m.client.Set(ctx, m.key(sess.ID), data, ttl).Err()
}

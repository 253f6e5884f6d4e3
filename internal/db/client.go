// Package db archives completed research runs to Postgres. Archive writes are
// best-effort: a failed insert is logged and retried by the queue, never
// surfaced into the workflow.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/roundtable-ai/orchestrator/internal/config"
	"github.com/roundtable-ai/orchestrator/internal/metrics"
)

// ResearchRecord is one archived research run.
type ResearchRecord struct {
	SessionID   string    `db:"session_id"`
	Topic       string    `db:"topic"`
	SessionName string    `db:"session_name"`
	FinalReport string    `db:"final_report"`
	TokensUsed  int       `db:"tokens_used"`
	AnalystsN   int       `db:"analysts"`
	CompletedAt time.Time `db:"completed_at"`
}

// Client manages the archive connection and an async write queue.
type Client struct {
	db         *sqlx.DB
	logger     *zap.Logger
	writeQueue chan ResearchRecord
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewClient opens the archive database and starts the write worker.
func NewClient(cfg config.PostgresConfig, logger *zap.Logger) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to archive database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	c := newClientWithDB(db, logger)
	logger.Info("Archive database connected",
		zap.String("host", cfg.Host), zap.String("database", cfg.Database))
	return c, nil
}

func newClientWithDB(db *sqlx.DB, logger *zap.Logger) *Client {
	c := &Client{
		db:         db,
		logger:     logger,
		writeQueue: make(chan ResearchRecord, 64),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Archive queues a completed run for insertion. Drops the record if the queue
// is full rather than blocking a workflow completion path.
func (c *Client) Archive(record ResearchRecord) {
	select {
	case c.writeQueue <- record:
	default:
		c.logger.Warn("Archive queue full, dropping record",
			zap.String("session_id", record.SessionID))
		metrics.ArchiveWrites.WithLabelValues("dropped").Inc()
	}
}

const insertResearchSQL = `
	INSERT INTO research_runs
		(session_id, topic, session_name, final_report, tokens_used, analysts, completed_at)
	VALUES
		(:session_id, :topic, :session_name, :final_report, :tokens_used, :analysts, :completed_at)
	ON CONFLICT (session_id) DO UPDATE SET
		final_report = EXCLUDED.final_report,
		tokens_used  = EXCLUDED.tokens_used,
		completed_at = EXCLUDED.completed_at`

func (c *Client) writeLoop() {
	defer close(c.doneCh)
	for {
		select {
		case record := <-c.writeQueue:
			c.insert(record)
		case <-c.stopCh:
			// Drain whatever is still queued before shutting down.
			for {
				select {
				case record := <-c.writeQueue:
					c.insert(record)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) insert(record ResearchRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.db.NamedExecContext(ctx, insertResearchSQL, record); err != nil {
		c.logger.Error("Failed to archive research run",
			zap.String("session_id", record.SessionID), zap.Error(err))
		metrics.ArchiveWrites.WithLabelValues("error").Inc()
		return
	}
	metrics.ArchiveWrites.WithLabelValues("ok").Inc()
}

// GetRun loads an archived run by session id.
func (c *Client) GetRun(ctx context.Context, sessionID string) (*ResearchRecord, error) {
	var record ResearchRecord
	err := c.db.GetContext(ctx, &record,
		`SELECT session_id, topic, session_name, final_report, tokens_used, analysts, completed_at
		 FROM research_runs WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load research run: %w", err)
	}
	return &record, nil
}

// Close stops the write worker, drains the queue, and closes the pool.
func (c *Client) Close() error {
	close(c.stopCh)
	<-c.doneCh
	return c.db.Close()
}

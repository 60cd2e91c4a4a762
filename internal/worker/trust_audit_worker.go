package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/certvault/certvault-backend/internal/config"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// TrustAuditWorker drains the trust audit queue into PostgreSQL in batches.
// Evaluations happen on the hot revalidation path; persistence is deferred
// here so a slow database never delays a candidate.
type TrustAuditWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewTrustAuditWorker creates a new TrustAuditWorker.
func NewTrustAuditWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *TrustAuditWorker {
	return &TrustAuditWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "trust_audit_worker").Logger(),
	}
}

type trustAuditPayload struct {
	SessionID string   `json:"session_id"`
	Tier      string   `json:"tier"`
	Verified  bool     `json:"verified"`
	Method    string   `json:"method"`
	Issues    []string `json:"issues,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// Start runs the drain loop until the context is cancelled.
func (w *TrustAuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("TrustAuditWorker started")

	buffer := make([]*trustAuditPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size).
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown).
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop blocks for PollTimeout, returning
		// immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistTrustAuditsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer.
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		// 4. Process data.
		if len(result) < 2 {
			continue
		}

		var payload trustAuditPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *TrustAuditWorker) flushSafe(ctx context.Context, batch []*trustAuditPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *TrustAuditWorker) bulkInsert(ctx context.Context, batch []*trustAuditPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			// Trigger the fallback, which drops the bad row individually.
			return err
		}
		rows = append(rows, []interface{}{
			sessionID, p.Tier, p.Verified, p.Method, p.Issues, time.Unix(p.Timestamp, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"trust_audits"},
		[]string{"session_id", "tier", "verified", "method", "issues", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *TrustAuditWorker) fallbackInsert(ctx context.Context, batch []*trustAuditPayload) {
	requeueList := make([]*trustAuditPayload, 0)

	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			w.log.Error().Str("session_id", p.SessionID).Msg("Dropping trust audit with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO trust_audits (session_id, tier, verified, method, issues, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			sessionID, p.Tier, p.Verified, p.Method, p.Issues, time.Unix(p.Timestamp, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *TrustAuditWorker) requeue(ctx context.Context, items []*trustAuditPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistTrustAuditsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
		// Back off a little if the database is down hard.
		time.Sleep(2 * time.Second)
	}
}

func (w *TrustAuditWorker) shutdown(buffer []*trustAuditPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

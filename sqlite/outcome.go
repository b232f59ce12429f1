package sqlite

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/websift"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ websift.OutcomeService = (*OutcomeService)(nil)

// OutcomeService implements websift.OutcomeService using SQLite.
type OutcomeService struct {
	db  *DB
	now func() time.Time
}

// NewOutcomeService creates a new OutcomeService.
func NewOutcomeService(db *DB) *OutcomeService {
	return &OutcomeService{db: db, now: time.Now}
}

// hashContent computes the xxHash of content as a hex string.
func hashContent(content string) string {
	return strconv.FormatUint(xxhash.Sum64String(content), 16)
}

// RecordOutcome stores a finished race and its attempts in one transaction.
func (s *OutcomeService) RecordOutcome(ctx context.Context, query string, o *websift.ExtractionOutcome) error {
	if o == nil || o.URL == "" {
		return websift.Errorf(websift.EINVALID, "outcome URL required")
	}

	var (
		score     int
		tier      websift.Tier
		wordCount int
		hash      string
	)
	if o.Score != nil {
		score, tier = o.Score.Score, o.Score.Tier
	}
	if o.Result != nil {
		wordCount = o.Result.WordCount
		hash = o.Result.ContentHash
		if hash == "" && o.Result.Content != "" {
			hash = hashContent(o.Result.Content)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO outcomes (id, query, url, position, state, strategy, score, tier, partial, elapsed_ns, word_count, content_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, query, o.URL, o.Position, string(o.State), o.WinningStrategy, score, string(tier),
		o.Partial, int64(o.TotalElapsed), wordCount, hash, formatTime(s.now()))
	if err != nil {
		return err
	}

	for _, a := range o.Attempts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attempts (id, outcome_id, strategy, status, score, tier, elapsed_ns, err)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), id, a.StrategyID, string(a.Status), a.Score, string(a.Tier),
			int64(a.Elapsed), a.Err)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindOutcomes retrieves recorded outcomes matching the filter, most recent first.
func (s *OutcomeService) FindOutcomes(ctx context.Context, filter websift.OutcomeFilter) ([]*websift.RecordedOutcome, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, query, url, state, strategy, score, tier, partial, elapsed_ns, recorded_at FROM outcomes WHERE 1=1")

	if filter.Query != nil {
		query.WriteString(" AND query = ?")
		args = append(args, *filter.Query)
	}
	if filter.URL != nil {
		query.WriteString(" AND url = ?")
		args = append(args, *filter.URL)
	}

	query.WriteString(" ORDER BY recorded_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*websift.RecordedOutcome
	for rows.Next() {
		var (
			o          websift.RecordedOutcome
			state      string
			tier       string
			elapsed    int64
			recordedAt string
		)
		if err := rows.Scan(&o.ID, &o.Query, &o.URL, &state, &o.Strategy, &o.Score, &tier,
			&o.Partial, &elapsed, &recordedAt); err != nil {
			return nil, err
		}
		o.State = websift.RaceState(state)
		o.Tier = websift.Tier(tier)
		o.Elapsed = time.Duration(elapsed)
		if o.RecordedAt, err = parseRFC3339(recordedAt, "recorded_at"); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

// StrategyStats aggregates attempt history per strategy, ordered by name.
// Mean score only counts attempts that produced a scored result.
func (s *OutcomeService) StrategyStats(ctx context.Context) ([]websift.StrategyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy,
			COUNT(*),
			COALESCE(SUM(status = 'won'), 0),
			COALESCE(SUM(status = 'failed'), 0),
			COALESCE(SUM(status = 'timeout'), 0),
			COALESCE(SUM(status = 'canceled'), 0),
			AVG(elapsed_ns),
			AVG(CASE WHEN status IN ('won', 'discarded') AND tier != '' THEN score END)
		FROM attempts
		GROUP BY strategy
		ORDER BY strategy
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []websift.StrategyStat
	for rows.Next() {
		var (
			st        websift.StrategyStat
			elapsed   sql.NullFloat64
			meanScore sql.NullFloat64
		)
		if err := rows.Scan(&st.StrategyID, &st.Attempts, &st.Wins, &st.Failures, &st.Timeouts,
			&st.Canceled, &elapsed, &meanScore); err != nil {
			return nil, err
		}
		st.MeanElapsed = time.Duration(elapsed.Float64)
		st.MeanScore = meanScore.Float64
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

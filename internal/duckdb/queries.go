package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/vsource/hero/internal/model"
)

var (
	_ model.ImpressionWriter = (*Store)(nil)
	_ model.StatsQuerier     = (*Store)(nil)
)

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// InsertImpression records that a slide was shown.
func (s *Store) InsertImpression(imp model.Impression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	at := imp.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slide_impressions (shown_at, mount_id, slide_index, slide_alt, cause) VALUES (?, ?, ?, ?, ?)`,
		at.UTC(), imp.MountID, imp.SlideIndex, imp.SlideAlt, string(imp.Cause))
	if err != nil {
		return fmt.Errorf("duckdb: insert impression: %w", err)
	}
	return nil
}

// InsertClick records a call-to-action activation.
func (s *Store) InsertClick(c model.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cta_clicks (clicked_at, mount_id, slide_index, target) VALUES (?, ?, ?, ?)`,
		at.UTC(), c.MountID, c.SlideIndex, c.Target)
	if err != nil {
		return fmt.Errorf("duckdb: insert click: %w", err)
	}
	return nil
}

// SlideStats returns impressions and clicks per slide position, ordered by
// index. The alt text is the most recent one seen for that position, since
// a reloaded deck may put a different slide there.
func (s *Store) SlideStats() ([]model.SlideStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		WITH imps AS (
			SELECT slide_index,
			       arg_max(slide_alt, shown_at) AS slide_alt,
			       COUNT(*) AS impressions
			FROM slide_impressions
			GROUP BY slide_index
		),
		clicks AS (
			SELECT slide_index, COUNT(*) AS clicks
			FROM cta_clicks
			GROUP BY slide_index
		)
		SELECT COALESCE(i.slide_index, c.slide_index) AS slide_index,
		       COALESCE(i.slide_alt, '') AS slide_alt,
		       COALESCE(i.impressions, 0) AS impressions,
		       COALESCE(c.clicks, 0) AS clicks
		FROM imps i
		FULL OUTER JOIN clicks c ON i.slide_index = c.slide_index
		ORDER BY slide_index
	`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: slide stats: %w", err)
	}
	defer rows.Close()

	var out []model.SlideStat
	for rows.Next() {
		var st model.SlideStat
		if err := rows.Scan(&st.SlideIndex, &st.SlideAlt, &st.Impressions, &st.Clicks); err != nil {
			return nil, fmt.Errorf("duckdb: scan slide stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// TotalImpressions returns the number of recorded impressions.
func (s *Store) TotalImpressions() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slide_impressions`).Scan(&count)
	return count, err
}

// DeleteBefore removes impressions and clicks older than cutoff and returns
// the number of rows deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("duckdb: begin delete: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var total int64
	for _, q := range []string{
		`DELETE FROM slide_impressions WHERE shown_at < ?`,
		`DELETE FROM cta_clicks WHERE clicked_at < ?`,
	} {
		res, err := tx.ExecContext(ctx, q, cutoff.UTC())
		if err != nil {
			return 0, fmt.Errorf("duckdb: delete expired: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("duckdb: commit delete: %w", err)
	}
	committed = true
	return total, nil
}

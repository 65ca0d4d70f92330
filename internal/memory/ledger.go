package memory

import (
	"context"
	"fmt"
	"time"
)

// Claim records eventID as handled. It returns false when the event was
// already claimed, which is how platform redeliveries are recognized.
func (s *SQLiteStore) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_events (event_id) VALUES (?)`, eventID,
	)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// PruneEvents drops ledger entries older than maxAge and returns how many
// were removed. LINE stops redelivering long before a day has passed.
func (s *SQLiteStore) PruneEvents(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format("2006-01-02 15:04:05")
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM processed_events WHERE processed_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

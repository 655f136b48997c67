package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Actions recorded in the activity log.
const (
	ActionUpload = "upload"
	ActionImport = "import"
	ActionDelete = "delete"
	ActionReview = "review"
)

// Activity is an entry of the admin activity log.
type Activity struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Details    string    `json:"details"`
	IP         string    `json:"ip"`
	Timestamp  time.Time `json:"timestamp"`
}

type clientIPKey struct{}

// WithClientIP attaches the address of the client making a change, for
// the activity log.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the address set by WithClientIP, empty when unset.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// LogActivity appends a to the activity log. The timestamp defaults to now.
func (s *Store) LogActivity(ctx context.Context, a Activity) error {
	if strings.TrimSpace(a.Action) == "" {
		return stderrors.New("activity action is required")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (action, target_type, target_id, details, ip, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.Action, a.TargetType, a.TargetID, a.Details, a.IP, a.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}

// Activity returns up to limit log entries, newest first, optionally only
// those with action.
func (s *Store) Activity(ctx context.Context, action string, limit int) ([]Activity, error) {
	query := `SELECT id, action, target_type, target_id, details, ip, timestamp FROM activity_log`
	var args []any
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Activity{}
	for rows.Next() {
		var a Activity
		var ts int64
		if err := rows.Scan(&a.ID, &a.Action, &a.TargetType, &a.TargetID, &a.Details, &a.IP, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Timestamp = time.Unix(0, ts).UTC()
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity: %w", err)
	}
	return entries, nil
}

// ActivityCounts returns the number of log entries per action.
func (s *Store) ActivityCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action, COUNT(*) FROM activity_log GROUP BY action`)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("failed to scan activity count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// record logs a change made through the library. Failures are logged and
// never fail the change itself.
func (l *Library) record(ctx context.Context, action, targetType, targetID, details string) {
	err := l.Store.LogActivity(ctx, Activity{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		IP:         ClientIP(ctx),
	})
	if err != nil {
		slog.Warn("Failed to record activity", "action", action, "target", targetID, "error", err)
	}
}

// Package activity appends immutable audit records for every mutating action.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"saydalia/m/domain"
	"saydalia/m/internal/auth"
	"saydalia/m/internal/kvstore"
)

// Logger writes and lists activity records. Logging is best-effort: a failed
// write never fails the surrounding mutation.
type Logger struct {
	store *kvstore.Store
}

// NewLogger constructs a Logger.
func NewLogger(store *kvstore.Store) *Logger {
	return &Logger{store: store}
}

// Log appends one activity record attributed to the request's user.
func (l *Logger) Log(ctx context.Context, kind, description string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	record := domain.Activity{
		ID:          domain.NewID(domain.ActivityPrefix),
		Type:        kind,
		Description: description,
		Details:     details,
		Timestamp:   time.Now().UTC(),
		UserID:      auth.UserFromContext(ctx),
	}
	if err := l.store.Set(ctx, record.ID, record); err != nil {
		log.Printf("failed to log %s activity: %v", kind, err)
	}
}

// List returns all activity records, newest first.
func (l *Logger) List(ctx context.Context) ([]domain.Activity, error) {
	records, err := l.store.GetByPrefix(ctx, domain.ActivityPrefix)
	if err != nil {
		return nil, err
	}

	activities := make([]domain.Activity, 0, len(records))
	for _, raw := range records {
		var a domain.Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decoding activity record: %w", err)
		}
		activities = append(activities, a)
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	return activities, nil
}

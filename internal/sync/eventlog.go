package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	EventAttemptStarted   = "AttemptStarted"
	EventAnswerSaved      = "AnswerSaved"
	EventAttemptFinished  = "AttemptFinished"
	EventExamSubmitted    = "ExamSubmitted"
	EventExamCreated      = "ExamCreated"
	EventSubmissionGraded = "SubmissionGraded"
	EventSubmissionAdded  = "SubmissionAdded"
	EventUserRegistered   = "UserRegistered"
	EventProfileUpdated   = "ProfileUpdated"
	EventRoleChanged      = "RoleChanged"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Recorder receives domain events after the write they describe has committed.
type Recorder interface {
	Record(ctx context.Context, typ, key string, data any) error
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db, siteID: "local"} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

func (r *EventRepo) Record(ctx context.Context, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("event %s: %w", typ, err)
	}
	return r.Append(ctx, Event{Type: typ, Key: key, DataJSON: string(buf)})
}

// Since returns events with seq greater than after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Multi fans an event out to every recorder. Failures are logged, not
// returned: the write being described has already committed.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, typ, key string, data any) error {
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, typ, key, data); err != nil {
			slog.WarnContext(ctx, "event recorder failed", "type", typ, "key", key, "err", err)
		}
	}
	return nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, string, string, any) error { return nil }

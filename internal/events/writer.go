// Package events appends to and reads the project activity log.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bizdesk/internal/domain"
)

// Activity types written by the engine.
const (
	ProjectCreated   = "project.created"
	ProjectUpdated   = "project.updated"
	ProjectStatus    = "project.status_changed"
	ProjectStage     = "project.stage_changed"
	BlockageAdded    = "blockage.added"
	BlockageUpdated  = "blockage.updated"
	BlockageResolved = "blockage.resolved"
	BlockageRemoved  = "blockage.removed"
	ContactAdded     = "contact.added"
	ContactUpdated   = "contact.updated"
	ContactPrimary   = "contact.primary"
	ContactRemoved   = "contact.removed"
	TaskLinked       = "task.linked"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType string, projectID, actorID int64, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO activities(ts,type,project_id,actor_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, nullableID(projectID), actorID, string(data))
	return err
}

// List returns the newest activities of a project first.
func (w Writer) List(ctx context.Context, projectID int64, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.DB.QueryContext(ctx, `SELECT id,ts,type,project_id,actor_id,payload_json FROM activities WHERE project_id=? ORDER BY id DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Activity{}
	for rows.Next() {
		var (
			a   domain.Activity
			raw string
		)
		if err := rows.Scan(&a.ID, &a.TS, &a.Type, &a.ProjectID, &a.ActorID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &a.Payload); err != nil {
			return nil, fmt.Errorf("activity %d payload: %w", a.ID, err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

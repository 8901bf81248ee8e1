package metadata

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
)

func (s *Store) AppendAudit(ctx context.Context, e *cluster.AuditEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, timestamp, actor_type, actor_id, actor_name, action,
			target_type, target_id, library_id, details, correlation_id, ip_address, user_agent)
		VALUES ($1,now(),$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.ActorType, e.ActorID, e.ActorName, e.Action, e.TargetType, e.TargetID,
		e.LibraryID, details, e.CorrelationID, e.IPAddress, e.UserAgent)
	return err
}

func scanAuditEvents(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]*cluster.AuditEvent, error) {
	var out []*cluster.AuditEvent
	for rows.Next() {
		e := &cluster.AuditEvent{}
		var details []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ActorType, &e.ActorID, &e.ActorName, &e.Action,
			&e.TargetType, &e.TargetID, &e.LibraryID, &details, &e.CorrelationID, &e.IPAddress,
			&e.UserAgent); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) QueryAuditByCorrelation(ctx context.Context, correlationID string) ([]*cluster.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, actor_type, actor_id, actor_name, action, target_type, target_id,
			library_id, details, correlation_id, ip_address, user_agent
		FROM audit_events WHERE correlation_id=$1 ORDER BY timestamp`, correlationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

func (s *Store) QueryAuditByLibrary(ctx context.Context, libraryID uuid.UUID, limit int) ([]*cluster.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, actor_type, actor_id, actor_name, action, target_type, target_id,
			library_id, details, correlation_id, ip_address, user_agent
		FROM audit_events WHERE library_id=$1 ORDER BY timestamp DESC LIMIT $2`, libraryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

package store

import (
	"context"
	"encoding/json"
	"time"
)

type AuditStore struct {
	db DB
}

type AuditEntry struct {
	ID          string          `db:"id" json:"id"`
	ActorUserID *string         `db:"actor_user_id" json:"actor_user_id"`
	Action      string          `db:"action" json:"action"`
	EntityType  string          `db:"entity_type" json:"entity_type"`
	EntityID    string          `db:"entity_id" json:"entity_id"`
	Data        json.RawMessage `db:"data" json:"data"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type AuditFilter struct {
	EntityType *string
	EntityID   *string
	ActorID    *string
	Page       Page
}

func NewAuditStore(db DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log writes an audit row inside tx; an empty actorID records a system action.
func (s *AuditStore) Log(ctx context.Context, tx Execer, actorID, action, entityType, entityID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, data)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	`, actor, action, entityType, entityID, string(payload))
	return err
}

func (s *AuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	var conds conditions
	if filter.EntityType != nil {
		conds.add("entity_type = ?", *filter.EntityType)
	}
	if filter.EntityID != nil {
		conds.add("entity_id = ?", *filter.EntityID)
	}
	if filter.ActorID != nil {
		conds.add("actor_user_id = ?", *filter.ActorID)
	}
	query, args := conds.build(`
		SELECT id, actor_user_id, action, entity_type, entity_id, data, created_at
		FROM audit_logs`, "created_at DESC, id", filter.Page)
	entries := []AuditEntry{}
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, err
	}
	return entries, nil
}

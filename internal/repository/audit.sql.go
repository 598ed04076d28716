package repository

import (
	"context"
	"fmt"
)

const insertAuditLog = `
INSERT INTO audit_log (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
RETURNING id`

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, insertAuditLog,
		arg.EntityType, ToPgUUID(arg.EntityID), ToNullablePgUUID(arg.ActorID), arg.Action,
		arg.PrevState, arg.NextState, arg.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audit log: %w", err)
	}
	return id, nil
}

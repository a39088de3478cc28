package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-photoedit/internal/db"
)

// PgStore persists entries in the audit_logs table.
type PgStore struct {
	DB db.DBTX
}

const insertAuditLog = `INSERT INTO audit_logs
  (actor_kind, actor_user_id, action, resource_type, resource_id, method, path, route, status, ip, user_agent, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Insert stores e. ID and CreatedAt are assigned by the database.
func (s PgStore) Insert(ctx context.Context, e Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	_, err := s.DB.Exec(ctx, insertAuditLog,
		string(e.ActorKind), text(e.ActorUserID), e.Action, e.ResourceType, text(e.ResourceID),
		e.Method, e.Path, text(e.Route), int32(e.Status), text(e.IP), text(e.UserAgent), text(e.RequestID), metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

const listAuditLogs = `SELECT id, actor_kind, actor_user_id, action, resource_type, resource_id, method, path,
  route, status, ip, user_agent, request_id, metadata, created_at, count(*) OVER ()
FROM audit_logs
WHERE ($1::text = '' OR action = $1)
  AND ($2::text = '' OR resource_type = $2)
  AND ($3::text = '' OR resource_id = $3)
  AND ($4::text = '' OR actor_user_id = $4)
ORDER BY created_at DESC, id DESC LIMIT $5 OFFSET $6`

// List returns matching entries newest first with the total number of matches.
func (s PgStore) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, int, error) {
	rows, err := s.DB.Query(ctx, listAuditLogs, f.Action, f.ResourceType, f.ResourceID, f.ActorUserID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	total := 0
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e                                            Entry
			kind                                         string
			userID, resourceID, route, ip, ua, requestID pgtype.Text
			status                                       int32
			count                                        int64
			metadata                                     []byte
		)
		err := row.Scan(&e.ID, &kind, &userID, &e.Action, &e.ResourceType, &resourceID, &e.Method, &e.Path,
			&route, &status, &ip, &ua, &requestID, &metadata, &e.CreatedAt, &count)
		if err != nil {
			return Entry{}, err
		}
		e.ActorKind = ActorKind(kind)
		e.ActorUserID = fromText(userID)
		e.ResourceID = fromText(resourceID)
		e.Route = fromText(route)
		e.IP = fromText(ip)
		e.UserAgent = fromText(ua)
		e.RequestID = fromText(requestID)
		e.Status = int(status)
		if len(metadata) > 0 {
			e.Metadata = metadata
		}
		total = int(count)
		return e, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan audit logs: %w", err)
	}
	return out, total, nil
}

func text(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func fromText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

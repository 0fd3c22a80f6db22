package postgres

import (
	"context"
	"fmt"
	"strings"

	"clinic-authz/internal/audit"
	"clinic-authz/internal/policy"
)

// AuditRepository stores decision events in authz_audit_events
type AuditRepository struct {
	db dbtx
}

func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db.Pool}
}

// Write inserts a batch, splitting it into multi-row statements that stay
// under the bind parameter limit. Events already stored are skipped, so a
// batch that fails part way can be written again.
func (r *AuditRepository) Write(ctx context.Context, events []audit.Event) error {
	for len(events) > 0 {
		n := min(len(events), maxAuditRowsPerInsert)
		if err := r.insert(ctx, events[:n]); err != nil {
			return err
		}
		events = events[n:]
	}
	return nil
}

func (r *AuditRepository) insert(ctx context.Context, events []audit.Event) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO authz_audit_events (
			id, user_id, role, resource, action, decision, allowed,
			reason, route, request_id, ip_address, created_at
		) VALUES `)

	args := make([]any, 0, len(events)*auditInsertColumns)
	for i, e := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for col := 1; col <= auditInsertColumns; col++ {
			if col > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*auditInsertColumns+col)
		}
		sb.WriteString(")")

		args = append(args,
			e.ID,
			e.UserID,
			string(e.Role),
			string(e.Resource),
			string(e.Action),
			string(e.Decision),
			e.Allowed,
			e.Reason,
			e.Route,
			e.RequestID,
			e.IPAddress,
			e.CreatedAt,
		)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")

	if _, err := r.db.Exec(ctx, sb.String(), args...); err != nil {
		return errFailedInsertAuditEvents(err)
	}
	return nil
}

// Query retrieves audit events, newest first
func (r *AuditRepository) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	query := `
		SELECT id, user_id, role, resource, action, decision, allowed,
		       reason, route, request_id, ip_address, created_at
		FROM authz_audit_events
		WHERE 1=1
	`
	args := []any{}
	argCount := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, *filter.UserID)
		argCount++
	}

	if filter.Resource != nil {
		query += fmt.Sprintf(" AND resource = $%d", argCount)
		args = append(args, string(*filter.Resource))
		argCount++
	}

	if filter.Action != nil {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, string(*filter.Action))
		argCount++
	}

	if filter.Decision != nil {
		query += fmt.Sprintf(" AND decision = $%d", argCount)
		args = append(args, string(*filter.Decision))
		argCount++
	}

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.StartTime)
		argCount++
	}

	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filter.EndTime)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditQueryLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, limit)
	argCount++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errFailedQueryAuditEvents(err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			e                                audit.Event
			role, resource, action, decision string
		)
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&role,
			&resource,
			&action,
			&decision,
			&e.Allowed,
			&e.Reason,
			&e.Route,
			&e.RequestID,
			&e.IPAddress,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, errFailedScanAuditEvent(err)
		}
		e.Role = policy.Role(role)
		e.Resource = policy.Resource(resource)
		e.Action = policy.Action(action)
		e.Decision = policy.Decision(decision)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errIterateAuditEvents(err)
	}
	return events, nil
}

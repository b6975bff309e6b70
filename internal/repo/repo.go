package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ringline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

type EventFilter struct {
	Type      string
	RequestID string
	// Before returns only events with a smaller id; zero means no bound.
	Before int64
}

// LatestEvents returns up to limit events, newest first.
func (r Repo) LatestEvents(ctx context.Context, limit int, f EventFilter) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.RequestID != "" {
		clauses = append(clauses, "request_id=?")
		args = append(args, f.RequestID)
	}
	if f.Before > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Before)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,request_id,COALESCE(recipient,''),payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with id greater than cursor, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryEvents(ctx, `SELECT id,ts,type,request_id,COALESCE(recipient,''),payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetEvent returns a single event by id.
func (r Repo) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	items, err := r.queryEvents(ctx, `SELECT id,ts,type,request_id,COALESCE(recipient,''),payload_json FROM events WHERE id=?`, id)
	if err != nil {
		return domain.Event{}, err
	}
	if len(items) == 0 {
		return domain.Event{}, ErrNotFound
	}
	return items[0], nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.RequestID, &e.Recipient, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringline/internal/db"
	"ringline/internal/events"
	"ringline/internal/migrate"
	"ringline/internal/repo"
)

func TestEventsRoundTrip(t *testing.T) {
	conn, err := db.Open(db.Config{})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))
	require.NoError(t, migrate.Migrate(conn))
	v, err := migrate.Version(conn)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	ctx := context.Background()
	w := events.Writer{DB: conn, Now: func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }}
	require.NoError(t, w.Append(ctx, events.TypeInvalid, "req-1", "", events.EventPayload{"field": "objective"}))
	require.NoError(t, w.Append(ctx, events.TypeAccepted, "req-2", "+15551234567", events.EventPayload{"call_sid": "CA1"}))
	require.NoError(t, w.Append(ctx, events.TypeRejected, "req-3", "+15551234567", nil))

	r := repo.Repo{DB: conn}
	latest, err := r.LatestEvents(ctx, 10, repo.EventFilter{})
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, "req-3", latest[0].RequestID)
	assert.Equal(t, "+*******4567", latest[1].Recipient)
	assert.Equal(t, "2024-01-01T00:00:00Z", latest[2].TS)

	accepted, err := r.LatestEvents(ctx, 10, repo.EventFilter{Type: events.TypeAccepted})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.JSONEq(t, `{"call_sid":"CA1"}`, accepted[0].Payload)

	older, err := r.LatestEvents(ctx, 10, repo.EventFilter{Before: latest[0].ID})
	require.NoError(t, err)
	assert.Len(t, older, 2)

	after, err := r.EventsAfter(ctx, 0, latest[2].ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "req-2", after[0].RequestID)

	maxID, err := r.LatestEventID(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest[0].ID, maxID)

	_, err = r.GetEvent(ctx, 999)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestMemoryDatabasesAreIsolated(t *testing.T) {
	a, err := db.Open(db.Config{})
	require.NoError(t, err)
	defer a.Close()
	b, err := db.Open(db.Config{})
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, migrate.Migrate(a))
	require.NoError(t, migrate.Migrate(b))

	ctx := context.Background()
	require.NoError(t, events.Writer{DB: a}.Append(ctx, events.TypeAccepted, "req-a", "", nil))
	id, err := repo.Repo{DB: b}.LatestEventID(ctx)
	require.NoError(t, err)
	assert.Zero(t, id)
}

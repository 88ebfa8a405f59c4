package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/thinkcrm/plugincore/internal/platform/database"
)

func TestBuildBatchInsert(t *testing.T) {
	marker := uuid.New()
	events := []Event{
		{
			Handler:      "setbyandon.SetByAndOn",
			Action:       ActionPluginCompleted,
			Message:      "Create",
			Stage:        "PreOperation",
			InvocationID: "01HZY",
			MarkerID:     marker,
			Duration:     1500 * time.Millisecond,
			Metadata:     map[string]any{MetadataDepth: 1},
		},
		{
			Handler: "setbyandon.SetByAndOn",
			Action:  ActionPluginDeclined,
		},
	}

	sql, args, err := buildBatchInsert(events)
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO plugin_invocations")
	assert.Contains(t, sql, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)")
	assert.Contains(t, sql, "($12, $13,")
	assert.Len(t, args, 2*eventColumns)
	assert.NotEqual(t, uuid.Nil, args[0], "missing ids are generated")
	assert.Equal(t, "setbyandon.SetByAndOn", args[1])
	assert.Equal(t, marker, args[6])
	assert.Equal(t, int64(1500), args[8])
	assert.JSONEq(t, `{"depth":1}`, string(args[9].([]byte)))
	assert.Nil(t, args[eventColumns+9], "nil metadata stays NULL")
}

func TestBuildBatchInsert_Empty(t *testing.T) {
	store := NewStore()
	err := store.InsertBatch(context.Background(), nil, nil)
	require.NoError(t, err)
}

func TestBuildListQuery_NoFilters(t *testing.T) {
	sql, args := buildListQuery(ListEventsParams{Limit: 50})
	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, "LIMIT $1")
	assert.Equal(t, []any{50}, args)
}

func TestBuildListQuery_AllFilters(t *testing.T) {
	handler := "setbyandon.SetByAndOn"
	action := ActionPluginFailed
	caller := "svc-importer"
	after := time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC)

	sql, args := buildListQuery(ListEventsParams{
		Handler: &handler,
		Action:  &action,
		Caller:  &caller,
		After:   &after,
		Before:  &before,
		Limit:   100,
	})

	assert.Contains(t, sql, "WHERE handler = $1 AND action = $2 AND caller = $3")
	assert.Contains(t, sql, "occurred_at > $4")
	assert.Contains(t, sql, "occurred_at < $5")
	assert.Contains(t, sql, "LIMIT $6")
	assert.Len(t, args, 6)
}

func TestBuildListQuery_PartialFilters(t *testing.T) {
	action := ActionPluginDeclined
	sql, args := buildListQuery(ListEventsParams{Action: &action, Limit: 50})
	assert.Contains(t, sql, "WHERE action = $1")
	assert.Contains(t, sql, "LIMIT $2")
	assert.Len(t, args, 2)
}

func TestStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("plugincore_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := database.Connect(ctx, connStr, 5)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, database.InTx(ctx, pool, func(ctx context.Context, q database.Querier) error {
		return EnsureSchema(ctx, q)
	}))
	require.NoError(t, EnsureSchema(ctx, pool), "schema creation is idempotent")

	store := NewStore()
	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.InsertBatch(ctx, pool, []Event{
		{Handler: "a", Action: ActionPluginCompleted, InvocationID: "1", MarkerID: uuid.New(), OccurredAt: base},
		{Handler: "b", Action: ActionPluginFailed, InvocationID: "2", MarkerID: uuid.New(), OccurredAt: base.Add(time.Second),
			Duration: 42 * time.Millisecond, Metadata: map[string]any{MetadataValidator: "Stage(PreOperation)"}},
	}))

	all, err := store.List(ctx, pool, ListEventsParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Handler, "newest first")
	assert.Equal(t, 42*time.Millisecond, all[0].Duration)
	assert.Equal(t, "Stage(PreOperation)", all[0].Metadata[MetadataValidator])

	handler := "a"
	only, err := store.List(ctx, pool, ListEventsParams{Handler: &handler, Limit: 10})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, ActionPluginCompleted, only[0].Action)
}

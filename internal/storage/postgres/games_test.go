package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/nightfall/internal/stats"
	"github.com/cory-johannsen/nightfall/internal/storage/postgres"
	"github.com/cory-johannsen/nightfall/internal/testutil"
)

func setupGameRepo(t *testing.T) *postgres.GameRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewGameRepository(pc.RawPool)
}

func startSnapshot(id string) stats.Snapshot {
	return stats.Snapshot{
		GameID: id,
		Event:  stats.EventStart,
		Day:    1,
		At:     time.Now().UTC().Truncate(time.Millisecond),
		Players: []stats.PlayerRecord{
			{Index: 0, Name: "Alice", Role: "detective", Faction: "town", Alive: true},
			{Index: 1, Name: "Bob", Role: "mafioso", Faction: "mafia", Alive: true},
			{Index: 2, Name: "Carol", Role: "jester", Faction: "neutral", Alive: true},
		},
	}
}

func TestGameRepository_Lifecycle(t *testing.T) {
	repo := setupGameRepo(t)
	ctx := context.Background()
	id := uuid.NewString()

	start := startSnapshot(id)
	require.NoError(t, repo.Record(ctx, start))

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Nil(t, rec.EndedAt)
	assert.Empty(t, rec.Conclusion)
	require.Len(t, rec.Players, 3)
	assert.Equal(t, "Bob", rec.Players[1].Name)
	assert.Equal(t, "mafia", rec.Players[1].Faction)

	end := start
	end.Event = stats.EventEnd
	end.Day = 4
	end.Conclusion = "town"
	end.Players = []stats.PlayerRecord{
		{Index: 0, Name: "Alice", Role: "detective", Faction: "town", Alive: true, Won: true},
		{Index: 1, Name: "Bob", Role: "mafioso", Faction: "mafia", Alive: false},
		{Index: 2, Name: "Carol", Role: "jester", Faction: "neutral", Alive: false, Won: true},
	}
	require.NoError(t, repo.Record(ctx, end))

	rec, err = repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec.EndedAt)
	assert.Equal(t, 4, rec.FinalDay)
	assert.Equal(t, "town", rec.Conclusion)
	assert.True(t, rec.Players[0].Won)
	assert.False(t, rec.Players[1].Alive)
	assert.True(t, rec.Players[2].Won)
	assert.Equal(t, "neutral", rec.Players[2].Faction)

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, id, recent[0].ID)
}

func TestGameRepository_DuplicateStart(t *testing.T) {
	repo := setupGameRepo(t)
	ctx := context.Background()
	start := startSnapshot(uuid.NewString())

	require.NoError(t, repo.Record(ctx, start))
	assert.ErrorIs(t, repo.Record(ctx, start), postgres.ErrGameRecorded)
}

func TestGameRepository_EndWithoutStart(t *testing.T) {
	repo := setupGameRepo(t)
	ctx := context.Background()
	id := uuid.NewString()

	end := startSnapshot(id)
	end.Event = stats.EventEnd
	end.Day = 2
	require.NoError(t, repo.Record(ctx, end))

	rec, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec.EndedAt)
	assert.Empty(t, rec.Conclusion, "a game ended by the day limit has no conclusion")
	assert.Len(t, rec.Players, 3)
}

func TestGameRepository_GetMissing(t *testing.T) {
	repo := setupGameRepo(t)
	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, postgres.ErrGameNotFound)

	_, err = repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, postgres.ErrGameNotFound)
}

func TestGameRepository_RejectsBadInput(t *testing.T) {
	repo := postgres.NewGameRepository(nil)
	err := repo.Record(context.Background(), stats.Snapshot{GameID: "nope", Event: stats.EventStart})
	assert.Error(t, err)
}

func TestPropertyGameRepository_PlayersRoundTrip(t *testing.T) {
	repo := setupGameRepo(t)
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(rt, "players")
		snap := stats.Snapshot{GameID: uuid.NewString(), Event: stats.EventEnd, Day: 3}
		for i := 0; i < n; i++ {
			snap.Players = append(snap.Players, stats.PlayerRecord{
				Index:   i,
				Name:    rapid.StringMatching(`[A-Za-z]{1,16}`).Draw(rt, "name"),
				Role:    rapid.SampledFrom([]string{"villager", "doctor", "mafioso", "jester"}).Draw(rt, "role"),
				Faction: rapid.SampledFrom([]string{"town", "mafia", "neutral"}).Draw(rt, "faction"),
				Alive:   rapid.Bool().Draw(rt, "alive"),
				Won:     rapid.Bool().Draw(rt, "won"),
			})
		}
		if err := repo.Record(ctx, snap); err != nil {
			rt.Fatalf("record: %v", err)
		}
		rec, err := repo.Get(ctx, snap.GameID)
		if err != nil {
			rt.Fatalf("get: %v", err)
		}
		if len(rec.Players) != n {
			rt.Fatalf("got %d players, want %d", len(rec.Players), n)
		}
		for i, p := range rec.Players {
			if p != snap.Players[i] {
				rt.Fatalf("player %d = %+v, want %+v", i, p, snap.Players[i])
			}
		}
	})
}

func TestPool_HealthAndStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)

	require.NoError(t, pc.Pool.Health(context.Background(), 3*time.Second))
	st := pc.Pool.Stats()
	assert.GreaterOrEqual(t, st.Total, int32(1))
	assert.LessOrEqual(t, st.Idle+st.Acquired, st.Total)

	var app string
	require.NoError(t, pc.RawPool.QueryRow(context.Background(), "SELECT current_setting('application_name')").Scan(&app))
	assert.Equal(t, "nightfall", app)
}

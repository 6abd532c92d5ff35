package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/beka-birhanu/navstudy/game"
	"github.com/beka-birhanu/navstudy/game/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExport() record.SessionExport {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	catalog := game.MustDefaultCatalog()
	optimal := []game.Direction{game.Left, game.Down, game.Left, game.Down}
	plan := record.Decode(catalog[game.CarMedium], "zcqe", optimal)

	return record.SessionExport{
		Meta:             record.Meta{ParticipantID: "p1", StudyID: "navstudy", SessionID: "sess-1", StartedAt: t0},
		Tally:            record.Tally{Score: 30, Successes: 5, Failures: 2},
		EndedAt:          t0.Add(10 * time.Minute),
		Elapsed:          10 * time.Minute,
		HighHazard:       game.Truck,
		DangerousVehicle: game.Truck,
		Records: []record.TrialRecord{
			{
				Phase: record.PhaseLearning, Index: 1, MazeID: "learn-4", Category: game.Truck,
				Kind: "truck", Size: "medium", Hazard: true, HazardProb: 0.9,
				Optimal: optimal, Realized: optimal, RewardsCollected: 4, Accuracy: 1,
				Duration: 4 * time.Second,
			},
			{
				Phase: record.PhasePlanning, Index: 1, MazeID: "plan-2", Category: game.CarMedium,
				Kind: "car", Size: "medium", Hazard: true, HazardProb: 1,
				Optimal: optimal, Realized: plan.Translated, Plan: &plan,
				ReactionTime: 2500 * time.Millisecond, Accuracy: 0.75, Duration: 2500 * time.Millisecond,
			},
		},
	}
}

func TestTrialStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewTrialStore(filepath.Join(t.TempDir(), "trials.db"))
	require.NoError(t, err)
	defer store.Close()

	export := testExport()
	require.NoError(t, store.Save(ctx, export))

	t.Run("rows are flattened", func(t *testing.T) {
		rows, err := store.Trials(ctx, "sess-1")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		learn := rows[0]
		assert.Equal(t, "learning", learn.Phase)
		assert.Equal(t, "truck_medium", learn.Vehicle)
		assert.Equal(t, "left,down,left,down", learn.Optimal)
		assert.True(t, learn.Hazard)
		assert.True(t, learn.Dangerous)
		assert.Equal(t, "p1", learn.ParticipantID)
		assert.Empty(t, learn.RawSeq)

		plan := rows[1]
		assert.Equal(t, "planning", plan.Phase)
		assert.Equal(t, "zcqe", plan.RawSeq)
		assert.Equal(t, "1111", plan.ValidSeq)
		assert.Equal(t, "1110", plan.CorrectSeq)
		assert.Equal(t, 3, plan.CorrectCount)
		assert.Equal(t, 1, plan.CorrectHL)
		assert.Equal(t, 2, plan.CorrectLL)
		assert.Equal(t, record.SecondOrder, plan.GenOrder)
		assert.Equal(t, int64(2500), plan.ReactionMS)
		assert.False(t, plan.Dangerous)
	})

	t.Run("rows export as csv", func(t *testing.T) {
		rows, err := store.Trials(ctx, "sess-1")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, rows))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "sessionId,participantId,phase,trialIndex"))
		assert.True(t, strings.HasPrefix(lines[1],
			`sess-1,p1,learning,1,learn-4,truck_medium,truck,medium,true,0.9,false,"left,down,left,down"`))
		assert.Contains(t, lines[2], `zcqe,1111,1110,4,3,1,2`)
		assert.True(t, strings.HasSuffix(lines[1], ",true"))
	})

	t.Run("saving again replaces rows", func(t *testing.T) {
		export.Records[0].Accuracy = 0.5
		require.NoError(t, store.Save(ctx, export))

		rows, err := store.Trials(ctx, "sess-1")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 0.5, rows[0].Accuracy)
	})

	t.Run("unknown session has no rows", func(t *testing.T) {
		rows, err := store.Trials(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

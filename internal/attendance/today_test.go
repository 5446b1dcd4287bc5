package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anima/internal/attendance/models"
)

func entryAt(action models.Action, ts time.Time) models.LogEntry {
	return models.LogEntry{Action: action, Timestamp: ts}
}

func TestBuildState(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	t.Run("empty log", func(t *testing.T) {
		state := BuildState(nil, nil)
		assert.Equal(t, models.StatusNotCheckedIn, state.Status)
		assert.Zero(t, state.CompletedMinutes)
		assert.Nil(t, state.OpenStartAt)
	})

	t.Run("closed segments accumulate", func(t *testing.T) {
		today := []models.LogEntry{
			entryAt(models.ActionCheckIn, at(8, 0)),
			entryAt(models.ActionCheckOut, at(12, 0)),
			entryAt(models.ActionCheckIn, at(13, 0)),
			entryAt(models.ActionCheckOut, at(17, 30)),
		}
		state := BuildState(today, &today[3])
		assert.Equal(t, models.StatusCheckedOut, state.Status)
		assert.Equal(t, 8*60+30, state.CompletedMinutes)
		require.NotNil(t, state.LastCheckIn)
		assert.Equal(t, at(13, 0), *state.LastCheckIn)
		require.NotNil(t, state.LastCheckOut)
		assert.Equal(t, at(17, 30), *state.LastCheckOut)
		assert.Nil(t, state.OpenStartAt)
	})

	t.Run("open segment is exposed", func(t *testing.T) {
		today := []models.LogEntry{
			entryAt(models.ActionCheckIn, at(8, 0)),
			entryAt(models.ActionCheckOut, at(9, 15)),
			entryAt(models.ActionCheckIn, at(10, 0)),
		}
		state := BuildState(today, &today[2])
		assert.Equal(t, models.StatusCheckedIn, state.Status)
		assert.Equal(t, 75, state.CompletedMinutes)
		require.NotNil(t, state.OpenStartAt)
		assert.Equal(t, at(10, 0), *state.OpenStartAt)
	})

	t.Run("check-in from yesterday still counts as checked in", func(t *testing.T) {
		yesterday := entryAt(models.ActionCheckIn, at(-2, 0))
		state := BuildState(nil, &yesterday)
		assert.Equal(t, models.StatusCheckedIn, state.Status)
		require.NotNil(t, state.OpenStartAt)
		assert.Equal(t, at(-2, 0), *state.OpenStartAt)
		assert.Nil(t, state.LastCheckIn)
	})

	t.Run("check-out without a check-in today adds nothing", func(t *testing.T) {
		today := []models.LogEntry{entryAt(models.ActionCheckOut, at(1, 0))}
		state := BuildState(today, &today[0])
		assert.Equal(t, models.StatusCheckedOut, state.Status)
		assert.Zero(t, state.CompletedMinutes)
	})
}

func TestDayBounds(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)

	// 02:00 UTC is still the previous evening in Bogotá
	from, to := dayBounds(time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC), bogota)
	assert.Equal(t, time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC), from.UTC())
	assert.Equal(t, time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC), to.UTC())
}

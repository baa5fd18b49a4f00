package videos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vidya-portal/backend/internal/models"
)

func TestComputeStats(t *testing.T) {
	records := []models.WatchRecord{
		{StudentID: "s-1", Progress: 20},
		{StudentID: "s-2", Progress: 60},
		{StudentID: "s-3", Progress: 100},
	}

	stats := ComputeStats(5, records)

	assert.Equal(t, 5, stats.TotalViews)
	assert.Equal(t, 3, stats.UniqueWatchers)
	assert.InDelta(t, 60.0, stats.AverageProgress, 1e-9)
	assert.Equal(t, records, stats.WatchHistory)
}

func TestComputeStatsEmptyLedger(t *testing.T) {
	stats := ComputeStats(0, nil)

	assert.Equal(t, 0, stats.TotalViews)
	assert.Equal(t, 0, stats.UniqueWatchers)
	assert.Zero(t, stats.AverageProgress, "mean of an empty ledger is 0, not NaN")
	assert.Empty(t, stats.WatchHistory)
}

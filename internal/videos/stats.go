package videos

import "github.com/vidya-portal/backend/internal/models"

// Stats is the aggregated engagement for one video.
type Stats struct {
	TotalViews      int                  `json:"totalViews"`
	UniqueWatchers  int                  `json:"uniqueWatchers"`
	AverageProgress float64              `json:"averageProgress"`
	WatchHistory    []models.WatchRecord `json:"watchHistory"`
}

// ComputeStats aggregates the watch ledger. AverageProgress is the mean of
// current progress across records, 0 when the ledger is empty.
func ComputeStats(views int, records []models.WatchRecord) Stats {
	stats := Stats{
		TotalViews:     views,
		UniqueWatchers: len(records),
		WatchHistory:   records,
	}
	if len(records) == 0 {
		return stats
	}
	var sum float64
	for _, w := range records {
		sum += w.Progress
	}
	stats.AverageProgress = sum / float64(len(records))
	return stats
}

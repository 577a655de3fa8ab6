package usecase

import "context"

// MetricsSummary aggregates validation decisions for operators tuning the
// category profiles.
type MetricsSummary struct {
	TotalUploads     int64   `json:"total_uploads"`
	AcceptedUploads  int64   `json:"accepted_uploads"`
	AcceptanceRate   float64 `json:"acceptance_rate"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
}

// GetMetricsSummary computes the summary from persisted validation logs.
func (uc *UploadUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	agg, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalUploads:     agg.TotalCount,
		AcceptedUploads:  agg.AcceptedCount,
		AverageLatencyMs: agg.AverageLatencyMs,
	}
	if agg.TotalCount > 0 {
		summary.AcceptanceRate = float64(agg.AcceptedCount) / float64(agg.TotalCount)
	}
	return summary, nil
}

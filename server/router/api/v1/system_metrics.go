package v1

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64               `json:"total_requests"`
	SuccessRate   float64             `json:"success_rate"`
	P95LatencyMs  int64               `json:"p95_latency_ms"`
	ErrorCount    int64               `json:"error_count"`
	RetryCount    int64               `json:"retry_count"`
	Operations    []OperationOverview `json:"operations"`
}

type OperationOverview struct {
	Operation    string `json:"operation"`
	Count        int64  `json:"count"`
	ErrorCount   int64  `json:"error_count"`
	AvgLatencyMs int64  `json:"avg_latency_ms"`
}

// GetMetricsOverview returns the request metrics collected since the server started.
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()

	operations := make([]OperationOverview, 0, len(snapshot.Operations))
	for name, op := range snapshot.Operations {
		operations = append(operations, OperationOverview{
			Operation:    name,
			Count:        op.ExecutionCount,
			ErrorCount:   op.ErrorCount,
			AvgLatencyMs: op.AverageDuration,
		})
	}
	sort.Slice(operations, func(i, j int) bool {
		return operations[i].Operation < operations[j].Operation
	})

	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		P95LatencyMs:  snapshot.P95Duration.Milliseconds(),
		ErrorCount:    snapshot.RequestFailed,
		RetryCount:    snapshot.Retries,
		Operations:    operations,
	})
}

package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Push sends the process metrics to a Pushgateway. An empty url disables pushing.
func Push(ctx context.Context, url, job, runID string, logger *zap.Logger) error {
	if url == "" {
		return nil
	}

	pusher := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("run_id", runID)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	logger.Info("metrics pushed", zap.String("pushgateway", url))
	return nil
}

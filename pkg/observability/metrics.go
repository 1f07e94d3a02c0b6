package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics emits service metrics to CloudWatch.
// Emission is fire-and-forget; a metrics failure never fails the operation
// being measured.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a metrics emitter for the given namespace
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// RecordSave records the outcome and latency of a canvas save
func (m *Metrics) RecordSave(ctx context.Context, canvasID string, duration time.Duration, success bool) {
	outcome := "Success"
	if !success {
		outcome = "Failure"
	}

	datums := []types.MetricDatum{
		{
			MetricName: aws.String("CanvasSaveLatency"),
			Unit:       types.StandardUnitMilliseconds,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Dimensions: []types.Dimension{
				{Name: aws.String("Outcome"), Value: aws.String(outcome)},
			},
			Timestamp: aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("CanvasSaveCount"),
			Unit:       types.StandardUnitCount,
			Value:      aws.Float64(1),
			Dimensions: []types.Dimension{
				{Name: aws.String("Outcome"), Value: aws.String(outcome)},
			},
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.put(ctx, datums)
}

// Count increments a named counter metric
func (m *Metrics) Count(ctx context.Context, name string) {
	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String(name),
			Unit:       types.StandardUnitCount,
			Value:      aws.Float64(1),
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

func (m *Metrics) put(ctx context.Context, datums []types.MetricDatum) {
	if m == nil || m.client == nil {
		return
	}

	go func() {
		putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		_, _ = m.client.PutMetricData(putCtx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: datums,
		})
	}()
}

package metrics

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"swellcast/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchRecorder implements Recorder.
var _ Recorder = (*CloudWatchRecorder)(nil)

// CloudWatchRecorder implements Recorder by emitting metrics to AWS
// CloudWatch. Publish failures are logged and swallowed.
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRecorder creates a recorder publishing to the given namespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordAttempt emits an AcquisitionAttempt count with an Outcome dimension.
func (r *CloudWatchRecorder) RecordAttempt(ctx context.Context, outcome string) {
	r.put(ctx, MetricAcquisitionAttempt, 1, cwtypes.StandardUnitCount,
		dim(DimOutcome, outcome))
}

// RecordRotation emits a CredentialRotation count.
func (r *CloudWatchRecorder) RecordRotation(ctx context.Context) {
	r.put(ctx, MetricCredentialRotation, 1, cwtypes.StandardUnitCount)
}

// RecordBackfill emits the request and hourly-row volume of a backfill run.
func (r *CloudWatchRecorder) RecordBackfill(ctx context.Context, requestsUsed, totalHours int) {
	r.put(ctx, MetricBackfillRequests, float64(requestsUsed), cwtypes.StandardUnitCount)
	r.put(ctx, MetricBackfillHours, float64(totalHours), cwtypes.StandardUnitCount)
}

// RecordForecast emits a ForecastGenerated count with provenance dimensions.
func (r *CloudWatchRecorder) RecordForecast(ctx context.Context, source types.DataSource, method types.ForecastMethod) {
	r.put(ctx, MetricForecastGenerated, 1, cwtypes.StandardUnitCount,
		dim(DimDataSource, string(source)),
		dim(DimMethod, string(method)))
}

func (r *CloudWatchRecorder) put(ctx context.Context, name string, value float64, unit cwtypes.StandardUnit, dims ...cwtypes.Dimension) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(r.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       unit,
				Dimensions: dims,
			},
		},
	}
	if _, err := r.client.PutMetricData(ctx, input); err != nil {
		r.logger.Warn("failed to publish metric",
			"metric", name,
			"error", err,
		)
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{
		Name:  aws.String(name),
		Value: aws.String(value),
	}
}

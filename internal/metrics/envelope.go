package metrics

import (
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

const scopeName = "pizza-service/metrics"

// Metric names as they appear at the collector.
const (
	MetricRequests        = "requests"
	MetricGreetingChange  = "greetingChange"
	MetricPurchaseSuccess = "pizzaPurchaseSuccess"
	MetricPurchaseFailure = "pizzaPurchaseFailure"
	MetricRevenue         = "pizzaPurchaseRevenue"
	MetricAuthSuccess     = "authSuccess"
	MetricAuthFailure     = "authFailure"
	MetricActiveUsers     = "activeUsers"
	MetricPizzaLatency    = "pizzaPurchaseLatency"
	MetricServiceLatency  = "serviceLatency"
	MetricCPU             = "cpuUsagePercentage"
	MetricMemory          = "memoryUsagePercentage"
)

// attrs is a flat set of string attributes attached to a data point.
type attrs map[string]string

// Batch builds the OTLP metrics for one reporting tick. Endpoint request
// counters are emitted once per endpoint; everything else once per batch.
func Batch(snap Snapshot, sys SystemStats, source string) *colmetricspb.ExportMetricsServiceRequest {
	ts := uint64(snap.Taken.UnixNano())
	b := &batchBuilder{source: source, ts: ts}

	for _, endpoint := range snap.Endpoints() {
		b.sumInt(MetricRequests, "1", int64(snap.Requests[endpoint]), attrs{"endpoint": endpoint})
	}
	b.sumInt(MetricGreetingChange, "1", int64(snap.GreetingChanges), nil)
	b.sumInt(MetricPurchaseSuccess, "1", int64(snap.PurchaseSuccess), nil)
	b.sumInt(MetricPurchaseFailure, "1", int64(snap.PurchaseFailure), nil)
	b.sumDouble(MetricRevenue, "1", snap.Revenue(), nil)
	b.sumInt(MetricAuthSuccess, "1", int64(snap.AuthSuccess), nil)
	b.sumInt(MetricAuthFailure, "1", int64(snap.AuthFailure), nil)
	b.gaugeInt(MetricActiveUsers, "1", int64(snap.ActiveUsers), nil)
	b.gaugeDouble(MetricPizzaLatency, "ms", snap.PizzaLatencyMS, nil)
	b.gaugeDouble(MetricServiceLatency, "ms", snap.ServiceLatencyMS, nil)
	b.gaugeDouble(MetricCPU, "%", sys.CPUPercent, nil)
	b.gaugeInt(MetricMemory, "%", sys.MemoryPercent, nil)

	return &colmetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{{
			Resource: &resourcepb.Resource{
				Attributes: []*commonpb.KeyValue{stringKV("service.name", source)},
			},
			ScopeMetrics: []*metricspb.ScopeMetrics{{
				Scope:   &commonpb.InstrumentationScope{Name: scopeName},
				Metrics: b.metrics,
			}},
		}},
	}
}

// Marshal encodes a batch as OTLP/JSON.
func Marshal(req *colmetricspb.ExportMetricsServiceRequest) ([]byte, error) {
	return protojson.Marshal(req)
}

type batchBuilder struct {
	source  string
	ts      uint64
	metrics []*metricspb.Metric
}

func (b *batchBuilder) point(extra attrs) *metricspb.NumberDataPoint {
	kvs := make([]*commonpb.KeyValue, 0, len(extra)+1)
	for k, v := range extra {
		kvs = append(kvs, stringKV(k, v))
	}
	kvs = append(kvs, stringKV("source", b.source))
	return &metricspb.NumberDataPoint{
		TimeUnixNano: b.ts,
		Attributes:   kvs,
	}
}

func (b *batchBuilder) sum(name, unit string, dp *metricspb.NumberDataPoint) {
	b.metrics = append(b.metrics, &metricspb.Metric{
		Name: name,
		Unit: unit,
		Data: &metricspb.Metric_Sum{Sum: &metricspb.Sum{
			DataPoints:             []*metricspb.NumberDataPoint{dp},
			AggregationTemporality: metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE,
			IsMonotonic:            true,
		}},
	})
}

func (b *batchBuilder) gauge(name, unit string, dp *metricspb.NumberDataPoint) {
	b.metrics = append(b.metrics, &metricspb.Metric{
		Name: name,
		Unit: unit,
		Data: &metricspb.Metric_Gauge{Gauge: &metricspb.Gauge{
			DataPoints: []*metricspb.NumberDataPoint{dp},
		}},
	})
}

func (b *batchBuilder) sumInt(name, unit string, v int64, extra attrs) {
	dp := b.point(extra)
	dp.Value = &metricspb.NumberDataPoint_AsInt{AsInt: v}
	b.sum(name, unit, dp)
}

func (b *batchBuilder) sumDouble(name, unit string, v float64, extra attrs) {
	dp := b.point(extra)
	dp.Value = &metricspb.NumberDataPoint_AsDouble{AsDouble: v}
	b.sum(name, unit, dp)
}

func (b *batchBuilder) gaugeInt(name, unit string, v int64, extra attrs) {
	dp := b.point(extra)
	dp.Value = &metricspb.NumberDataPoint_AsInt{AsInt: v}
	b.gauge(name, unit, dp)
}

func (b *batchBuilder) gaugeDouble(name, unit string, v float64, extra attrs) {
	dp := b.point(extra)
	dp.Value = &metricspb.NumberDataPoint_AsDouble{AsDouble: v}
	b.gauge(name, unit, dp)
}

func stringKV(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

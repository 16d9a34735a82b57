package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrStatus    = "status"
	attrResult    = "result"
	attrRule      = "rule"
	attrTool      = "tool"
	attrOperation = "operation"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	bookingsTotal      metric.Int64Counter
	cancellationsTotal metric.Int64Counter

	availabilityChecksTotal metric.Int64Counter

	temporalResolutionsTotal metric.Int64Counter

	tokenRefreshTotal metric.Int64Counter

	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.bookingsTotal, err = meter.Int64Counter(
		"scheduling_bookings_total",
		metric.WithDescription("Total number of booking attempts"),
		metric.WithUnit("{booking}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling_bookings_total counter: %w", err)
	}

	m.cancellationsTotal, err = meter.Int64Counter(
		"scheduling_cancellations_total",
		metric.WithDescription("Total number of cancellation attempts"),
		metric.WithUnit("{cancellation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling_cancellations_total counter: %w", err)
	}

	m.availabilityChecksTotal, err = meter.Int64Counter(
		"scheduling_availability_checks_total",
		metric.WithDescription("Total number of availability checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling_availability_checks_total counter: %w", err)
	}

	m.temporalResolutionsTotal, err = meter.Int64Counter(
		"scheduling_temporal_resolutions_total",
		metric.WithDescription("Total number of temporal resolutions by matched rule"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling_temporal_resolutions_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.calendarOperationsTotal, err = meter.Int64Counter(
		"calendar_api_operations_total",
		metric.WithDescription("Total number of calendar backend operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_operations_total counter: %w", err)
	}

	m.calendarOperationDuration, err = meter.Float64Histogram(
		"calendar_api_operation_duration_seconds",
		metric.WithDescription("Calendar backend operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar_api_operation_duration_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordBooking records a booking attempt.
// Status should be one of: "confirmed", "rejected", "error".
func (m *Metrics) RecordBooking(ctx context.Context, status string) {
	if m.bookingsTotal == nil {
		return // Instrumentation not initialized
	}
	m.bookingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordCancellation records a cancellation attempt.
// Status should be one of: "cancelled", "not_found", "ambiguous", "error".
func (m *Metrics) RecordCancellation(ctx context.Context, status string) {
	if m.cancellationsTotal == nil {
		return
	}
	m.cancellationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordAvailabilityCheck records an availability lookup.
// Result should be one of: "free", "conflict", "outside_hours", "unavailable".
func (m *Metrics) RecordAvailabilityCheck(ctx context.Context, result string) {
	if m.availabilityChecksTotal == nil {
		return
	}
	m.availabilityChecksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordTemporalResolution records which rule resolved a date/time fragment.
func (m *Metrics) RecordTemporalResolution(ctx context.Context, rule string) {
	if m.temporalResolutionsTotal == nil {
		return
	}
	m.temporalResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrRule, rule)))
}

// RecordTokenRefresh records an OAuth token refresh attempt.
// Result should be one of: "success", "failure", "auth_required".
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordCalendarOperation records a calendar backend call with operation name
// (freebusy, create, delete), status ("success" or "error") and duration.
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m.calendarOperationsTotal == nil || m.calendarOperationDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	m.calendarOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status
// ("success" or "error") and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "tasktrail/api"
	requestSpanName    = "tasktrail.request"
	requestEventName   = "request.metrics"
	observabilityEvent = "observability.event"
	metricsContextKey  = "request.metrics"
)

// requestMetrics collects timings for one request and reports them as a log
// entry and as attributes of the request span.
type requestMetrics struct {
	logger       *log.Logger
	span         trace.Span
	start        time.Time
	route        string
	method       string
	userID       string
	authDuration time.Duration
	errorStage   string
	cause        error
	attrs        log.Fields
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		route:  route,
		method: method,
		attrs:  log.Fields{},
	}, spanCtx
}

func (m *requestMetrics) ObserveAuth(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.authDuration = d
}

func (m *requestMetrics) SetUser(userID string) {
	if m == nil {
		return
	}
	m.userID = userID
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

// SetError records the error behind a response the handler already wrote.
func (m *requestMetrics) SetError(err error) {
	if m == nil {
		return
	}
	m.cause = err
}

// Set records a route specific value, e.g. the number of tasks returned.
func (m *requestMetrics) Set(key string, value any) {
	if m == nil {
		return
	}
	m.attrs[key] = value
}

func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	if err == nil {
		err = m.cause
	}
	total := durationToMillis(time.Since(m.start))
	severity, number := severityForStatus(status, err)

	fields := log.Fields{
		"route":           m.route,
		"method":          m.method,
		"status":          status,
		"total_ms":        total,
		"severity_text":   severity,
		"severity_number": number,
	}
	spanAttrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.String("http.method", m.method),
		attribute.Int("http.status_code", status),
		attribute.Float64("tasktrail.total_ms", total),
		attribute.String("severity_text", severity),
	}
	if m.userID != "" {
		fields["user"] = m.userID
		spanAttrs = append(spanAttrs, attribute.String("enduser.id", m.userID))
	}
	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
		spanAttrs = append(spanAttrs, attribute.Float64("tasktrail.auth_ms", fields["auth_ms"].(float64)))
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
		spanAttrs = append(spanAttrs, attribute.String("tasktrail.error_stage", m.errorStage))
	}
	if err != nil {
		fields["error"] = err.Error()
		spanAttrs = append(spanAttrs, attribute.String("error.message", err.Error()))
	}
	for k, v := range m.attrs {
		fields[k] = v
		spanAttrs = append(spanAttrs, attributeFor("tasktrail."+k, v))
	}

	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
		m.span.SetAttributes(spanAttrs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(append(spanAttrs, attribute.String("event.name", requestEventName))...))
		if severity == "ERROR" {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	entry := m.logger.WithFields(fields)
	switch severity {
	case "ERROR":
		entry.Error(requestEventName)
	case "WARN":
		entry.Warn(requestEventName)
	default:
		entry.Info(requestEventName)
	}
}

// severityForStatus maps a response to OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil && status < http.StatusBadRequest, status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func attributeFor(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case bool:
		return attribute.Bool(key, val)
	case float64:
		return attribute.Float64(key, val)
	case string:
		return attribute.String(key, val)
	}
	return attribute.String(key, fmt.Sprint(v))
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

package logging

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
)

// DefaultModule tags records emitted through a logger that was never Named.
const DefaultModule = "general"

// Record is one emitted diagnostic event. Records are fully enriched and
// redacted before they reach the sink or a notification sink; nothing mutates
// them afterward.
type Record struct {
	Time     time.Time
	Severity Severity
	Message  string
	Module   string
	Data     map[string]any
}

// NotificationSink receives accepted records, typically to push a log
// notification to a connected client. Notify is called on its own goroutine;
// implementations may block without stalling the emission path.
type NotificationSink interface {
	Notify(ctx context.Context, rec Record)
}

// Statistics is the read-only diagnostic snapshot exposed over the
// statistics surface.
type Statistics struct {
	SessionEnabled bool         `json:"sessionEnabled"`
	SessionStats   SessionStats `json:"sessionStats"`
}

// Logger is the record-emission façade composing the severity policy,
// redactor, rate limiter, trace correlator, and session registry into one
// pipeline. Named children share all of that state and differ only in their
// module tag.
type Logger struct {
	p         *pipeline
	module    string
	noForward bool
}

// pipeline is the state shared by a logger and all of its Named children.
type pipeline struct {
	policy     *Policy
	redactor   *Redactor
	limiter    *Limiter
	correlator *Correlator
	sessions   *SessionRegistry
	sink       zapcore.Core
	fields     map[string]string
	clock      func() time.Time

	mu           sync.RWMutex
	notifier     NotificationSink
	notifyFloor  Severity
	forwardLimit *rate.Limiter
}

// NewLogger creates a logger emitting to stderr.
func NewLogger(cfg *Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return newLogger(cfg, newStderrSink(cfg.Format)), nil
}

// NewLoggerWithSink creates a logger emitting to the given core. Used by
// tests (observer cores) and by callers that own the output stream.
func NewLoggerWithSink(cfg *Config, sink zapcore.Core) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return newLogger(cfg, sink), nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return newLogger(NewDefaultConfig(), zapcore.NewNopCore())
}

func newLogger(cfg *Config, sink zapcore.Core) *Logger {
	redactor := NewRedactor(cfg.Redaction.Keys...)
	redactor.SetEnabled(cfg.Redaction.Enabled)

	window := cfg.RateLimit.Window
	if window <= 0 {
		window = time.Second
	}
	maxPerWindow := cfg.RateLimit.MaxPerWindow
	if maxPerWindow < 1 {
		maxPerWindow = 100
	}
	limiter := NewLimiter(window, maxPerWindow)
	limiter.SetEnabled(cfg.RateLimit.Enabled)

	forward := rate.NewLimiter(rate.Inf, 0)
	if cfg.Notifier.ForwardsPerSecond > 0 {
		forward = rate.NewLimiter(rate.Limit(cfg.Notifier.ForwardsPerSecond), cfg.Notifier.Burst)
	}

	return &Logger{
		module: DefaultModule,
		p: &pipeline{
			policy:       NewPolicy(cfg.Level),
			redactor:     redactor,
			limiter:      limiter,
			correlator:   NewCorrelator(),
			sessions:     NewSessionRegistry(),
			sink:         sink,
			fields:       cfg.Fields,
			clock:        time.Now,
			notifyFloor:  cfg.Notifier.Floor,
			forwardLimit: forward,
		},
	}
}

// Named returns a child logger tagged with the given module. Children share
// policy, limiter, correlator, session, and notifier state with the parent.
func (l *Logger) Named(module string) *Logger {
	if module == "" {
		return l
	}
	return &Logger{p: l.p, module: module, noForward: l.noForward}
}

// WithoutForwarding returns a child logger whose records go to the sink only,
// never to the notification sink. The notification path itself logs through
// such a logger so a failed delivery cannot re-enter forwarding.
func (l *Logger) WithoutForwarding() *Logger {
	return &Logger{p: l.p, module: l.module, noForward: true}
}

// Module returns the logger's module tag.
func (l *Logger) Module() string { return l.module }

// Per-severity entry points. payload may be a string, a map[string]any, an
// error, or anything else (rendered best-effort); logging never fails the
// caller's operation.

func (l *Logger) Debug(ctx context.Context, payload any)     { l.log(ctx, SeverityDebug, payload) }
func (l *Logger) Info(ctx context.Context, payload any)      { l.log(ctx, SeverityInfo, payload) }
func (l *Logger) Notice(ctx context.Context, payload any)    { l.log(ctx, SeverityNotice, payload) }
func (l *Logger) Warning(ctx context.Context, payload any)   { l.log(ctx, SeverityWarning, payload) }
func (l *Logger) Error(ctx context.Context, payload any)     { l.log(ctx, SeverityError, payload) }
func (l *Logger) Critical(ctx context.Context, payload any)  { l.log(ctx, SeverityCritical, payload) }
func (l *Logger) Alert(ctx context.Context, payload any)     { l.log(ctx, SeverityAlert, payload) }
func (l *Logger) Emergency(ctx context.Context, payload any) { l.log(ctx, SeverityEmergency, payload) }

// LogServerError emits at error severity with a normalized error block.
func (l *Logger) LogServerError(ctx context.Context, err error, contextMsg string, meta map[string]any) {
	data := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		data[k] = v
	}
	data["message"] = contextMsg
	errBlock := map[string]any{
		"name":    fmt.Sprintf("%T", err),
		"message": "unknown error",
		"stack":   string(debug.Stack()),
	}
	if err != nil {
		errBlock["message"] = err.Error()
	}
	data["error"] = errBlock
	l.log(ctx, SeverityError, data)
}

// log runs the emission pipeline for one record.
func (l *Logger) log(ctx context.Context, severity Severity, payload any) {
	// Below threshold returns before the limiter so filtered records never
	// consume a rate-limit slot.
	if !l.p.policy.Enabled(severity) {
		return
	}

	rec := l.buildRecord(ctx, severity, payload)

	adm := l.p.limiter.Admit(severity)
	if adm.WindowSuppressed > 0 && l.p.policy.Enabled(SeverityWarning) {
		l.emitSuppressionSummary(adm.WindowSuppressed)
	}
	if !adm.Allowed {
		if adm.FirstDenial && l.p.policy.Enabled(SeverityWarning) {
			l.emit(Record{
				Time:     l.p.clock(),
				Severity: SeverityWarning,
				Message:  "rate limit exceeded, suppressing messages for this window",
				Module:   l.module,
			})
		}
		return
	}

	l.emit(rec)
	l.forward(ctx, rec)
}

// buildRecord normalizes, enriches, and redacts the payload into an
// immutable record. nil map values are preserved (rendered as JSON null);
// absent keys stay absent, keeping the two distinguishable in the output.
func (l *Logger) buildRecord(ctx context.Context, severity Severity, payload any) Record {
	rec := Record{
		Time:     l.p.clock(),
		Severity: severity,
		Module:   l.module,
	}

	switch v := payload.(type) {
	case nil:
	case string:
		rec.Message = v
	case error:
		rec.Message = v.Error()
	case map[string]any:
		data := make(map[string]any, len(v))
		for k, item := range v {
			data[k] = item
		}
		if msg, ok := data["message"].(string); ok {
			rec.Message = msg
			delete(data, "message")
		}
		rec.Data = data
	default:
		// Best-effort rendering for payloads that are not plain structures.
		rec.Message = fmt.Sprint(v)
	}

	rec.Data = l.p.sessions.EnrichLogData(ctx, rec.Data)
	if _, explicit := rec.Data["_trace"]; !explicit {
		if tc := traceContext(ctx); tc != nil {
			if rec.Data == nil {
				rec.Data = make(map[string]any, 1)
			}
			rec.Data["_trace"] = tc
		}
	}

	if rec.Data != nil {
		rec.Data = l.p.redactor.Redact(rec.Data).(map[string]any)
	}
	return rec
}

// emit writes one record to the sink in call order. Keys are sorted so
// rendered output is deterministic.
func (l *Logger) emit(rec Record) {
	entry := zapcore.Entry{
		Level:      rec.Severity.zapLevel(),
		Time:       rec.Time,
		Message:    rec.Message,
		LoggerName: rec.Module,
	}

	ce := l.p.sink.Check(entry, nil)
	if ce == nil {
		return
	}

	fields := make([]zapcore.Field, 0, len(rec.Data)+len(l.p.fields))
	keys := make([]string, 0, len(rec.Data))
	for k := range rec.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, rec.Data[k]))
	}
	constKeys := make([]string, 0, len(l.p.fields))
	for k := range l.p.fields {
		constKeys = append(constKeys, k)
	}
	sort.Strings(constKeys)
	for _, k := range constKeys {
		fields = append(fields, zap.String(k, l.p.fields[k]))
	}

	ce.Write(fields...)
}

// emitSuppressionSummary reports how many records the previous window dropped.
// At most one summary is emitted per window transition.
func (l *Logger) emitSuppressionSummary(suppressed int) {
	l.emit(Record{
		Time:     l.p.clock(),
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("%d messages suppressed by rate limiting", suppressed),
		Module:   l.module,
		Data:     map[string]any{"suppressed": suppressed},
	})
}

// forward hands the record to the notification sink on its own goroutine.
// The forward-rate limiter drops excess records instead of queueing them.
func (l *Logger) forward(ctx context.Context, rec Record) {
	if l.noForward {
		return
	}
	l.p.mu.RLock()
	sink := l.p.notifier
	floor := l.p.notifyFloor
	limit := l.p.forwardLimit
	l.p.mu.RUnlock()

	if sink == nil || rec.Severity < floor {
		return
	}
	if limit != nil && !limit.Allow() {
		return
	}
	go sink.Notify(context.WithoutCancel(ctx), rec)
}

// Operation correlation

// StartOperation begins a traced operation and returns a derived context
// carrying it plus the new span id.
func (l *Logger) StartOperation(ctx context.Context, name string, attrs map[string]any) (context.Context, string) {
	ctx, s := l.p.correlator.Start(ctx, name, attrs)
	return ctx, s.SpanID
}

// EndOperation completes the span with the given id and emits the
// correlated record with merged attributes and elapsed duration. Ending an
// unknown or already-ended span logs a warning and is otherwise a no-op.
func (l *Logger) EndOperation(ctx context.Context, spanID string, resultAttrs map[string]any) {
	s, elapsed, ok := l.p.correlator.End(spanID)
	if !ok {
		l.log(ctx, SeverityWarning, map[string]any{
			"message": "attempted to end unknown span",
			"spanId":  spanID,
		})
		return
	}

	data := make(map[string]any, len(s.Attributes)+len(resultAttrs)+4)
	for k, v := range s.Attributes {
		data[k] = v
	}
	for k, v := range resultAttrs {
		data[k] = v
	}
	success := true
	if _, failed := data["error"]; failed {
		success = false
	}
	data["message"] = fmt.Sprintf("operation %s completed", s.Name)
	data["durationMs"] = elapsed.Milliseconds()
	data["success"] = success
	data["_trace"] = map[string]any{
		"traceId":   s.TraceID,
		"spanId":    s.SpanID,
		"operation": s.Name,
	}
	if s.ParentSpanID != "" {
		data["_trace"].(map[string]any)["parentSpanId"] = s.ParentSpanID
	}

	l.log(ctx, SeverityInfo, data)
}

// LogMethodEntry starts a span for component.method and emits a debug entry
// record tagged with the component.
func (l *Logger) LogMethodEntry(ctx context.Context, component, method string, args map[string]any) (context.Context, string) {
	name := component + "." + method
	ctx, spanID := l.StartOperation(ctx, name, args)
	l.Named(component).log(ctx, SeverityDebug, map[string]any{
		"message": "entering " + name,
		"method":  method,
	})
	return ctx, spanID
}

// LogMethodExit completes a span started by LogMethodEntry.
func (l *Logger) LogMethodExit(ctx context.Context, spanID string, result map[string]any) {
	l.EndOperation(ctx, spanID, result)
}

// LogEndpointEntry starts a span for a protocol endpoint and tags the record
// with the well-known endpoint attribute.
func (l *Logger) LogEndpointEntry(ctx context.Context, endpoint string, meta map[string]any) (context.Context, string) {
	attrs := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		attrs[k] = v
	}
	attrs["endpoint"] = endpoint
	ctx, spanID := l.StartOperation(ctx, endpoint, attrs)
	l.Named("endpoint").log(ctx, SeverityDebug, map[string]any{
		"message":  "handling " + endpoint,
		"endpoint": endpoint,
	})
	return ctx, spanID
}

// Runtime configuration surface

// SetLevel replaces the minimum emitted severity. Unknown names are rejected
// and leave the threshold unchanged.
func (l *Logger) SetLevel(name string) error {
	return l.p.policy.SetThresholdName(name)
}

// Level returns the current threshold.
func (l *Logger) Level() Severity {
	return l.p.policy.Threshold()
}

// SetSensitiveDataFilter toggles redaction.
func (l *Logger) SetSensitiveDataFilter(enabled bool) {
	l.p.redactor.SetEnabled(enabled)
}

// SetRateLimiting toggles the per-window record cap.
func (l *Logger) SetRateLimiting(enabled bool) {
	l.p.limiter.SetEnabled(enabled)
}

// SetNotificationSink registers the downstream notifier and its severity
// floor. Passing nil removes the sink.
func (l *Logger) SetNotificationSink(sink NotificationSink, floor Severity) {
	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	l.p.notifier = sink
	l.p.notifyFloor = floor
}

// Sessions exposes the session registry for transport integration.
func (l *Logger) Sessions() *SessionRegistry {
	return l.p.sessions
}

// Correlator exposes the trace correlator, e.g. to attach an OTel tracer.
func (l *Logger) Correlator() *Correlator {
	return l.p.correlator
}

// Statistics returns the read-only diagnostic snapshot.
func (l *Logger) Statistics() Statistics {
	return Statistics{
		SessionEnabled: true,
		SessionStats:   l.p.sessions.Statistics(l.p.correlator.ActiveSpans()),
	}
}

// Sync flushes the sink. Harmless stderr sync errors are ignored.
func (l *Logger) Sync() error {
	err := l.p.sink.Sync()
	if err != nil && isTerminalSyncError(err) {
		return nil
	}
	return err
}

// Package middleware binds the assignment context to the HTTP request lifecycle.
//
// Before the wrapped handler runs, a fresh assignment.Context is attached to the
// request context. Its cookies are flushed on the first WriteHeader or Write of
// the response, or when the handler returns without writing, so Set-Cookie
// headers always precede the body.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mssola/useragent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"optimize/internal/experiment/assignment"
	"optimize/internal/experiment/cookie"
	"optimize/internal/experiment/metrics"
	"optimize/internal/experiment/selector"
	"optimize/pkg/requestcontext"
)

const tracerName = "optimize/internal/experiment/middleware"

type contextKeyExperiments struct{}

// FromContext returns the assignment context attached by the middleware.
func FromContext(ctx context.Context) (*assignment.Context, bool) {
	c, ok := ctx.Value(contextKeyExperiments{}).(*assignment.Context)
	return c, ok
}

// WithContext attaches an assignment context. Useful for handler tests that
// don't run the middleware.
func WithContext(ctx context.Context, c *assignment.Context) context.Context {
	return context.WithValue(ctx, contextKeyExperiments{}, c)
}

type Middleware struct {
	registry assignment.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	codec    cookie.Codec
	rand     selector.Source
	tracer   trace.Tracer
	secure   bool
	wakeUp   bool
	skipBots bool
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

// WithCodec overrides the cookie namespace and lifetime.
func WithCodec(codec cookie.Codec) Option {
	return func(mw *Middleware) {
		mw.codec = codec
	}
}

// WithRandSource sets the random source shared by every request. It must be
// safe for concurrent use.
func WithRandSource(src selector.Source) Option {
	return func(mw *Middleware) {
		mw.rand = src
	}
}

// WithSecureCookies marks assignment cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(mw *Middleware) {
		mw.secure = secure
	}
}

// WithWakeUp restores cookie assignments of every declared experiment before
// the handler runs, so templates can read them without calling Run.
func WithWakeUp(enabled bool) Option {
	return func(mw *Middleware) {
		mw.wakeUp = enabled
	}
}

// WithSkipBots leaves responses to crawlers without assignment cookies.
// Assignments still work within the request.
func WithSkipBots(skip bool) Option {
	return func(mw *Middleware) {
		mw.skipBots = skip
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(mw *Middleware) {
		mw.tracer = tp.Tracer(tracerName)
	}
}

func New(registry assignment.Registry, logger *slog.Logger, opts ...Option) *Middleware {
	mw := &Middleware{
		registry: registry,
		logger:   logger,
		codec:    cookie.DefaultCodec(),
		rand:     selector.Global,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(mw)
	}
	return mw
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "experiments.request")
		defer span.End()

		opts := []assignment.Option{
			assignment.WithLogger(m.logger),
			assignment.WithCodec(m.codec),
			assignment.WithRandSource(m.rand),
		}
		if m.metrics != nil {
			opts = append(opts, assignment.WithMetrics(m.metrics))
		}
		experiments := assignment.New(m.registry, cookie.NewRequestReader(r), opts...)
		if m.wakeUp {
			experiments.WakeUp()
		}

		fw := &flushWriter{ResponseWriter: w}
		fw.beforeWrite = func() { m.flush(ctx, w, r, experiments) }

		next.ServeHTTP(fw, r.WithContext(WithContext(ctx, experiments)))
		fw.ensureFlushed()

		span.SetAttributes(
			attribute.String("optimize.assignments", experiments.String()),
			attribute.Int("optimize.assignment_count", len(experiments.Assignments())),
		)
		m.logger.DebugContext(ctx, "experiment assignments",
			"assignments", experiments.String(),
			"request_id", requestcontext.RequestID(ctx),
			"elapsed", time.Since(requestcontext.Now(ctx)),
		)
	})
}

func (m *Middleware) flush(ctx context.Context, w http.ResponseWriter, r *http.Request, experiments *assignment.Context) {
	if experiments.Flushed() {
		return
	}
	if m.skipBots && isBot(r) {
		experiments.Discard()
		if m.metrics != nil {
			m.metrics.IncrementFlushSkipped()
		}
		return
	}
	if err := experiments.Flush(cookie.NewResponseWriter(w, m.secure)); err != nil {
		m.logger.WarnContext(ctx, "failed to flush experiment cookies",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func isBot(r *http.Request) bool {
	ua := requestcontext.UserAgent(r.Context())
	if ua == "" {
		ua = r.UserAgent()
	}
	if ua == "" {
		return false
	}
	return useragent.New(ua).Bot()
}

// flushWriter runs beforeWrite once, ahead of the first header or body write.
type flushWriter struct {
	http.ResponseWriter
	beforeWrite func()
	done        bool
}

func (fw *flushWriter) ensureFlushed() {
	if fw.done {
		return
	}
	fw.done = true
	fw.beforeWrite()
}

func (fw *flushWriter) WriteHeader(status int) {
	fw.ensureFlushed()
	fw.ResponseWriter.WriteHeader(status)
}

func (fw *flushWriter) Write(b []byte) (int, error) {
	fw.ensureFlushed()
	return fw.ResponseWriter.Write(b)
}

func (fw *flushWriter) Flush() {
	fw.ensureFlushed()
	if f, ok := fw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (fw *flushWriter) Unwrap() http.ResponseWriter {
	return fw.ResponseWriter
}

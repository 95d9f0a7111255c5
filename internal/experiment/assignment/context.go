// Package assignment implements the per-request experiment context.
//
// A Context is created for each incoming request, used by a single goroutine
// while the request is handled, and flushed once before the response is sent.
// Assignments are kept in the order they were made so that cookies and the
// analytics snippet render deterministically.
package assignment

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"optimize/internal/experiment/cookie"
	"optimize/internal/experiment/metrics"
	"optimize/internal/experiment/models"
	"optimize/internal/experiment/selector"
)

// Registry is the read-only view of declared experiments the context needs.
type Registry interface {
	LookupByKey(key string) (*models.Experiment, error)
	All() iter.Seq[*models.Experiment]
}

// Context tracks the experiments run in one request and their variations.
type Context struct {
	registry Registry
	cookies  cookie.Reader
	codec    cookie.Codec
	rand     selector.Source
	logger   *slog.Logger
	metrics  *metrics.Metrics

	active  map[string]int
	order   []string
	flushed bool
}

type Option func(*Context)

// WithRandSource sets the random source for weighted draws.
func WithRandSource(src selector.Source) Option {
	return func(c *Context) {
		c.rand = src
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Context) {
		c.metrics = m
	}
}

// WithCodec overrides the cookie naming and lifetime.
func WithCodec(codec cookie.Codec) Option {
	return func(c *Context) {
		c.codec = codec
	}
}

// New creates a context bound to registry, reading prior assignments from cookies.
func New(registry Registry, cookies cookie.Reader, opts ...Option) *Context {
	c := &Context{
		registry: registry,
		cookies:  cookies,
		codec:    cookie.DefaultCodec(),
		rand:     selector.Global,
		logger:   slog.New(slog.DiscardHandler),
		active:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run enables an experiment for this request. The visitor keeps the variation
// recorded in their cookie when it is still valid; otherwise a variation is
// drawn by weight. Running an experiment twice in a request is a no-op.
func (c *Context) Run(key string) error {
	exp, err := c.registry.LookupByKey(key)
	if err != nil {
		return err
	}
	if c.flushed {
		return fmt.Errorf("run %q: %w", key, models.ErrFlushed)
	}
	if _, ok := c.active[exp.Key]; ok {
		return nil
	}

	if index, ok := c.priorAssignment(exp); ok {
		c.assign(exp.Key, index)
		c.observe(exp.Key, metrics.SourceCookie)
		return nil
	}

	index := selector.Choose(exp.Variations, c.rand)
	c.assign(exp.Key, index)
	c.observe(exp.Key, metrics.SourceDrawn)
	c.logger.Debug("experiment variation drawn",
		"experiment", exp.Key,
		"variation_index", index,
	)
	return nil
}

// WakeUp restores every declared experiment that has a valid cookie, without
// drawing new variations. Experiments already assigned in this request are
// left untouched.
func (c *Context) WakeUp() {
	if c.flushed {
		return
	}
	for exp := range c.registry.All() {
		if _, ok := c.active[exp.Key]; ok {
			continue
		}
		if index, ok := c.priorAssignment(exp); ok {
			c.assign(exp.Key, index)
			c.observe(exp.Key, metrics.SourceCookie)
		}
	}
}

// SetVariation forces the variation of a declared experiment, replacing any
// assignment made earlier in the request.
func (c *Context) SetVariation(key string, index int) error {
	exp, err := c.registry.LookupByKey(key)
	if err != nil {
		return err
	}
	if c.flushed {
		return fmt.Errorf("set variation %q: %w", key, models.ErrFlushed)
	}
	if _, err := exp.Variation(index); err != nil {
		return err
	}
	c.assign(exp.Key, index)
	c.observe(exp.Key, metrics.SourceForced)
	return nil
}

// VariationFor returns the variation assigned to an experiment in this request.
func (c *Context) VariationFor(key string) (models.Assignment, error) {
	exp, err := c.registry.LookupByKey(key)
	if err != nil {
		return models.Assignment{}, err
	}
	index, ok := c.active[exp.Key]
	if !ok {
		return models.Assignment{}, fmt.Errorf("%w: %q", models.ErrNotAssigned, key)
	}
	return newAssignment(exp, index), nil
}

// IsAssigned reports whether key has a variation in this request.
func (c *Context) IsAssigned(key string) bool {
	_, ok := c.active[key]
	return ok
}

// Assignments returns the active assignments in assignment order.
func (c *Context) Assignments() []models.Assignment {
	out := make([]models.Assignment, 0, len(c.order))
	for key, index := range c.entries() {
		exp, err := c.registry.LookupByKey(key)
		if err != nil {
			continue
		}
		out = append(out, newAssignment(exp, index))
	}
	return out
}

// String renders assignments as "experiment=variation" pairs joined by ";".
func (c *Context) String() string {
	pairs := make([]string, 0, len(c.order))
	for _, a := range c.Assignments() {
		pairs = append(pairs, a.ExperimentKey+"="+a.Variation.Key)
	}
	return strings.Join(pairs, ";")
}

// Flush writes one cookie per assigned experiment. It may be called once;
// afterwards the context rejects further changes.
func (c *Context) Flush(w cookie.Writer) error {
	if c.flushed {
		return models.ErrFlushed
	}
	c.flushed = true

	written := 0
	for _, a := range c.Assignments() {
		w.Set(c.codec.Name(a.ExperimentID), c.codec.Encode(a.Index), c.codec.MaxAge)
		written++
	}
	if c.metrics != nil {
		c.metrics.AddCookiesWritten(written)
	}
	return nil
}

// Discard marks the context flushed without writing cookies.
func (c *Context) Discard() {
	c.flushed = true
}

// Flushed reports whether Flush or Discard has been called.
func (c *Context) Flushed() bool {
	return c.flushed
}

func (c *Context) priorAssignment(exp *models.Experiment) (int, bool) {
	raw, ok := c.cookies.Get(c.codec.Name(exp.ID))
	if !ok {
		return 0, false
	}
	index, ok := c.codec.Decode(raw, exp.Variations.Len())
	if !ok {
		c.logger.Debug("ignoring invalid assignment cookie",
			"experiment", exp.Key,
			"variations", exp.Variations.Len(),
		)
		if c.metrics != nil {
			c.metrics.IncrementInvalidCookie(exp.Key)
		}
		return 0, false
	}
	return index, true
}

func (c *Context) assign(key string, index int) {
	if _, ok := c.active[key]; !ok {
		c.order = append(c.order, key)
	}
	c.active[key] = index
}

func (c *Context) entries() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		for _, key := range c.order {
			if !yield(key, c.active[key]) {
				return
			}
		}
	}
}

func (c *Context) observe(key, source string) {
	if c.metrics != nil {
		c.metrics.IncrementAssignment(key, source)
	}
}

func newAssignment(exp *models.Experiment, index int) models.Assignment {
	return models.Assignment{
		ExperimentKey: exp.Key,
		ExperimentID:  exp.ID,
		Index:         index,
		Variation:     exp.Variations.At(index),
	}
}

// Package model wraps calls to a text generator with a per-call timeout and a
// bounded retry, and reports each call as an explicit Outcome so callers can
// choose their fallback.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	defaultTimeout = 20 * time.Second
	defaultBackoff = 250 * time.Millisecond
)

// Generator turns a text prompt into generated text. Implementations live in
// the engine package (Ollama, OpenAI-compatible endpoints).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Outcome classifies the result of one model call so callers can choose a
// fallback with an explicit branch.
type Outcome int

const (
	// OK means the model returned usable text.
	OK Outcome = iota
	// Unavailable means no generator is configured.
	Unavailable
	// Failed means the call errored or timed out after retries.
	Failed
	// Malformed means the call succeeded but the text could not be used.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Unavailable:
		return "unavailable"
	case Failed:
		return "failed"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the outcome of a single model call.
type Result struct {
	Text     string
	Outcome  Outcome
	Err      error
	Attempts int
}

// OK reports whether the call produced usable text.
func (r Result) OK() bool { return r.Outcome == OK }

// Malform downgrades an OK result whose text the caller could not use.
func (r Result) Malform(reason string) Result {
	r.Outcome = Malformed
	r.Err = errors.New(reason)
	return r
}

// PermanentError marks an error that retrying cannot fix (bad request,
// authentication failure, unknown model).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the Caller does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Caller wraps a Generator with a per-attempt timeout and a bounded retry.
// A nil Caller, or one without a Generator, reports Unavailable.
type Caller struct {
	gen     Generator
	timeout time.Duration
	retries int
	backoff time.Duration
}

// Option configures a Caller.
type Option func(*Caller)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Caller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many extra attempts follow a transient failure.
func WithRetries(n int) Option {
	return func(c *Caller) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the pause before each retry.
func WithBackoff(d time.Duration) Option {
	return func(c *Caller) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// NewCaller creates a Caller around gen. gen may be nil, in which case every
// call reports Unavailable. Defaults: 20s timeout, one retry, 250ms backoff.
func NewCaller(gen Generator, opts ...Option) *Caller {
	c := &Caller{
		gen:     gen,
		timeout: defaultTimeout,
		retries: 1,
		backoff: defaultBackoff,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Available reports whether a generator is configured.
func (c *Caller) Available() bool {
	return c != nil && c.gen != nil
}

// Call sends prompt to the generator. Errors never escape: they are reported
// through the Result so the caller can pick its fallback.
func (c *Caller) Call(ctx context.Context, prompt string) Result {
	if !c.Available() {
		return Result{Outcome: Unavailable}
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{Outcome: Failed, Err: ctx.Err(), Attempts: attempts}
			case <-time.After(c.backoff):
			}
		}
		attempts++

		text, err := c.generate(ctx, prompt)
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				return Result{Outcome: Malformed, Err: errors.New("empty model response"), Attempts: attempts}
			}
			return Result{Text: text, Outcome: OK, Attempts: attempts}
		}

		lastErr = err
		var perm *PermanentError
		if errors.As(err, &perm) || ctx.Err() != nil {
			break
		}
		slog.Debug("model call failed", "attempt", attempts, "error", err)
	}

	return Result{Outcome: Failed, Err: lastErr, Attempts: attempts}
}

func (c *Caller) generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.gen.Generate(callCtx, prompt)
}

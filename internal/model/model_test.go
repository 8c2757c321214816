package model

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type scriptedGen struct {
	calls   atomic.Int32
	replies []string
	errs    []error
}

func (g *scriptedGen) Generate(_ context.Context, _ string) (string, error) {
	i := int(g.calls.Add(1)) - 1
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(g.replies) {
		return g.replies[i], nil
	}
	return "", nil
}

type blockingGen struct{}

func (blockingGen) Generate(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestCall_NoGenerator(t *testing.T) {
	var nilCaller *Caller
	if got := nilCaller.Call(context.Background(), "hi"); got.Outcome != Unavailable {
		t.Errorf("nil caller outcome = %v, want unavailable", got.Outcome)
	}
	if got := NewCaller(nil).Call(context.Background(), "hi"); got.Outcome != Unavailable {
		t.Errorf("outcome = %v, want unavailable", got.Outcome)
	}
}

func TestCall_Success(t *testing.T) {
	gen := &scriptedGen{replies: []string{"  QUESTION \n"}}
	res := NewCaller(gen).Call(context.Background(), "classify")
	if !res.OK() {
		t.Fatalf("outcome = %v, want ok (err %v)", res.Outcome, res.Err)
	}
	if res.Text != "QUESTION" {
		t.Errorf("Text = %q, want trimmed text", res.Text)
	}
	if res.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", res.Attempts)
	}
}

func TestCall_RetriesOnceThenSucceeds(t *testing.T) {
	gen := &scriptedGen{
		errs:    []error{errors.New("connection reset")},
		replies: []string{"", "answer"},
	}
	res := NewCaller(gen, WithBackoff(time.Millisecond)).Call(context.Background(), "p")
	if !res.OK() || res.Text != "answer" {
		t.Fatalf("got %+v, want ok answer", res)
	}
	if n := gen.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestCall_FailsAfterRetries(t *testing.T) {
	boom := errors.New("boom")
	gen := &scriptedGen{errs: []error{boom, boom, boom}}
	res := NewCaller(gen, WithBackoff(time.Millisecond)).Call(context.Background(), "p")
	if res.Outcome != Failed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, boom) {
		t.Errorf("Err = %v, want boom", res.Err)
	}
	if n := gen.calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", n)
	}
}

func TestCall_PermanentErrorNotRetried(t *testing.T) {
	gen := &scriptedGen{errs: []error{Permanent(errors.New("unauthorized"))}}
	res := NewCaller(gen, WithBackoff(time.Millisecond), WithRetries(3)).Call(context.Background(), "p")
	if res.Outcome != Failed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}
	if n := gen.calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestCall_EmptyTextIsMalformed(t *testing.T) {
	gen := &scriptedGen{replies: []string{"   "}}
	res := NewCaller(gen).Call(context.Background(), "p")
	if res.Outcome != Malformed {
		t.Errorf("outcome = %v, want malformed", res.Outcome)
	}
}

func TestCall_Timeout(t *testing.T) {
	c := NewCaller(blockingGen{}, WithTimeout(10*time.Millisecond), WithRetries(0))
	start := time.Now()
	res := c.Call(context.Background(), "p")
	if res.Outcome != Failed {
		t.Fatalf("outcome = %v, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", res.Err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced")
	}
}

func TestResult_Malform(t *testing.T) {
	r := Result{Text: "MAYBE", Outcome: OK}.Malform("unrecognized label")
	if r.Outcome != Malformed || r.Err == nil {
		t.Errorf("got %+v, want malformed with error", r)
	}
	if r.Text != "MAYBE" {
		t.Errorf("Text should be preserved, got %q", r.Text)
	}
}

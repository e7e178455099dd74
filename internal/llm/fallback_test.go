package llm

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	resp  Response
	err   error
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, req Request) (Response, error) {
	f.calls++
	return f.resp, f.err
}

func TestFallbackPrimarySucceeds(t *testing.T) {
	primary := &fakeClient{resp: Response{Text: "ok"}}
	fallback := &fakeClient{resp: Response{Text: "backup"}}
	c := NewFallbackClient(primary, fallback, nil)

	resp, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("expected primary response, got %q", resp.Text)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback should not be called, got %d calls", fallback.calls)
	}
}

func TestFallbackUsedOnPrimaryFailure(t *testing.T) {
	primary := &fakeClient{err: errors.New("boom")}
	fallback := &fakeClient{resp: Response{Text: "backup"}}
	c := NewFallbackClient(primary, fallback, nil)

	resp, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "backup" {
		t.Fatalf("expected fallback response, got %q", resp.Text)
	}
}

func TestFallbackNilReturnsPrimaryError(t *testing.T) {
	primary := &fakeClient{err: errors.New("boom")}
	c := NewFallbackClient(primary, nil, nil)

	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error when primary fails with no fallback")
	}
}

func TestFallbackBothFail(t *testing.T) {
	primary := &fakeClient{err: errors.New("boom")}
	fallback := &fakeClient{err: errors.New("also boom")}
	c := NewFallbackClient(primary, fallback, nil)

	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error when both providers fail")
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("expected one call each, got %d/%d", primary.calls, fallback.calls)
	}
}

package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubLeaseClient struct {
	acquire    bool
	acquireErr error

	setKey   string
	setValue interface{}
	setTTL   time.Duration

	evalKeys []string
	evalArgs []interface{}
	evals    int
}

func (s *stubLeaseClient) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	s.setKey = key
	s.setValue = value
	s.setTTL = expiration
	return redis.NewBoolResult(s.acquire, s.acquireErr)
}

func (s *stubLeaseClient) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	s.evals++
	s.evalKeys = keys
	s.evalArgs = args
	return redis.NewCmdResult(int64(1), nil)
}

func TestRedisGuardRunsJobWhenLeaseAcquired(t *testing.T) {
	t.Parallel()

	client := &stubLeaseClient{acquire: true}
	guard := newRedisGuard(client, "", time.Minute, nil)
	guard.token = func() string { return "token-1" }

	ran := false
	if err := guard.Run(context.Background(), "reset-cutoffs", func(context.Context) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if !ran {
		t.Fatal("expected job to run")
	}
	if client.setKey != "camp:lease:reset-cutoffs" || client.setValue != "token-1" || client.setTTL != time.Minute {
		t.Fatalf("unexpected SetNX call: key=%s value=%v ttl=%s", client.setKey, client.setValue, client.setTTL)
	}
	if client.evals != 1 || len(client.evalKeys) != 1 || client.evalKeys[0] != "camp:lease:reset-cutoffs" {
		t.Fatalf("expected lease release, got %d evals with keys %v", client.evals, client.evalKeys)
	}
	if len(client.evalArgs) != 1 || client.evalArgs[0] != "token-1" {
		t.Fatalf("expected release to carry the token, got %v", client.evalArgs)
	}
}

func TestRedisGuardSkipsWhenLeaseHeld(t *testing.T) {
	t.Parallel()

	client := &stubLeaseClient{acquire: false}
	guard := newRedisGuard(client, "test:", 0, nil)

	err := guard.Run(context.Background(), "reset-cutoffs", func(context.Context) error {
		t.Fatal("job must not run while the lease is held")
		return nil
	})
	if !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}
	if client.setTTL != 5*time.Minute {
		t.Fatalf("expected default ttl, got %s", client.setTTL)
	}
	if client.evals != 0 {
		t.Fatalf("expected no release for an unacquired lease, got %d", client.evals)
	}
}

func TestRedisGuardPropagatesErrors(t *testing.T) {
	t.Parallel()

	t.Run("acquire failure", func(t *testing.T) {
		t.Parallel()
		client := &stubLeaseClient{acquireErr: errors.New("connection refused")}
		guard := newRedisGuard(client, "", time.Minute, nil)
		if err := guard.Run(context.Background(), "job", func(context.Context) error { return nil }); err == nil {
			t.Fatal("expected acquire error")
		}
	})

	t.Run("job failure still releases", func(t *testing.T) {
		t.Parallel()
		client := &stubLeaseClient{acquire: true}
		guard := newRedisGuard(client, "", time.Minute, nil)
		jobErr := errors.New("boom")
		if err := guard.Run(context.Background(), "job", func(context.Context) error { return jobErr }); !errors.Is(err, jobErr) {
			t.Fatalf("expected job error, got %v", err)
		}
		if client.evals != 1 {
			t.Fatalf("expected lease release after failure, got %d", client.evals)
		}
	})
}

func TestLocalGuardRunsDirectly(t *testing.T) {
	t.Parallel()

	calls := 0
	if err := (LocalGuard{}).Run(context.Background(), "job", func(context.Context) error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestShutdownManager_Shutdown(t *testing.T) {
	t.Run("runs registered functions in order", func(t *testing.T) {
		sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

		var order []int
		sm.Register(func(ctx context.Context) error {
			order = append(order, 1)
			return nil
		})
		sm.Register(func(ctx context.Context) error {
			order = append(order, 2)
			return nil
		})

		if err := sm.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
		if len(order) != 2 || order[0] != 1 || order[1] != 2 {
			t.Errorf("shutdown order = %v, want [1 2]", order)
		}
	})

	t.Run("first error wins but later steps still run", func(t *testing.T) {
		sm := NewShutdownManager(NewNopLogger(), nil, time.Second)

		wantErr := errors.New("redis close failed")
		ran := false
		sm.Register(func(ctx context.Context) error { return wantErr })
		sm.Register(func(ctx context.Context) error {
			ran = true
			return errors.New("second error")
		})

		err := sm.Shutdown(context.Background())
		if !errors.Is(err, wantErr) {
			t.Errorf("Shutdown() error = %v, want %v", err, wantErr)
		}
		if !ran {
			t.Error("Expected later shutdown step to run after an earlier failure")
		}
	})

	t.Run("drains the http server", func(t *testing.T) {
		server := &http.Server{Addr: "127.0.0.1:0"}
		sm := NewShutdownManager(NewNopLogger(), server, time.Second)

		// Shutdown on a never-started server returns immediately with no error.
		if err := sm.Shutdown(context.Background()); err != nil {
			t.Fatalf("Shutdown() error = %v", err)
		}
	})

	t.Run("default timeout applied", func(t *testing.T) {
		sm := NewShutdownManager(NewNopLogger(), nil, 0)
		if sm.timeout != 30*time.Second {
			t.Errorf("timeout = %v, want 30s", sm.timeout)
		}
	})
}

func TestRecoverPanic(t *testing.T) {
	logger := NewNopLogger()

	func() {
		defer RecoverPanic(logger, "test job")
		panic("boom")
	}()
	// Reaching here means the panic was absorbed.
}

func TestMustRecover(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if err := MustRecover(nil); err != nil {
			t.Errorf("MustRecover(nil) = %v, want nil", err)
		}
	})

	t.Run("panic becomes error", func(t *testing.T) {
		var err error
		func() {
			defer func() { err = MustRecover(recover()) }()
			panic("bad parse")
		}()
		if err == nil || err.Error() != "panic: bad parse" {
			t.Errorf("MustRecover error = %v", err)
		}
	})
}

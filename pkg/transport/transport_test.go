package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confpush-net/confpush/pkg/creds"
	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/util"
)

type nullTransport struct{}

func (nullTransport) Open(context.Context, *inventory.Target, creds.Credentials) (Session, error) {
	return nil, NewError(KindConnect, "test", errors.New("not implemented"))
}

func TestRegistry(t *testing.T) {
	Register("null-test", func() Transport { return nullTransport{} })

	tr, err := New("null-test")
	if err != nil {
		t.Fatalf("New(null-test) failed: %v", err)
	}
	if tr == nil {
		t.Fatal("New returned nil transport")
	}

	_, err = New("no-such-driver")
	if !errors.Is(err, util.ErrUnknownDriver) {
		t.Errorf("New(no-such-driver) = %v, want ErrUnknownDriver", err)
	}

	found := false
	for _, name := range Drivers() {
		if name == "null-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("Drivers() = %v, missing null-test", Drivers())
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate Register should panic")
		}
	}()
	Register("dup-test", func() Transport { return nullTransport{} })
	Register("dup-test", func() Transport { return nullTransport{} })
}

func TestErrorKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(KindConnect, "leaf1-ny", cause)

	if KindOf(err) != KindConnect {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindConnect)
	}
	if !errors.Is(err, cause) {
		t.Error("Error should unwrap to its cause")
	}

	// wrapped one level deeper
	wrapped := errors.Join(errors.New("outer"), err)
	if KindOf(wrapped) != KindConnect {
		t.Errorf("KindOf(wrapped) = %q, want %q", KindOf(wrapped), KindConnect)
	}

	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain error should map to KindUnknown")
	}
}

func TestIsAutoRollback(t *testing.T) {
	err := NewError(KindCommit, "leaf1-ny", ErrAutoRollback)

	if !IsAutoRollback(err) {
		t.Error("commit error wrapping ErrAutoRollback should be detected")
	}
	if IsAutoRollback(NewError(KindCommit, "leaf1-ny", errors.New("merge failed"))) {
		t.Error("plain commit failure must not read as auto-rollback")
	}
}

func TestCallTimeout(t *testing.T) {
	target := &inventory.Target{Name: "leaf1", Options: map[string]string{"timeout": "45"}}
	if got := CallTimeout(target, 30*time.Second); got != 45*time.Second {
		t.Errorf("CallTimeout = %v, want 45s", got)
	}

	target = &inventory.Target{Name: "leaf1"}
	if got := CallTimeout(target, 30*time.Second); got != 30*time.Second {
		t.Errorf("CallTimeout default = %v, want 30s", got)
	}

	target = &inventory.Target{Name: "leaf1", Options: map[string]string{"timeout": "junk"}}
	if got := CallTimeout(target, 30*time.Second); got != 30*time.Second {
		t.Errorf("CallTimeout with bad option = %v, want 30s", got)
	}
}

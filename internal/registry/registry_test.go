package registry

import (
	"sync"
	"testing"
)

// fakeConn records frames and close calls.
type fakeConn struct {
	mu     sync.Mutex
	jsons  []any
	texts  []string
	closed bool
	fail   bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errWrite
	}
	f.jsons = append(f.jsons, v)
	return nil
}

func (f *fakeConn) WriteText(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errWrite
	}
	f.texts = append(f.texts, s)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var errWrite = &writeError{}

type writeError struct{}

func (*writeError) Error() string { return "write failed" }

func TestRegisterReplacesExistingConnection(t *testing.T) {
	r := New()
	first := &fakeConn{}
	second := &fakeConn{}

	if prev := r.Register(RoleWorker, 7, first); prev != nil {
		t.Fatalf("first register returned prev %v, want nil", prev)
	}
	prev := r.Register(RoleWorker, 7, second)
	if prev != first {
		t.Fatalf("second register returned %v, want first conn", prev)
	}
	prev.Close()

	if !r.Send(RoleWorker, 7, "hello") {
		t.Fatal("send after replacement returned false")
	}
	if len(first.jsons) != 0 {
		t.Errorf("first conn received %d frames after replacement", len(first.jsons))
	}
	if len(second.jsons) != 1 {
		t.Errorf("second conn received %d frames, want 1", len(second.jsons))
	}
	if !first.closed {
		t.Error("replaced conn was not closed")
	}
}

func TestSendToAbsentIdentity(t *testing.T) {
	r := New()
	if r.Send(RoleWorker, 42, "anyone home") {
		t.Error("Send to absent identity returned true")
	}
	if r.SendText(RoleManager, 42, "anyone home") {
		t.Error("SendText to absent identity returned true")
	}
}

func TestSendReturnsFalseOnWriteFailure(t *testing.T) {
	r := New()
	r.Register(RoleWorker, 1, &fakeConn{fail: true})
	if r.Send(RoleWorker, 1, "x") {
		t.Error("Send returned true despite write failure")
	}
}

func TestUnregister(t *testing.T) {
	r := New()
	c := &fakeConn{}
	r.Register(RoleWorker, 1, c)

	// Unregister for an absent key is a no-op.
	r.Unregister(RoleWorker, 99, nil)

	// A stale unregister carrying the old conn must not evict a newer one.
	replacement := &fakeConn{}
	r.Register(RoleWorker, 1, replacement)
	r.Unregister(RoleWorker, 1, c)
	if _, ok := r.Lookup(RoleWorker, 1); !ok {
		t.Fatal("stale unregister evicted the replacement connection")
	}

	r.Unregister(RoleWorker, 1, replacement)
	if _, ok := r.Lookup(RoleWorker, 1); ok {
		t.Fatal("connection still registered after unregister")
	}
}

func TestRolesAreIndependentKeys(t *testing.T) {
	r := New()
	worker := &fakeConn{}
	manager := &fakeConn{}
	r.Register(RoleWorker, 5, worker)
	r.Register(RoleManager, 5, manager)

	r.Send(RoleWorker, 5, "w")
	r.Send(RoleManager, 5, "m")

	if len(worker.jsons) != 1 || len(manager.jsons) != 1 {
		t.Errorf("frames: worker=%d manager=%d, want 1 and 1", len(worker.jsons), len(manager.jsons))
	}
}

func TestConcurrentRegisterAndSend(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := int64(i % 5)
		go func() {
			defer wg.Done()
			r.Register(RoleWorker, id, &fakeConn{})
		}()
		go func() {
			defer wg.Done()
			r.Send(RoleWorker, id, "ping")
		}()
	}
	wg.Wait()

	if n := r.Len(); n != 5 {
		t.Errorf("Len() = %d, want 5", n)
	}
}

package vangoedge

import (
	"net/http"
	"sync"
	"testing"
)

func TestResponseOptions_InsertReplacesAppendAccumulates(t *testing.T) {
	opts := NewResponseOptions()

	opts.InsertHeader("X-Thing", "one")
	opts.InsertHeader("X-Thing", "two")
	opts.AppendHeader("Set-Cookie", "a=1")
	opts.AppendHeader("Set-Cookie", "b=2")

	parts := opts.Snapshot()
	if got := parts.Header.Values("X-Thing"); len(got) != 1 || got[0] != "two" {
		t.Fatalf("X-Thing = %v", got)
	}
	if got := parts.Header.Values("Set-Cookie"); len(got) != 2 {
		t.Fatalf("Set-Cookie = %v", got)
	}
}

func TestResponseOptions_Overwrite(t *testing.T) {
	opts := NewResponseOptions()
	opts.SetStatus(http.StatusTeapot)
	opts.InsertHeader("X-Old", "gone")

	header := make(http.Header)
	header.Set("X-New", "here")
	opts.Overwrite(ResponseParts{Status: http.StatusAccepted, Header: header})

	parts := opts.Snapshot()
	if parts.Status != http.StatusAccepted {
		t.Fatalf("Status = %d, want 202", parts.Status)
	}
	if parts.Header.Get("X-Old") != "" {
		t.Fatal("expected old header to be gone")
	}
	if parts.Header.Get("X-New") != "here" {
		t.Fatal("expected new header to survive")
	}

	// Overwrite with a nil header must leave a usable handle behind.
	opts.Overwrite(ResponseParts{})
	opts.InsertHeader("X-After", "ok")
	if opts.Snapshot().Header.Get("X-After") != "ok" {
		t.Fatal("expected handle to stay usable after zero overwrite")
	}
}

func TestResponseOptions_SnapshotIsACopy(t *testing.T) {
	opts := NewResponseOptions()
	opts.InsertHeader("X-A", "1")

	parts := opts.Snapshot()
	parts.Header.Set("X-A", "mutated")
	parts.Status = 999

	fresh := opts.Snapshot()
	if fresh.Header.Get("X-A") != "1" || fresh.Status != 0 {
		t.Fatalf("snapshot mutation leaked back: %+v", fresh)
	}
}

func TestResponseOptions_ConcurrentUse(t *testing.T) {
	opts := NewResponseOptions()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts.SetStatus(http.StatusOK)
			opts.AppendHeader("X-N", "v")
			_ = opts.Snapshot()
		}()
	}
	wg.Wait()

	if got := len(opts.Snapshot().Header.Values("X-N")); got != 16 {
		t.Fatalf("appended %d values, want 16", got)
	}
}

func TestRedirect_NoScopeIsNoop(t *testing.T) {
	// Must not panic.
	Redirect(nil, "/elsewhere")
	RedirectCtx(nil, "/elsewhere")
}

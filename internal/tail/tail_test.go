package tail

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTail(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", s.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_BroadcastsWrites(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer srv.Close()

	conn := dialTail(t, srv)
	defer conn.Close()
	waitForClients(t, s, 1)

	if _, err := s.Write([]byte(`{"level":"INFO","msg":"invoked"}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := readMessage(t, conn); got != `{"level":"INFO","msg":"invoked"}` {
		t.Fatalf("message = %q", got)
	}
}

func TestServer_ReplaysRecentLinesOnConnect(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer srv.Close()

	s.Write([]byte("line-1\n"))
	s.Write([]byte("line-2\n"))

	conn := dialTail(t, srv)
	defer conn.Close()

	if got := readMessage(t, conn); got != "line-1" {
		t.Fatalf("first replayed line = %q", got)
	}
	if got := readMessage(t, conn); got != "line-2" {
		t.Fatalf("second replayed line = %q", got)
	}
}

func TestServer_RingEvictsOldest(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer srv.Close()

	for i := 0; i < ringSize+3; i++ {
		s.Write([]byte(fmt.Sprintf("line-%d\n", i)))
	}

	conn := dialTail(t, srv)
	defer conn.Close()

	if got := readMessage(t, conn); got != "line-3" {
		t.Fatalf("oldest replayed line = %q, want line-3", got)
	}
}

func TestServer_MultipleClients(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer srv.Close()

	a := dialTail(t, srv)
	defer a.Close()
	b := dialTail(t, srv)
	defer b.Close()
	waitForClients(t, s, 2)

	s.Write([]byte("hello\n"))

	if got := readMessage(t, a); got != "hello" {
		t.Fatalf("client a got %q", got)
	}
	if got := readMessage(t, b); got != "hello" {
		t.Fatalf("client b got %q", got)
	}
}

func TestServer_DropsDisconnectedClient(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer srv.Close()

	conn := dialTail(t, srv)
	waitForClients(t, s, 1)
	conn.Close()
	waitForClients(t, s, 0)
}

func TestServer_ConcurrentTailAndLogging(t *testing.T) {
	s := NewServer()
	srv := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer srv.Close()

	// Full ring so every new client gets a long replay while the writer
	// keeps broadcasting.
	for i := 0; i < ringSize; i++ {
		s.Write([]byte(fmt.Sprintf("seed-%d\n", i)))
	}

	done := make(chan struct{})
	var writes sync.WaitGroup
	writes.Add(1)
	go func() {
		defer writes.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			s.Write([]byte(fmt.Sprintf("live-%d\n", i)))
		}
	}()

	var clients sync.WaitGroup
	errs := make(chan error, 8)
	for c := 0; c < 8; c++ {
		clients.Add(1)
		go func() {
			defer clients.Done()
			conn, _, err := websocket.DefaultDialer.Dial(
				"ws"+strings.TrimPrefix(srv.URL, "http"), nil)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			for i := 0; i < ringSize+16; i++ {
				if _, _, err := conn.ReadMessage(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	clients.Wait()
	close(done)
	writes.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("tail client: %v", err)
	}
}

func TestServer_WriteWithoutClients(t *testing.T) {
	s := NewServer()
	n, err := s.Write([]byte("nobody listening\n"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != len("nobody listening\n") {
		t.Fatalf("n = %d", n)
	}
}

func TestServer_EmptyLineIgnored(t *testing.T) {
	s := NewServer()
	if _, err := s.Write([]byte("\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if s.ringLen != 0 {
		t.Fatalf("empty line buffered")
	}
}

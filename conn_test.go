package chromectl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/chromectl/chromectl/protocol"
)

func TestForceIPLeavesIPAndLocalhostUntouched(t *testing.T) {
	got := ForceIP("ws://127.0.0.1:9222/devtools/browser/abc")
	if got != "ws://127.0.0.1:9222/devtools/browser/abc" {
		t.Fatalf("an already-IP host should be left untouched, got %q", got)
	}

	got = ForceIP("ws://localhost:9222/devtools/browser/abc")
	if got != "ws://localhost:9222/devtools/browser/abc" {
		t.Fatalf("localhost must be left untouched, got %q", got)
	}
}

func TestForceIPLeavesUnresolvableHostAlone(t *testing.T) {
	const in = "ws://this-host-definitely-does-not-resolve.invalid:9222/x"
	got := ForceIP(in)
	if got != in {
		t.Fatalf("unresolvable host should be left as-is, got %q", got)
	}
}

// startFakeCDPServer upgrades the single incoming connection to a WebSocket
// and hands the raw net.Conn to handle, which drives the scripted exchange.
func startFakeCDPServer(t *testing.T, handle func(rwc interface{ Close() error }, readText func() (string, error), writeText func(string) error)) *httptest.Server {
	t.Helper()
	var upgrader ws.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := upgrader.Upgrade(r, w)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		readText := func() (string, error) {
			data, _, err := wsutil.ReadClientData(conn)
			return string(data), err
		}
		writeText := func(s string) error {
			return wsutil.WriteServerText(conn, []byte(s))
		}
		handle(conn, readText, writeText)
	}))
	return srv
}

func TestConnDialSendAndReceiveRoundTrip(t *testing.T) {
	var serverSawMethod string
	done := make(chan struct{})
	srv := startFakeCDPServer(t, func(rwc interface{ Close() error }, readText func() (string, error), writeText func(string) error) {
		defer close(done)
		defer rwc.Close()

		msg, err := readText()
		if err != nil {
			t.Errorf("server read: %v", err)
			return
		}
		serverSawMethod = msg
		writeText(`{"id":1,"result":{"ok":true}}`)
	})
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := DialContext(ctx, wsURL)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()

	if err := conn.Send(&protocol.Message{ID: 1, Method: "Target.setDiscoverTargets"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case env := <-conn.Inbound():
		if env.shutdown {
			t.Fatalf("unexpected shutdown envelope: %v", env.err)
		}
		if env.msg.ID != 1 {
			t.Fatalf("got id %d, want 1", env.msg.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for response envelope")
	}

	<-done
	if !strings.Contains(serverSawMethod, "Target.setDiscoverTargets") {
		t.Fatalf("server did not see the expected method, got %q", serverSawMethod)
	}
}

func TestConnReadLoopPushesShutdownOnClose(t *testing.T) {
	srv := startFakeCDPServer(t, func(rwc interface{ Close() error }, readText func() (string, error), writeText func(string) error) {
		rwc.Close()
	})
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := DialContext(ctx, wsURL)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()

	select {
	case env, ok := <-conn.Inbound():
		if !ok {
			t.Fatal("channel closed without a terminal shutdown envelope")
		}
		if !env.shutdown {
			t.Fatalf("expected a shutdown envelope, got %+v", env)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for shutdown envelope")
	}
}

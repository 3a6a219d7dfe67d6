package natsconn

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeServer speaks just enough of the NATS protocol for a client to finish
// its handshake: INFO out, CONNECT and PING in, PONG out.
type fakeServer struct {
	ln net.Listener

	mu       sync.Mutex
	names    []string
	conns    []net.Conn
	accepted chan struct{}
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{ln: ln, accepted: make(chan struct{}, 8)}
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		for _, c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
	})
	return s
}

func (s *fakeServer) url() string { return "nats://" + s.ln.Addr().String() }

func (s *fakeServer) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()
		go s.handle(c)
	}
}

func (s *fakeServer) handle(c net.Conn) {
	port := s.ln.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(c, "INFO {\"server_id\":\"fake\",\"version\":\"2.10.0\",\"host\":\"127.0.0.1\",\"port\":%d,\"max_payload\":1048576,\"proto\":1}\r\n", port)
	r := bufio.NewReader(c)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		switch {
		case strings.HasPrefix(line, "CONNECT "):
			var req struct {
				Name string `json:"name"`
			}
			_ = json.Unmarshal([]byte(strings.TrimPrefix(line, "CONNECT ")), &req)
			s.mu.Lock()
			s.names = append(s.names, req.Name)
			s.mu.Unlock()
		case strings.HasPrefix(line, "PING"):
			_, _ = c.Write([]byte("PONG\r\n"))
			select {
			case s.accepted <- struct{}{}:
			default:
			}
		}
	}
}

// dropClients closes every server-side connection, as a restart would.
func (s *fakeServer) dropClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func (s *fakeServer) clientNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("NATSCONN_TEST_INT", "7")
	t.Setenv("NATSCONN_TEST_DUR", "3s")
	if v := envInt("NATSCONN_TEST_INT", 42); v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
	if v := envDuration("NATSCONN_TEST_DUR", time.Second); v != 3*time.Second {
		t.Fatalf("expected 3s, got %s", v)
	}

	for _, bad := range []string{"-3", "x", ""} {
		t.Setenv("NATSCONN_TEST_INT", bad)
		t.Setenv("NATSCONN_TEST_DUR", bad)
		if v := envInt("NATSCONN_TEST_INT", 42); v != 42 {
			t.Fatalf("envInt(%q): expected fallback 42, got %d", bad, v)
		}
		if v := envDuration("NATSCONN_TEST_DUR", time.Second); v != time.Second {
			t.Fatalf("envDuration(%q): expected fallback 1s, got %s", bad, v)
		}
	}
	t.Setenv("NATSCONN_TEST_DUR", "0s")
	if v := envDuration("NATSCONN_TEST_DUR", time.Second); v != time.Second {
		t.Fatalf("expected zero duration to fall back, got %s", v)
	}
}

func TestConnect_Disabled(t *testing.T) {
	t.Setenv("NATS_URL", "")
	if _, err := Connect(Options{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestConnect_URLFromEnv(t *testing.T) {
	srv := startFakeServer(t)
	t.Setenv("NATS_URL", srv.url())

	nc, err := Connect(Options{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	if got := nc.ConnectedUrl(); got != srv.url() {
		t.Fatalf("expected %s, got %s", srv.url(), got)
	}
}

func TestConnect_DefaultAndCustomName(t *testing.T) {
	srv := startFakeServer(t)

	nc, err := Connect(Options{URL: srv.url()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	nc.Close()
	nc, err = Connect(Options{URL: srv.url(), Name: "animelink-test"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	nc.Close()

	names := srv.clientNames()
	if len(names) != 2 || names[0] != "animelink" || names[1] != "animelink-test" {
		t.Fatalf("expected [animelink animelink-test], got %q", names)
	}
}

func TestConnect_TimeoutBoundsHandshake(t *testing.T) {
	// Accepts the socket but never sends INFO.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	var held []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			held = append(held, c)
			mu.Unlock()
		}
	}()
	defer func() {
		mu.Lock()
		for _, c := range held {
			_ = c.Close()
		}
		mu.Unlock()
	}()

	start := time.Now()
	_, err = Connect(Options{URL: "nats://" + ln.Addr().String(), Timeout: 150 * time.Millisecond})
	if err == nil {
		t.Fatal("expected a handshake timeout")
	}
	if took := time.Since(start); took > 2*time.Second {
		t.Fatalf("expected Timeout to bound the dial, took %s", took)
	}
	if !strings.Contains(err.Error(), "nats connect") {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}
}

func TestConnect_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	_, err = Connect(Options{URL: "nats://" + addr, ReconnectWait: 10 * time.Millisecond, Timeout: 200 * time.Millisecond})
	if err == nil || !strings.Contains(err.Error(), "wait=10ms") {
		t.Fatalf("expected connect error naming the reconnect settings, got %v", err)
	}
}

func TestConnect_LogsDisconnectAndReconnect(t *testing.T) {
	srv := startFakeServer(t)
	core, logs := observer.New(zap.InfoLevel)

	nc, err := Connect(Options{
		URL:           srv.url(),
		ReconnectWait: 10 * time.Millisecond,
		Log:           zap.New(core),
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	<-srv.accepted

	srv.dropClients()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if logs.FilterMessage("nats disconnected").Len() > 0 && logs.FilterMessage("nats reconnected").Len() > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected disconnect and reconnect logs, got %d entries: %v", logs.Len(), logs.All())
}

func TestJetStream_NilConn(t *testing.T) {
	if js := JetStream(nil, nil); js != nil {
		t.Fatal("expected nil JetStream for nil connection")
	}
}

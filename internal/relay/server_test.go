package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shanmukhchodagam/workhub/internal/agent"
	"github.com/shanmukhchodagam/workhub/internal/bus"
	"github.com/shanmukhchodagam/workhub/internal/classify"
	"github.com/shanmukhchodagam/workhub/internal/config"
	"github.com/shanmukhchodagam/workhub/internal/executor"
	"github.com/shanmukhchodagam/workhub/internal/registry"
	"github.com/shanmukhchodagam/workhub/internal/store/mem"
)

// startRelay wires the full single-process stack: relay, memory bus and
// in-process agent, backed by the in-memory store.
func startRelay(t *testing.T) (addr string, st *mem.Store) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st = mem.New()
	st.AddWorker(7, "Ravi", 1)
	st.AddManager(42, 1)

	b := bus.NewMemoryBus()
	t.Cleanup(func() { b.Close() })

	reg := registry.New()
	router := NewRouter(st.Stores(), reg, b)

	pipeline := classify.NewPipeline(nil, nil)
	agent.New(pipeline, executor.New(st), b).Attach(b)

	cfg := config.Default()
	srv := NewServer(cfg, reg, router)
	srv.AttachReplyConsumer(b)

	if err := b.Start(ctx, "relay-test"); err != nil {
		t.Fatal(err)
	}

	addr, start := srv.StartTest(ctx)
	start()
	return addr, st
}

func dial(t *testing.T, addr, path string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial("ws://"+addr+path, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// waitForConnections polls the health endpoint until the registry holds n
// live connections. Registration happens on the server goroutine after the
// client handshake completes, so tests wait instead of racing it.
func waitForConnections(t *testing.T, addr string, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			var health struct {
				Connections int `json:"connections"`
			}
			if json.Unmarshal(body, &health) == nil && health.Connections >= n {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("never reached %d live connections", n)
}

func readFrames(t *testing.T, c *websocket.Conn, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	c.SetReadDeadline(time.Now().Add(3 * time.Second))
	for len(out) < n {
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("read after %d of %d frames: %v", len(out), n, err)
		}
		out = append(out, string(data))
	}
	return out
}

func TestWorkerMessageEndToEnd(t *testing.T) {
	addr, st := startRelay(t)

	worker := dial(t, addr, "/ws/worker/7")
	manager := dial(t, addr, "/ws/manager/42")
	waitForConnections(t, addr, 2)

	text := "There's a gas leak in the basement - urgent!"
	if err := worker.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatal(err)
	}

	// The worker gets the echo ack and the agent reply; their order depends
	// on agent scheduling.
	var sawAck, sawReply bool
	for _, frame := range readFrames(t, worker, 2) {
		if strings.HasPrefix(frame, "You: ") {
			if frame != "You: "+text {
				t.Errorf("ack = %q", frame)
			}
			sawAck = true
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(frame), &env); err != nil {
			t.Fatalf("frame %q: %v", frame, err)
		}
		if env.Type != "agent_reply" || env.Intent != "incident_report" {
			t.Errorf("envelope = %+v", env)
		}
		sawReply = true
	}
	if !sawAck || !sawReply {
		t.Fatalf("sawAck=%v sawReply=%v", sawAck, sawReply)
	}

	// The manager gets the raw relay plus the agent action notice.
	var sawRelay, sawAction bool
	for _, frame := range readFrames(t, manager, 2) {
		var env Envelope
		if err := json.Unmarshal([]byte(frame), &env); err != nil {
			t.Fatalf("frame %q: %v", frame, err)
		}
		switch env.Type {
		case "worker_message":
			if env.SenderID != 7 || env.SenderName != "Ravi" || env.Content != text {
				t.Errorf("relay envelope = %+v", env)
			}
			sawRelay = true
		case "agent_action":
			if env.WorkerID != 7 || env.Action != "create_incident_record" || !env.ManagerAttention {
				t.Errorf("action envelope = %+v", env)
			}
			sawAction = true
		default:
			t.Errorf("unexpected envelope type %q", env.Type)
		}
	}
	if !sawRelay || !sawAction {
		t.Fatalf("sawRelay=%v sawAction=%v", sawRelay, sawAction)
	}

	if incidents := st.Incidents(); len(incidents) != 1 || incidents[0].Severity != "critical" {
		t.Errorf("incidents = %+v", incidents)
	}
}

func TestReconnectDisplacesOldSocket(t *testing.T) {
	addr, _ := startRelay(t)

	first := dial(t, addr, "/ws/worker/7")
	waitForConnections(t, addr, 1)
	second := dial(t, addr, "/ws/worker/7")

	// The displaced socket is closed by the server.
	first.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Error("expected the first connection to be closed")
	}

	// The replacement still works.
	if err := second.WriteMessage(websocket.TextMessage, []byte("checking in")); err != nil {
		t.Fatal(err)
	}
	frames := readFrames(t, second, 1)
	if !strings.HasPrefix(frames[0], "You: ") && !strings.Contains(frames[0], "agent_reply") {
		t.Errorf("frame = %q", frames[0])
	}
}

func TestInvalidIdentityRejected(t *testing.T) {
	addr, _ := startRelay(t)
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/worker/abc", nil)
	if err == nil {
		t.Fatal("expected dial to fail for a non-numeric identity")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHealthEndpoint(t *testing.T) {
	addr, _ := startRelay(t)
	dial(t, addr, "/ws/worker/7")

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var health struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("health = %+v", health)
	}
}

func TestCheckOrigin(t *testing.T) {
	cfg := config.Default()
	srv := NewServer(cfg, registry.New(), nil)

	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/ws/worker/1", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	if !srv.checkOrigin(req("https://anywhere.example.com")) {
		t.Error("no whitelist should allow any origin")
	}

	cfg.Relay.AllowedOrigins = []string{"https://app.example.com"}
	if !srv.checkOrigin(req("https://app.example.com")) {
		t.Error("whitelisted origin rejected")
	}
	if srv.checkOrigin(req("https://evil.example.com")) {
		t.Error("non-whitelisted origin allowed")
	}
	if !srv.checkOrigin(req("")) {
		t.Error("non-browser client with no origin rejected")
	}

	cfg.Relay.AllowedOrigins = []string{"*"}
	if !srv.checkOrigin(req("https://anywhere.example.com")) {
		t.Error("wildcard whitelist rejected an origin")
	}
}

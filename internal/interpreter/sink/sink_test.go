package sink

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

func heard() interpreter.Event {
	return interpreter.Event{
		Type:        interpreter.EventHeard,
		Kind:        "heard",
		Instance:    "3f1c",
		State:       "Listening",
		Source:      "привет",
		Translation: "hello",
		Time:        time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestConsole_Plain(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)

	c.Publish(interpreter.Event{Type: interpreter.EventListening})
	c.Publish(heard())
	c.Publish(interpreter.Event{Type: interpreter.EventFailed, Reason: "no model"})

	want := "Listening\nHeard: привет\n→ hello\nFailed: no model\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestConsole_Styled(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)
	c.Publish(heard())

	out := buf.String()
	for _, part := range []string{"12:00:00", "привет", "→ hello"} {
		if !strings.Contains(out, part) {
			t.Errorf("output %q missing %q", out, part)
		}
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	// The latest event is replayed to new clients
	hub.Publish(interpreter.Event{Type: interpreter.EventListening, Kind: "listening", State: "Listening"})

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	readEvent := func() map[string]interface{} {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v", err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("invalid JSON %q: %v", data, err)
		}
		return m
	}

	if m := readEvent(); m["type"] != "listening" {
		t.Errorf("replayed event = %v", m)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(heard())
	m := readEvent()
	if m["type"] != "heard" || m["source"] != "привет" || m["translation"] != "hello" {
		t.Errorf("event = %v", m)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d after disconnect", hub.Clients())
	}
}

func TestHub_PublishDuringDisconnect(t *testing.T) {
	hub := NewHub()

	clients := make([]*wsClient, 200)
	for i := range clients {
		clients[i] = &wsClient{remote: "test", send: make(chan []byte, 1)}
		hub.clients[clients[i]] = struct{}{}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 50 {
			hub.Publish(heard())
		}
	}()
	go func() {
		defer wg.Done()
		for _, c := range clients {
			hub.remove(c)
		}
	}()
	wg.Wait()

	if n := hub.Clients(); n != 0 {
		t.Errorf("Clients() = %d, want 0", n)
	}
}

type doneToken struct{ err error }

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic, qos, retained, string(payload.([]byte))})
	return &doneToken{}
}

func TestMQTT_Publish(t *testing.T) {
	m := NewMQTT(MQTTConfig{Topic: "lab/interp", QoS: 1})
	pub := &fakePublisher{}
	m.pub = pub

	m.Publish(heard())

	if len(pub.msgs) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.msgs))
	}

	ev := pub.msgs[0]
	if ev.topic != "lab/interp/events" || ev.retained || ev.qos != 1 {
		t.Errorf("event message = %+v", ev)
	}
	if !strings.Contains(ev.payload, `"translation":"hello"`) {
		t.Errorf("payload = %s", ev.payload)
	}

	st := pub.msgs[1]
	if st.topic != "lab/interp/state" || !st.retained || st.payload != "Listening" {
		t.Errorf("state message = %+v", st)
	}
}

func TestMQTT_Unconnected(t *testing.T) {
	m := NewMQTT(MQTTConfig{})
	// Must not panic without a connection
	m.Publish(heard())
	m.Close()
	if m.cfg.Topic != "dolmetscher/status" {
		t.Errorf("default topic = %q", m.cfg.Topic)
	}
}

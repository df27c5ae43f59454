package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, groupID string) *Client {
	return &Client{
		hub:     hub,
		groupID: groupID,
		send:    make(chan []byte, sendBufferSize),
	}
}

func newTestGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_websocket_clients"})
}

func TestRegisterUnregister(t *testing.T) {
	gauge := newTestGauge()
	hub := NewHub(slog.Default(), gauge)

	c1 := mockClient(hub, "g1")
	c2 := mockClient(hub, "g2")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	if got := testutil.ToFloat64(gauge); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}

	hub.Unregister(c1)

	if got := hub.GroupClientCount("g1"); got != 0 {
		t.Fatalf("expected 0 clients in g1 after unregister, got %d", got)
	}
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := testutil.ToFloat64(gauge); got != 0 {
		t.Errorf("gauge = %v, want 0", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	gauge := newTestGauge()
	hub := NewHub(slog.Default(), gauge)
	c := mockClient(hub, "g1")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic or decrement twice
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
	if got := testutil.ToFloat64(gauge); got != 0 {
		t.Errorf("gauge = %v, want 0", got)
	}
}

func TestBroadcastOnlyReachesGroup(t *testing.T) {
	hub := NewHub(slog.Default(), nil)

	c1 := mockClient(hub, "g1")
	c2 := mockClient(hub, "g1")
	other := mockClient(hub, "g2")
	hub.Register(c1)
	hub.Register(c2)
	hub.Register(other)

	msg := NewMessage("expense", "created", "g1", "e-42", map[string]any{"amount": "12.50"})
	hub.Broadcast(msg)

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "expense_created" {
				t.Errorf("expected type expense_created, got %s", got.Type)
			}
			if got.GroupID != "g1" || got.ID != "e-42" {
				t.Errorf("got group %s id %s, want g1 e-42", got.GroupID, got.ID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case data := <-other.send:
		t.Errorf("client in another group received %s", data)
	default:
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
	hub.Unregister(other)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default(), nil)
	// Should not panic
	hub.Broadcast(NewMessage("expense", "deleted", "g1", "e-1", nil))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default(), nil)

	c := mockClient(hub, "g1")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("expense", "created", "g1", "", nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("expense", "dropped", "g1", "", nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default(), nil)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "g1")
			hub.Register(c)
			hub.Broadcast(NewMessage("expense", "updated", "g1", "", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestHandleWebSocket(t *testing.T) {
	hub := NewHub(slog.Default(), nil)
	authorize := func(ctx context.Context, token, groupID string) error {
		if token != "good" || groupID != "g1" {
			return errors.New("not a member")
		}
		return nil
	}
	server := httptest.NewServer(HandleWebSocket(hub, authorize, slog.Default()))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("rejects unauthorized subscriber", func(t *testing.T) {
		_, resp, err := ws.Dial(ctx, server.URL+"?group=g1&token=bad", nil)
		if err == nil {
			t.Fatal("expected dial to fail")
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("expected 403, got %v", resp)
		}
	})

	t.Run("requires group", func(t *testing.T) {
		_, resp, err := ws.Dial(ctx, server.URL+"?token=good", nil)
		if err == nil {
			t.Fatal("expected dial to fail")
		}
		if resp == nil || resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %v", resp)
		}
	})

	t.Run("delivers group broadcasts", func(t *testing.T) {
		conn, _, err := ws.Dial(ctx, server.URL+"?group=g1&token=good", nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close(ws.StatusNormalClosure, "")

		deadline := time.Now().Add(2 * time.Second)
		for hub.GroupClientCount("g1") == 0 {
			if time.Now().After(deadline) {
				t.Fatal("client never registered")
			}
			time.Sleep(10 * time.Millisecond)
		}

		hub.Broadcast(NewMessage("expense", "created", "g1", "e-1", nil))

		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !strings.Contains(string(data), `"type":"expense_created"`) {
			t.Errorf("unexpected message %s", data)
		}
	})
}

package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/events"
	"github.com/rigflow/rigflow/internal/logger"
)

type stubGauge struct {
	mu   sync.Mutex
	last float64
}

func (g *stubGauge) Set(v float64) {
	g.mu.Lock()
	g.last = v
	g.mu.Unlock()
}

func (g *stubGauge) value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

type wsFixture struct {
	hub    *Hub
	bus    *bus.Bus
	server *httptest.Server
	cancel context.CancelFunc
}

func newFixture(t *testing.T, gauge Gauge) *wsFixture {
	t.Helper()

	hub := NewHub(logger.Nop(), gauge)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	b := bus.New(logger.Nop())
	sub := hub.Attach(b)
	server := httptest.NewServer(hub)

	t.Cleanup(func() {
		server.Close()
		sub.Unsubscribe()
		cancel()
	})
	return &wsFixture{hub: hub, bus: b, server: server, cancel: cancel}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestClientReceivesWelcomeThenEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	conn := f.dial(t)

	welcome := readFrame(t, conn)
	require.Equal(t, "connected", welcome["type"])
	require.Equal(t, "Connected to UI Pipeline System", welcome["message"])
	require.EqualValues(t, 1, welcome["connections"])

	f.bus.Publish(context.Background(), events.PipelineStarted{
		PipelineID:   "press-run",
		PipelineName: "Press Cycle",
		NodeCount:    3,
	})

	frame := readFrame(t, conn)
	require.Equal(t, events.TypePipelineStarted, frame["type"])
	require.Equal(t, "press-run", frame["pipeline_id"])
	require.Equal(t, "Press Cycle", frame["pipeline_name"])
	require.EqualValues(t, 3, frame["node_count"])
}

func TestEventsFanOutToAllClients(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	first := f.dial(t)
	second := f.dial(t)
	readFrame(t, first)
	readFrame(t, second)

	f.bus.Publish(context.Background(), events.DeviceConnected{
		DeviceID: "servo_1",
		PluginID: "mock_servo",
	})

	for _, conn := range []*websocket.Conn{first, second} {
		frame := readFrame(t, conn)
		require.Equal(t, events.TypeDeviceConnected, frame["type"])
		require.Equal(t, "servo_1", frame["device_id"])
	}
}

func TestInboundMessagesAreAcknowledged(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	conn := f.dial(t)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	ack := readFrame(t, conn)
	require.Equal(t, "ack", ack["type"])
	require.Equal(t, "Message received", ack["message"])
}

func TestConnectionCountTracksClients(t *testing.T) {
	t.Parallel()

	gauge := &stubGauge{}
	f := newFixture(t, gauge)

	first := f.dial(t)
	readFrame(t, first)
	second := f.dial(t)
	readFrame(t, second)

	require.Equal(t, 2, f.hub.ConnectionCount())
	require.Equal(t, 2.0, gauge.value())

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool {
		return f.hub.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1.0, gauge.value())
}

func TestShutdownDisconnectsClients(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	conn := f.dial(t)
	readFrame(t, conn)

	f.cancel()

	require.Eventually(t, func() bool {
		return f.hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

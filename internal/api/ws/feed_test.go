package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
	"github.com/matjarly/dispatch-core/internal/core/tracker"
)

type stubDispatch struct {
	orders []ports.OrderWithDistance
}

func (s *stubDispatch) AssignedOrders(_ context.Context, driverID string, mode ports.SortMode) ([]ports.OrderWithDistance, error) {
	return s.orders, nil
}

func (s *stubDispatch) Route(_ context.Context, driverID, orderID string) (domain.DistanceResult, error) {
	return domain.DistanceResult{}, nil
}

// injectClaims stands in for the auth middleware in tests.
func injectClaims(role, userID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("role", role)
			c.Set("user_id", userID)
			return next(c)
		}
	}
}

func startFeedServer(t *testing.T, trk *tracker.Manager, dispatch ports.DispatchService, role, userID string) (*httptest.Server, string) {
	t.Helper()
	e := echo.New()
	feed := NewFeed(trk, dispatch, zerolog.Nop())
	e.GET("/feed", feed.Handle, injectClaims(role, userID))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
}

func readOrdersMessage(t *testing.T, conn *websocket.Conn) ordersMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg ordersMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("invalid message: %v", err)
	}
	return msg
}

func TestFeed_PushesOrdersOnConnect(t *testing.T) {
	trk := tracker.NewManager(time.Hour, true, zerolog.Nop())
	defer trk.StopAll()
	dispatch := &stubDispatch{orders: []ports.OrderWithDistance{
		{Order: &domain.Order{ID: "ord-1"}, DistanceMeters: 900, HasDistance: true},
	}}
	_, url := startFeedServer(t, trk, dispatch, domain.RoleDriver, "driver-1")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readOrdersMessage(t, conn)
	if msg.Type != "orders" || len(msg.Orders) != 1 || msg.Orders[0].Order.ID != "ord-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestFeed_PositionMessagesUpdateTracker(t *testing.T) {
	trk := tracker.NewManager(time.Hour, true, zerolog.Nop())
	defer trk.StopAll()
	_, url := startFeedServer(t, trk, &stubDispatch{}, domain.RoleDriver, "driver-1")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readOrdersMessage(t, conn)

	payload := `{"type":"position","lat":24.7136,"lng":46.6753}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sample, ok := trk.LastPosition("driver-1"); ok {
			if sample.Point.Lat != 24.7136 {
				t.Fatalf("unexpected sample: %+v", sample)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("position never reached the tracker")
}

func TestFeed_RefreshMessageTriggersPush(t *testing.T) {
	trk := tracker.NewManager(time.Hour, true, zerolog.Nop())
	defer trk.StopAll()
	_, url := startFeedServer(t, trk, &stubDispatch{}, domain.RoleDriver, "driver-1")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readOrdersMessage(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"refresh"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readOrdersMessage(t, conn)
	if msg.Type != "orders" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestFeed_DisconnectStopsSession(t *testing.T) {
	trk := tracker.NewManager(time.Hour, true, zerolog.Nop())
	defer trk.StopAll()
	_, url := startFeedServer(t, trk, &stubDispatch{}, domain.RoleDriver, "driver-1")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readOrdersMessage(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if trk.ActiveSessions() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session not closed after disconnect")
}

func TestFeed_RejectsNonDriverToken(t *testing.T) {
	trk := tracker.NewManager(time.Hour, true, zerolog.Nop())
	defer trk.StopAll()
	srv, _ := startFeedServer(t, trk, &stubDispatch{}, domain.RoleAdmin, "admin-1")

	resp, err := http.Get(srv.URL + "/feed")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

// Package ws serves the live dispatch feed over a websocket. Each driver
// connection opens a tracking session: the server pushes the sorted order
// list on connect, on every refresh interval and whenever an order event
// arrives; the client streams position samples upstream on the same
// socket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/core/domain"
	"github.com/matjarly/dispatch-core/internal/core/ports"
	"github.com/matjarly/dispatch-core/internal/core/tracker"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	maxMessageSize = 4096
)

// clientMessage is everything a driver may send upstream.
type clientMessage struct {
	Type       string     `json:"type"`
	Lat        float64    `json:"lat,omitempty"`
	Lng        float64    `json:"lng,omitempty"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	Mode       string     `json:"mode,omitempty"`
}

// ordersMessage is the downstream push of the driver's current view.
type ordersMessage struct {
	Type   string                    `json:"type"`
	Orders []ports.OrderWithDistance `json:"orders"`
}

// Feed upgrades driver connections and bridges them to the tracker.
type Feed struct {
	upgrader websocket.Upgrader
	tracker  *tracker.Manager
	dispatch ports.DispatchService
	log      zerolog.Logger
}

func NewFeed(trk *tracker.Manager, dispatch ports.DispatchService, log zerolog.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// auth happens at the HTTP layer before the upgrade
			CheckOrigin: func(*http.Request) bool { return true },
		},
		tracker:  trk,
		dispatch: dispatch,
		log:      log,
	}
}

// driverConn is the per-connection state. Writes are serialized: the
// refresh loop and ping ticker share the socket.
type driverConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	modeMu sync.RWMutex
	mode   ports.SortMode
}

func (dc *driverConn) sortMode() ports.SortMode {
	dc.modeMu.RLock()
	defer dc.modeMu.RUnlock()
	return dc.mode
}

func (dc *driverConn) setSortMode(mode ports.SortMode) {
	dc.modeMu.Lock()
	dc.mode = mode
	dc.modeMu.Unlock()
}

func (dc *driverConn) writeJSON(v any) error {
	dc.writeMu.Lock()
	defer dc.writeMu.Unlock()
	_ = dc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return dc.conn.WriteJSON(v)
}

// Handle serves GET /dispatch/feed. The request must already carry auth
// claims; the driver identity comes from the token, never from the query.
func (f *Feed) Handle(c echo.Context) error {
	role, _ := c.Get("role").(string)
	driverID, _ := c.Get("user_id").(string)
	if role != domain.RoleDriver || driverID == "" {
		return echo.NewHTTPError(http.StatusForbidden, "driver token required")
	}

	conn, err := f.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	dc := &driverConn{conn: conn, mode: ports.ParseSortMode(c.QueryParam("sort"))}

	f.tracker.Start(c.Request().Context(), driverID, func(ctx context.Context) {
		f.push(ctx, dc, driverID)
	})
	// stop the session before closing the socket so the refresh loop
	// never pushes into a closed connection on teardown
	defer conn.Close()
	defer f.tracker.Stop(driverID)

	f.readLoop(dc, driverID)
	return nil
}

func (f *Feed) push(ctx context.Context, dc *driverConn, driverID string) {
	orders, err := f.dispatch.AssignedOrders(ctx, driverID, dc.sortMode())
	if err != nil {
		f.log.Error().Err(err).Str("driver_id", driverID).Msg("feed refresh failed")
		return
	}
	if err := dc.writeJSON(ordersMessage{Type: "orders", Orders: orders}); err != nil {
		f.log.Debug().Err(err).Str("driver_id", driverID).Msg("feed write failed")
	}
}

func (f *Feed) readLoop(dc *driverConn, driverID string) {
	dc.conn.SetReadLimit(maxMessageSize)
	_ = dc.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	dc.conn.SetPongHandler(func(string) error {
		return dc.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, raw, err := dc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.log.Debug().Err(err).Str("driver_id", driverID).Msg("feed connection dropped")
			}
			return
		}
		_ = dc.conn.SetReadDeadline(time.Now().Add(pongTimeout))

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		f.handleMessage(dc, driverID, msg)
	}
}

func (f *Feed) handleMessage(dc *driverConn, driverID string, msg clientMessage) {
	switch msg.Type {
	case "position":
		if msg.Lat < -90 || msg.Lat > 90 || msg.Lng < -180 || msg.Lng > 180 {
			return
		}
		observedAt := time.Now().UTC()
		if msg.ObservedAt != nil {
			observedAt = msg.ObservedAt.UTC()
		}
		f.tracker.UpdatePosition(domain.DriverLocationSample{
			DriverID:   driverID,
			Point:      domain.GeoPoint{Lat: msg.Lat, Lng: msg.Lng},
			ObservedAt: observedAt,
		})
	case "sort":
		dc.setSortMode(ports.ParseSortMode(msg.Mode))
		f.tracker.Trigger(driverID)
	case "refresh":
		f.tracker.Trigger(driverID)
	}
}

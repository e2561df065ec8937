// Package server streams reef frames to browser viewers over websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"reefcraft/logging"
	"reefcraft/simulation"
)

// Controller is the part of the engine the hub drives
type Controller interface {
	Start()
	Pause()
	Reset() error
	Latest() *simulation.Frame
	Params(coral string) (simulation.Params, error)
	SetParams(coral string, p simulation.Params) error
}

// MeshFrame is the JSON message sent to viewers
type MeshFrame struct {
	Type    string      `json:"type"`
	Step    int         `json:"step"`
	Time    float64     `json:"time"`
	Running bool        `json:"running"`
	Corals  []CoralMesh `json:"corals"`
}

// CoralMesh carries one coral in the Y-up render frame
type CoralMesh struct {
	Name            string       `json:"name"`
	Vertices        [][3]float64 `json:"vertices"`
	Normals         [][3]float64 `json:"normals"`
	Indices         []uint32     `json:"indices"`
	TopologyChanged bool         `json:"topologyChanged"`
	Generation      int          `json:"generation"`
}

// ControlMessage is what viewers send back. Absent fields are left alone.
type ControlMessage struct {
	Running *bool          `json:"running,omitempty"`
	Reset   bool           `json:"reset,omitempty"`
	Params  *ParamsMessage `json:"params,omitempty"`
}

// ParamsMessage changes the growth parameters of one coral
type ParamsMessage struct {
	Coral         string   `json:"coral"`
	GrowThreshold *float64 `json:"growThreshold,omitempty"`
	GrowAmount    *float64 `json:"growAmount,omitempty"`
	SplitLength   *float64 `json:"splitLength,omitempty"`
}

// NewMeshFrame converts an engine frame to its wire form
func NewMeshFrame(f *simulation.Frame) MeshFrame {
	mf := MeshFrame{
		Type:    "mesh_update",
		Step:    f.Tick,
		Time:    f.Elapsed.Seconds(),
		Running: f.Running,
		Corals:  make([]CoralMesh, len(f.Corals)),
	}
	for i, s := range f.Corals {
		verts := s.RenderVertices()
		norms := s.RenderNormals()
		cm := CoralMesh{
			Name:            s.Coral,
			Vertices:        make([][3]float64, len(verts)),
			Normals:         make([][3]float64, len(norms)),
			Indices:         s.Indices(),
			TopologyChanged: s.TopologyChanged,
			Generation:      s.Generation,
		}
		for j, v := range verts {
			cm.Vertices[j] = [3]float64(v)
		}
		for j, n := range norms {
			cm.Normals[j] = [3]float64(n)
		}
		mf.Corals[i] = cm
	}
	return mf
}

// Hub tracks connected viewers and broadcasts the latest frame to them
type Hub struct {
	ctrl     Controller
	interval time.Duration
	log      *slog.Logger
	upgrader websocket.Upgrader

	// each connection has its own write lock; gorilla allows one writer
	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex
}

// NewHub creates a hub broadcasting every interval (100ms if non-positive)
func NewHub(ctrl Controller, interval time.Duration, log *slog.Logger) *Hub {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Hub{
		ctrl:     ctrl,
		interval: interval,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Handler returns the hub routes: /ws for viewers and /status for a JSON summary
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.HandleFunc("/status", h.handleStatus)
	return mux
}

// Clients returns the number of connected viewers
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Clients int  `json:"clients"`
		Step    int  `json:"step"`
		Running bool `json:"running"`
		Corals  int  `json:"corals"`
	}{Clients: h.Clients()}
	if f := h.ctrl.Latest(); f != nil {
		status.Step = f.Tick
		status.Running = f.Running
		status.Corals = len(f.Corals)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Warn("status write failed", "err", err)
	}
}

// HandleWebSocket upgrades the request, sends the latest frame and then
// applies control messages until the viewer disconnects
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connMu := &sync.Mutex{}
	h.clientsMu.Lock()
	h.clients[conn] = connMu
	h.clientsMu.Unlock()
	h.log.Info("viewer connected", "remote", r.RemoteAddr, "clients", h.Clients())
	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
		h.log.Info("viewer disconnected", "remote", r.RemoteAddr)
	}()

	if f := h.ctrl.Latest(); f != nil {
		connMu.Lock()
		err := conn.WriteJSON(NewMeshFrame(f))
		connMu.Unlock()
		if err != nil {
			h.log.Warn("initial frame write failed", "err", err)
			return
		}
	}

	for {
		var msg ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("websocket read ended", "err", err)
			}
			return
		}
		if err := h.apply(msg); err != nil {
			h.log.Warn("control message rejected", "err", err)
		}
	}
}

// apply carries out a control message against the controller
func (h *Hub) apply(msg ControlMessage) error {
	if msg.Reset {
		if err := h.ctrl.Reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if msg.Running != nil {
		if *msg.Running {
			h.ctrl.Start()
		} else {
			h.ctrl.Pause()
		}
	}
	if pm := msg.Params; pm != nil {
		p, err := h.ctrl.Params(pm.Coral)
		if err != nil {
			return err
		}
		if pm.GrowThreshold != nil {
			p.GrowThreshold = *pm.GrowThreshold
		}
		if pm.GrowAmount != nil {
			p.GrowAmount = *pm.GrowAmount
		}
		if pm.SplitLength != nil {
			p.SplitLength = *pm.SplitLength
		}
		if err := h.ctrl.SetParams(pm.Coral, p); err != nil {
			return fmt.Errorf("coral %q: %w", pm.Coral, err)
		}
	}
	return nil
}

// Broadcast writes f to every viewer, dropping the ones that fail
func (h *Hub) Broadcast(f *simulation.Frame) {
	data, err := json.Marshal(NewMeshFrame(f))
	if err != nil {
		h.log.Error("frame encode failed", "err", err)
		return
	}

	h.clientsMu.RLock()
	var failed []*websocket.Conn
	for conn, mu := range h.clients {
		mu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mu.Unlock()
		if err != nil {
			h.log.Warn("websocket write failed", "err", err)
			conn.Close()
			failed = append(failed, conn)
		}
	}
	h.clientsMu.RUnlock()

	if len(failed) > 0 {
		h.clientsMu.Lock()
		for _, conn := range failed {
			delete(h.clients, conn)
		}
		h.clientsMu.Unlock()
	}
}

// Run broadcasts each new frame on the hub interval until ctx is cancelled
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last *simulation.Frame
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f := h.ctrl.Latest()
			if f == nil || f == last || h.Clients() == 0 {
				continue
			}
			start := time.Now()
			h.Broadcast(f)
			last = f
			if took := time.Since(start); took > h.interval {
				h.log.Warn("slow broadcast", "took", took, "clients", h.Clients())
			}
		}
	}
}

// ListenAndServe serves the hub on addr until ctx is cancelled
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	h.log.Info("serving", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

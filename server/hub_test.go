package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"reefcraft/simulation"
)

func newTestEngine(t *testing.T) *simulation.Engine {
	t.Helper()
	reef := simulation.NewReef(nil)
	cfg := simulation.ModelConfig{
		Variant: simulation.VariantLlabres,
		Params:  simulation.Params{GrowThreshold: 0.47, GrowAmount: 0.01, SplitLength: 0.9},
		Seed:    simulation.DefaultSeed(),
		Workers: 1,
	}
	if _, err := reef.AddCoral("coral", simulation.LocationRight, cfg); err != nil {
		t.Fatal(err)
	}
	return simulation.NewEngine(reef, nil, time.Hour, nil)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) MeshFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var mf MeshFrame
	if err := conn.ReadJSON(&mf); err != nil {
		t.Fatalf("read: %v", err)
	}
	return mf
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewMeshFrame(t *testing.T) {
	e := newTestEngine(t)
	mf := NewMeshFrame(e.Latest())

	if mf.Type != "mesh_update" || mf.Running || len(mf.Corals) != 1 {
		t.Fatalf("frame = %+v", mf)
	}
	c := mf.Corals[0]
	if c.Name != "coral" || len(c.Vertices) != 7 || len(c.Normals) != 7 || len(c.Indices) != 18 {
		t.Errorf("coral = %s %d/%d/%d", c.Name, len(c.Vertices), len(c.Normals), len(c.Indices))
	}
	// apex at (0,0,0.1) on the right location, in the Y-up frame
	if c.Vertices[0] != [3]float64{0.3, 0.1, 0} {
		t.Errorf("apex = %v", c.Vertices[0])
	}
	if n := c.Normals[0]; n[1] < 0.999 {
		t.Errorf("apex normal = %v, want +Y", n)
	}

	data, err := json.Marshal(mf)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"type":"mesh_update"`, `"topologyChanged"`, `"indices"`, `"generation"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded frame missing %s", key)
		}
	}
}

func TestHubStreamsAndControls(t *testing.T) {
	e := newTestEngine(t)
	hub := NewHub(e, time.Hour, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	if initial := readFrame(t, conn); initial.Step != 0 || len(initial.Corals) != 1 {
		t.Fatalf("initial frame = %+v", initial)
	}
	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })

	if err := conn.WriteJSON(map[string]any{"running": true}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "engine start", e.Running)

	if err := conn.WriteJSON(map[string]any{"params": map[string]any{"coral": "coral", "splitLength": 5.0}}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "params change", func() bool {
		p, err := e.Params("coral")
		return err == nil && p.SplitLength == 5
	})
	if p, _ := e.Params("coral"); p.GrowAmount != 0.01 {
		t.Errorf("untouched field changed: %+v", p)
	}

	hub.Broadcast(e.Tick())
	mf := readFrame(t, conn)
	if mf.Step != 1 || !mf.Running {
		t.Errorf("broadcast frame step %d running %v", mf.Step, mf.Running)
	}
	if mf.Corals[0].TopologyChanged {
		t.Error("split length 5 should not subdivide the seed")
	}

	if err := conn.WriteJSON(map[string]any{"reset": true, "running": false}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reset", func() bool {
		f := e.Latest()
		return !f.Running && f.Tick == 0
	})
}

func TestHubRejectsBadParams(t *testing.T) {
	e := newTestEngine(t)
	hub := NewHub(e, time.Hour, nil)

	neg := -1.0
	if err := hub.apply(ControlMessage{Params: &ParamsMessage{Coral: "coral", GrowAmount: &neg}}); err == nil {
		t.Error("negative amount accepted")
	}
	if err := hub.apply(ControlMessage{Params: &ParamsMessage{Coral: "nobody"}}); err == nil {
		t.Error("unknown coral accepted")
	}
	if p, _ := e.Params("coral"); p.GrowAmount != 0.01 {
		t.Errorf("params changed to %+v", p)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	e := newTestEngine(t)
	hub := NewHub(e, time.Hour, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	readFrame(t, conn)
	waitFor(t, "client registration", func() bool { return hub.Clients() == 1 })

	conn.Close()
	waitFor(t, "client removal", func() bool { return hub.Clients() == 0 })
}

func TestStatus(t *testing.T) {
	e := newTestEngine(t)
	hub := NewHub(e, time.Hour, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status struct {
		Clients int  `json:"clients"`
		Step    int  `json:"step"`
		Running bool `json:"running"`
		Corals  int  `json:"corals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Corals != 1 || status.Running || status.Clients != 0 {
		t.Errorf("status = %+v", status)
	}
}

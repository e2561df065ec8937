// Command reefview runs the reef in-process and draws it in a raylib window.
//
//	space  pause / resume
//	R      reset to the seed meshes
//	drag   orbit, wheel zooms
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"reefcraft/config"
	"reefcraft/logging"
	"reefcraft/simulation"
	"reefcraft/viewer"
)

const (
	screenWidth  = 1280
	screenHeight = 800
)

var (
	configPath = flag.String("config", "", "Settings file (YAML)")
	logLevel   = flag.String("log-level", "", "Log level override")
	paused     = flag.Bool("paused", false, "Start paused")
)

var coralColor = rl.NewColor(232, 132, 108, 255)

func init() {
	// raylib must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	flag.Parse()

	s, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		s.Logging.Level = *logLevel
	}
	log := logging.NewLogger(s.Logging.Level, os.Stderr)

	reef := simulation.NewReef(log)
	if err := s.BuildReef(reef); err != nil {
		log.Error("building reef", "err", err)
		os.Exit(1)
	}
	engine := simulation.NewEngine(reef, nil, s.TickInterval(), log)
	if !*paused {
		engine.Start()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	rl.InitWindow(screenWidth, screenHeight, "reefcraft")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	scene := viewer.NewScene()
	cam := viewer.NewOrbitCamera(mgl32.Vec3{0, 0.1, 0}, 2.5)

	for !rl.WindowShouldClose() {
		handleInput(engine, cam, log)
		scene.Apply(engine.Latest())

		rl.BeginDrawing()
		rl.ClearBackground(rl.NewColor(16, 40, 64, 255))

		rl.BeginMode3D(camera3D(cam))
		rl.DrawGrid(20, 0.1)
		for _, b := range scene.Buffers {
			drawBuffer(b)
		}
		rl.EndMode3D()

		drawOverlay(scene)
		rl.EndDrawing()
	}
}

func handleInput(engine *simulation.Engine, cam *viewer.OrbitCamera, log *slog.Logger) {
	if rl.IsKeyPressed(rl.KeySpace) {
		if engine.Running() {
			engine.Pause()
		} else {
			engine.Start()
		}
	}
	if rl.IsKeyPressed(rl.KeyR) {
		if err := engine.Reset(); err != nil {
			log.Error("reset failed", "err", err)
		}
	}
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		d := rl.GetMouseDelta()
		cam.Drag(d.X, d.Y)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		cam.Zoom(wheel)
	}
}

func camera3D(c *viewer.OrbitCamera) rl.Camera3D {
	return rl.Camera3D{
		Position:   toRL(c.Position()),
		Target:     toRL(c.Target),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}
}

func drawBuffer(b *viewer.MeshBuffer) {
	for i := 0; i+2 < len(b.Positions); i += 3 {
		shade := (b.Shade[i] + b.Shade[i+1] + b.Shade[i+2]) / 3
		rl.DrawTriangle3D(toRL(b.Positions[i]), toRL(b.Positions[i+1]), toRL(b.Positions[i+2]), shaded(coralColor, shade))
	}
}

func drawOverlay(sc *viewer.Scene) {
	state := "running"
	if !sc.Running {
		state = "paused"
	}
	rl.DrawText(fmt.Sprintf("tick %d  %s", sc.Tick, state), 10, 10, 20, rl.RayWhite)
	y := int32(36)
	for _, b := range sc.Buffers {
		rl.DrawText(fmt.Sprintf("%s: %d triangles", b.Coral, b.Triangles()), 10, y, 16, rl.LightGray)
		y += 20
	}
	rl.DrawFPS(screenWidth-90, 10)
}

func toRL(v mgl32.Vec3) rl.Vector3 { return rl.NewVector3(v[0], v[1], v[2]) }

func shaded(c rl.Color, k float32) rl.Color {
	return rl.NewColor(uint8(float32(c.R)*k), uint8(float32(c.G)*k), uint8(float32(c.B)*k), c.A)
}

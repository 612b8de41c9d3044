// Copyright 2016 Hajime Hoshi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/metalblueberry/solfege/pkg/calibration"
	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/engine"
	"github.com/metalblueberry/solfege/pkg/scale"
	"github.com/metalblueberry/solfege/pkg/source"
	"github.com/metalblueberry/solfege/pkg/tone"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

const (
	screenWidth  = 640
	screenHeight = 480

	toneSeconds   = 1.0
	toleranceStep = 5.0
)

const help = `C calibrate   F/M fixed C / movable DO   ENTER next   BACKSPACE back   S skip
R reference tone   T tone an octave up   P play   ESC stop   UP/DOWN tolerance`

type Game struct {
	ctx    context.Context
	engine *engine.Engine
	mic    *source.Mic
	player *tone.Player

	frame []float64
	out   engine.Output
	err   error

	vertices []ebiten.Vertex
	indices  []uint16
}

func (g *Game) Update() error {
	if err := g.ctx.Err(); err != nil {
		return err
	}

	g.handleKeys()

	dt := 1.0 / float64(ebiten.TPS())
	frame, err := g.mic.Frame(g.frame)
	if err != nil {
		return errors.Wrapf(err, "capture")
	}
	g.frame = frame.Samples
	g.out = g.engine.Tick(g.ctx, dt, frame)

	if step := g.out.Calibration; step != nil && step.Err != nil {
		g.err = step.Err
	}
	return nil
}

func (g *Game) handleKeys() {
	ctx, w := g.ctx, g.engine.Wizard()

	var err error
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.engine.StartCalibration(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		err = w.ChooseMethod(ctx, calibration.MethodFixedC)
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		err = w.ChooseMethod(ctx, calibration.MethodMovable)
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		err = w.Next(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		err = w.Back(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		err = w.Skip(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		err = g.playReference(false)
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		err = g.playReference(true)
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		err = g.engine.StartRun(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		g.engine.Stop(ctx)
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		err = g.engine.SetTolerance(g.engine.Tolerance() + toleranceStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		err = g.engine.SetTolerance(g.engine.Tolerance() - toleranceStep)
	default:
		return
	}

	g.err = err
	if err != nil {
		logger.Wf(ctx, "key ignored, err %v", err)
	}
}

func (g *Game) playReference(alt bool) error {
	if g.player == nil {
		return errors.New("no audio output")
	}

	freq, ok := g.engine.Wizard().ReferenceTone(alt)
	if !ok {
		return errors.Errorf("no reference tone in %v", g.engine.Wizard().State())
	}
	return g.player.Play(g.ctx, freq, toneSeconds)
}

func (g *Game) Draw(screen *ebiten.Image) {
	var b strings.Builder
	fmt.Fprintf(&b, "%v\n\n", help)
	fmt.Fprintf(&b, "mode: %v   tolerance: %.0fc\n", g.engine.Mode(), g.engine.Tolerance())

	out := g.out
	if out.Result != nil {
		if note, ok := tuner.Describe(out.Result.Frequency); ok {
			fmt.Fprintf(&b, "pitch: %.1fHz %v  clarity %.2f\n", out.Result.Frequency, note.Label(), out.Result.Clarity)
		}
	} else {
		fmt.Fprintf(&b, "pitch: -- (%v) %v\n", out.Reason, out.Reason.Hint())
	}

	switch out.Mode {
	case engine.Playing:
		fmt.Fprintf(&b, "lane: %v   heard: %v %+.0fc %v\n",
			out.Lane, out.Classification.Lane, out.Classification.CentsOff, out.Classification.Tuning())
	case engine.Calibrating:
		g.describeStep(&b)
	}

	if s := g.engine.Scale(); !s.IsZero() {
		b.WriteString("scale:")
		for d := scale.Do; d <= scale.Ti; d++ {
			fmt.Fprintf(&b, " %v=%.1f", d, s[d])
		}
		b.WriteString("\n")
	}

	if g.err != nil {
		fmt.Fprintf(&b, "error: %v\n", g.err)
	}

	ebitenutil.DebugPrint(screen, b.String())

	bounds := screen.Bounds()
	down := screen.SubImage(image.Rect(0, bounds.Dy()*2/3, bounds.Dx(), bounds.Dy())).(*ebiten.Image)
	g.drawWave(down, g.frame, 0.5)
}

func (g *Game) describeStep(b *strings.Builder) {
	w := g.engine.Wizard()
	fmt.Fprintf(b, "calibration: %v\n", w.State().Title())

	step := g.out.Calibration
	if step == nil {
		return
	}

	if target, ok := w.ReferenceTone(false); ok && w.State() == calibration.CaptureDegrees {
		fmt.Fprintf(b, "sing %v  target %.1fHz\n", step.Degree, target)
	}
	if step.Frequency > 0 {
		fmt.Fprintf(b, "note %v  needle %+.0fc  hold %3.0f%%\n", step.Note.Label(), step.NeedleCents, 100*step.Progress)
	}
	if step.Hint != "" {
		fmt.Fprintf(b, "%v\n", step.Hint)
	}
	if step.Guidance != "" {
		fmt.Fprintf(b, "%v\n", step.Guidance)
	}

	if w.State() == calibration.Test {
		checks := w.Checklist()
		for d := scale.Do; d <= scale.Ti; d++ {
			mark := " "
			if checks[d] {
				mark = "x"
			}
			fmt.Fprintf(b, "[%v] %v ", mark, d)
		}
		b.WriteString("\n")
	}
}

var (
	whiteImage = ebiten.NewImage(3, 3)

	// whiteSubImage is an internal sub image of whiteImage.
	// Use whiteSubImage at DrawTriangles instead of whiteImage in order to avoid bleeding edges.
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

// drawWave plots the microphone frame, size is the amplitude at full height.
func (g *Game) drawWave(screen *ebiten.Image, data []float64, size float64) {
	if len(data) == 0 {
		return
	}

	var path vector.Path
	bounds := screen.Bounds()
	mid := float64(bounds.Min.Y + bounds.Dy()/2)
	gain := float64(bounds.Dy()/2) / size

	path.MoveTo(float32(bounds.Min.X), float32(mid))
	for i := range data {
		x := float32(bounds.Min.X) + float32(i*bounds.Dx())/float32(len(data))
		path.LineTo(x, float32(mid+data[i]*gain))
	}

	op := &vector.StrokeOptions{Width: 1}
	g.vertices, g.indices = path.AppendVerticesAndIndicesForStroke(g.vertices[:0], g.indices[:0], op)
	for i := range g.vertices {
		g.vertices[i].SrcX = 1
		g.vertices[i].SrcY = 1
		g.vertices[i].ColorR = 1
		g.vertices[i].ColorG = 1
		g.vertices[i].ColorB = 1
		g.vertices[i].ColorA = 1
	}
	screen.DrawTriangles(g.vertices, g.indices, whiteSubImage, &ebiten.DrawTrianglesOptions{})
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file with SOLFEGE_* overrides")
	flag.Parse()

	ctx := logger.WithContext(context.Background())
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := run(ctx, *envFile); err != nil && ctx.Err() == nil {
		logger.Ef(ctx, "run err %+v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return errors.Wrapf(err, "load config")
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return errors.Wrapf(err, "create engine")
	}

	mic, err := source.OpenMic(cfg.SampleRate, cfg.FrameSize)
	if err != nil {
		return errors.Wrapf(err, "open microphone")
	}
	defer mic.Close()

	if err := mic.Start(); err != nil {
		return errors.Wrapf(err, "start microphone")
	}

	// Reference tones are optional.
	player, err := tone.NewPlayer(int(cfg.SampleRate))
	if err != nil {
		logger.Wf(ctx, "reference tones disabled, err %v", err)
	} else {
		defer player.Close()
	}

	logger.Tf(ctx, "ready, rate=%v frame=%v analysis=%vHz", cfg.SampleRate, cfg.FrameSize, cfg.AnalysisHz)
	eng.StartCalibration(ctx)

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Solfege")
	return ebiten.RunGame(&Game{ctx: ctx, engine: eng, mic: mic, player: player})
}

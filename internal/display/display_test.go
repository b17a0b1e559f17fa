package display

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v2"
)

// fakePanel records driver calls in order.
type fakePanel struct {
	calls  []string
	drawn  image.Image
	failOn string
}

func (p *fakePanel) record(name string) error {
	p.calls = append(p.calls, name)
	if p.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (p *fakePanel) Init() error { return p.record("init") }

func (p *fakePanel) SetUpdateMode(mode waveshare2in13v2.PartialUpdate) error {
	if mode == waveshare2in13v2.Full {
		return p.record("mode:full")
	}
	return p.record("mode:partial")
}

func (p *fakePanel) Clear(c color.Color) error {
	if r, g, b, _ := c.RGBA(); r != 0xffff || g != 0xffff || b != 0xffff {
		return p.record("clear:black")
	}
	return p.record("clear:white")
}

func (p *fakePanel) Draw(dstRect image.Rectangle, src image.Image, sp image.Point) error {
	p.drawn = src
	return p.record("draw")
}

func (p *fakePanel) Sleep() error { return p.record("sleep") }

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 122, 250) }

// recordingDisplay is a Display that remembers each call.
type recordingDisplay struct {
	calls  []string
	shown  []image.Image
	failOn string
}

func (d *recordingDisplay) record(name string) error {
	d.calls = append(d.calls, name)
	if d.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (d *recordingDisplay) Name() string            { return "recording" }
func (d *recordingDisplay) Bounds() image.Rectangle { return image.Rect(0, 0, 4, 2) }
func (d *recordingDisplay) OneShot() bool           { return false }
func (d *recordingDisplay) Init() error             { return d.record("init") }
func (d *recordingDisplay) Clear() error            { return d.record("clear") }
func (d *recordingDisplay) Sleep() error            { return d.record("sleep") }
func (d *recordingDisplay) Show(img image.Image) error {
	d.shown = append(d.shown, img)
	return d.record("show")
}

func TestWaveshare_Lifecycle(t *testing.T) {
	p := &fakePanel{}
	closed := false
	w := newWaveshare(p, func() error { closed = true; return nil }, false)

	if got := w.Bounds(); got != image.Rect(0, 0, 250, 122) {
		t.Fatalf("frame bounds=%v, want landscape 250x122", got)
	}
	if w.OneShot() {
		t.Error("hardware display must keep running")
	}
	if err := w.Init(); err != nil {
		t.Fatal(err)
	}
	if err := w.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := w.Show(image1bit.NewVerticalLSB(w.Bounds())); err != nil {
		t.Fatal(err)
	}
	if err := w.Sleep(); err != nil {
		t.Fatal(err)
	}
	want := []string{"init", "mode:full", "clear:white", "draw", "sleep"}
	if len(p.calls) != len(want) {
		t.Fatalf("calls=%v want %v", p.calls, want)
	}
	for i := range want {
		if p.calls[i] != want[i] {
			t.Fatalf("calls=%v want %v", p.calls, want)
		}
	}
	if !closed {
		t.Error("SPI port not closed on sleep")
	}
	if b := p.drawn.Bounds(); b.Dx() != 122 || b.Dy() != 250 {
		t.Errorf("frame not rotated onto the portrait panel: %v", b)
	}
}

func TestWaveshare_ErrorsAreWrapped(t *testing.T) {
	p := &fakePanel{failOn: "draw"}
	w := newWaveshare(p, nil, true)
	err := w.Show(image1bit.NewVerticalLSB(w.Bounds()))
	if err == nil {
		t.Fatal("expected draw error")
	}
}

func TestRotate(t *testing.T) {
	src := image1bit.NewVerticalLSB(image.Rect(0, 0, 3, 2))
	src.SetBit(0, 0, image1bit.On)

	r180 := Rotate180(src)
	if !r180.BitAt(2, 1) || r180.BitAt(0, 0) {
		t.Error("180° rotation should move the top-left pixel to bottom-right")
	}

	r90 := Rotate90(src)
	if b := r90.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Fatalf("90° bounds=%v", b)
	}
	if !r90.BitAt(1, 0) {
		t.Error("90° clockwise rotation should move the top-left pixel to top-right")
	}
}

func TestSimulated_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "out.png")
	var opened []string
	s := NewSimulated(250, 122, path, func(p string) error {
		opened = append(opened, p)
		return errors.New("no viewer")
	})

	if !s.OneShot() {
		t.Error("simulated display should be one-shot")
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Show(image1bit.NewVerticalLSB(s.Bounds())); err != nil {
		t.Fatalf("Show: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 250 || b.Dy() != 122 {
		t.Errorf("png size=%v", b)
	}
	if len(opened) != 1 || opened[0] != path {
		t.Errorf("opener calls=%v", opened)
	}
}

func TestGhostFix_RunsBoundedCycles(t *testing.T) {
	d := &recordingDisplay{}
	var slept []time.Duration
	sleep := func(_ context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return nil
	}
	var cycles []int

	n, err := GhostFix(context.Background(), d, 3, 30*time.Second, sleep, func(i int) { cycles = append(cycles, i) })
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("completed=%d want 3", n)
	}
	if len(d.shown) != 6 || len(slept) != 6 {
		t.Fatalf("shown=%d slept=%d, want 6 each", len(d.shown), len(slept))
	}
	for i, img := range d.shown {
		wantWhite := i%2 == 1
		bit := img.(*image1bit.VerticalLSB).BitAt(0, 0)
		if bool(bit) != wantWhite {
			t.Errorf("frame %d: white=%v want %v", i, bit, wantWhite)
		}
	}
	if slept[0] != 30*time.Second {
		t.Errorf("dwell=%v", slept[0])
	}
	if len(cycles) != 3 || cycles[2] != 3 {
		t.Errorf("cycle callbacks=%v", cycles)
	}
}

func TestGhostFix_StopsOnCancel(t *testing.T) {
	d := &recordingDisplay{}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	sleep := func(ctx context.Context, _ time.Duration) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return ctx.Err()
	}

	n, err := GhostFix(ctx, d, 1440, time.Second, sleep, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if n != 1 {
		t.Errorf("completed=%d want 1", n)
	}
}

func TestGhostFix_ZeroIterations(t *testing.T) {
	d := &recordingDisplay{}
	n, err := GhostFix(context.Background(), d, 0, time.Second, nil, nil)
	if err != nil || n != 0 || len(d.calls) != 0 {
		t.Errorf("n=%d err=%v calls=%v", n, err, d.calls)
	}
}

func TestGhostFix_DisplayError(t *testing.T) {
	d := &recordingDisplay{failOn: "show"}
	_, err := GhostFix(context.Background(), d, 2, 0, func(context.Context, time.Duration) error { return nil }, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

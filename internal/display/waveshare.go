package display

import (
	"fmt"
	"image"
	"image/color"
	"log"

	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v2"
	"periph.io/x/host/v3"
)

// panel is the subset of the periph waveshare2in13v2 driver used here.
type panel interface {
	Init() error
	SetUpdateMode(mode waveshare2in13v2.PartialUpdate) error
	Clear(c color.Color) error
	Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error
	Sleep() error
	Bounds() image.Rectangle
}

// Waveshare drives a Waveshare 2.13" v2 HAT over SPI.
type Waveshare struct {
	dev       panel
	closer    func() error
	frame     image.Rectangle
	rotate180 bool
}

// OpenWaveshare initialises the periph host, opens the SPI port (empty name
// selects the first one) and connects to the HAT.
func OpenWaveshare(spiPort string, rotate180 bool) (*Waveshare, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph host init: %w", err)
	}
	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("epd: open SPI port: %w", err)
	}
	dev, err := waveshare2in13v2.NewHat(port, &waveshare2in13v2.EPD2in13v2)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: connect HAT: %w", err)
	}
	log.Printf("[INFO] e-paper panel ready on SPI %q", spiPort)
	return newWaveshare(dev, port.Close, rotate180), nil
}

func newWaveshare(dev panel, closer func() error, rotate180 bool) *Waveshare {
	b := dev.Bounds()
	frame := image.Rect(0, 0, b.Dx(), b.Dy())
	if frame.Dy() > frame.Dx() {
		// The panel is portrait; frames are drawn landscape.
		frame = image.Rect(0, 0, b.Dy(), b.Dx())
	}
	return &Waveshare{dev: dev, closer: closer, frame: frame, rotate180: rotate180}
}

func (w *Waveshare) Name() string { return "waveshare-2in13-v2" }

func (w *Waveshare) Bounds() image.Rectangle { return w.frame }

func (w *Waveshare) OneShot() bool { return false }

func (w *Waveshare) Init() error {
	if err := w.dev.Init(); err != nil {
		return fmt.Errorf("epd: init: %w", err)
	}
	if err := w.dev.SetUpdateMode(waveshare2in13v2.Full); err != nil {
		return fmt.Errorf("epd: full update mode: %w", err)
	}
	return nil
}

func (w *Waveshare) Clear() error {
	if err := w.dev.Clear(color.White); err != nil {
		return fmt.Errorf("epd: clear: %w", err)
	}
	return nil
}

func (w *Waveshare) Show(img image.Image) error {
	buf := w.toPanel(img)
	if err := w.dev.Draw(w.dev.Bounds(), buf, buf.Bounds().Min); err != nil {
		return fmt.Errorf("epd: draw: %w", err)
	}
	return nil
}

// Sleep puts the controller into deep sleep and releases the SPI port.
func (w *Waveshare) Sleep() error {
	if err := w.dev.Sleep(); err != nil {
		return fmt.Errorf("epd: sleep: %w", err)
	}
	if w.closer != nil {
		if err := w.closer(); err != nil {
			return fmt.Errorf("epd: close SPI port: %w", err)
		}
		w.closer = nil
	}
	return nil
}

// toPanel applies the configured 180° turn and maps a landscape frame onto
// the portrait panel.
func (w *Waveshare) toPanel(img image.Image) image.Image {
	src := img
	if w.rotate180 {
		src = Rotate180(src)
	}
	pb := w.dev.Bounds()
	sb := src.Bounds()
	if pb.Dy() > pb.Dx() && sb.Dx() > sb.Dy() {
		src = Rotate90(src)
	}
	return src
}

// Rotate180 returns a 1-bit copy of img turned upside down.
func Rotate180(img image.Image) *image1bit.VerticalLSB {
	b := img.Bounds()
	out := image1bit.NewVerticalLSB(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return out
}

// Rotate90 returns a 1-bit copy of img turned 90° clockwise.
func Rotate90(img image.Image) *image1bit.VerticalLSB {
	b := img.Bounds()
	out := image1bit.NewVerticalLSB(image.Rect(0, 0, b.Dy(), b.Dx()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.Y-1-y, x-b.Min.X, img.At(x, y))
		}
	}
	return out
}

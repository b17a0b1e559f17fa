// Package render draws the clock and price onto a 1-bit frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Text positions are the top-left corner of each text box.
var (
	clockAt = image.Pt(180, 20)
	labelAt = image.Pt(8, 20)
	priceAt = image.Pt(36, 40)
)

const (
	labelSize = 18
	priceSize = 48
	dpi       = 72

	clockLayout = "15:04:05"
)

// Frame is one rendered screen. The text fields record what was drawn.
type Frame struct {
	Image *image1bit.VerticalLSB
	Clock string
	Label string
	Price string
	At    time.Time
}

// HasPrice reports whether the price and label were drawn.
func (f *Frame) HasPrice() bool { return f.Price != "" }

// Options configures a Renderer.
type Options struct {
	Width    int
	Height   int
	FontPath string
	Label    string
	Currency string
	Location *time.Location
}

// Renderer owns the preloaded faces; it is not safe for concurrent use.
type Renderer struct {
	bounds   image.Rectangle
	medium   font.Face
	large    font.Face
	label    string
	currency string
	loc      *time.Location
}

// New loads the font at the sizes used by the layout. An empty FontPath
// selects the embedded Go Bold face.
func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("render: invalid frame size %dx%d", opts.Width, opts.Height)
	}
	data := gobold.TTF
	if opts.FontPath != "" {
		b, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("render: read font: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("render: parse font: %w", err)
	}
	r := &Renderer{
		bounds:   image.Rect(0, 0, opts.Width, opts.Height),
		label:    opts.Label,
		currency: opts.Currency,
		loc:      opts.Location,
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	for _, fs := range []struct {
		dst  *font.Face
		size float64
	}{
		{&r.medium, labelSize},
		{&r.large, priceSize},
	} {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: fs.size, DPI: dpi, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("render: face %.0fpt: %w", fs.size, err)
		}
		*fs.dst = face
	}
	return r, nil
}

// Bounds returns the frame rectangle.
func (r *Renderer) Bounds() image.Rectangle { return r.bounds }

// Render draws the clock and, when price is non-nil, the price with its label.
func (r *Renderer) Render(now time.Time, price *float64) *Frame {
	img := Fill(r.bounds, image1bit.On)
	frame := &Frame{Image: img, At: now, Clock: now.In(r.loc).Format(clockLayout)}

	r.drawText(img, clockAt, r.medium, frame.Clock)
	if price != nil {
		frame.Price = FormatPrice(r.currency, *price)
		frame.Label = r.label
		r.drawText(img, priceAt, r.large, frame.Price)
		r.drawText(img, labelAt, r.medium, frame.Label)
	}
	return frame
}

// Fill returns a frame of the given size painted with c.
// On is white paper, Off is black ink.
func Fill(bounds image.Rectangle, c image1bit.Bit) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	if c == image1bit.Off {
		return img
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetBit(x, y, c)
		}
	}
	return img
}

// FormatPrice prefixes the currency symbol and rounds half away from zero to
// two decimal places, so 2500.125 becomes 2500.13.
// Non-finite values are printed as-is.
func FormatPrice(currency string, price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return currency + strconv.FormatFloat(price, 'f', 2, 64)
	}
	return currency + decimal.NewFromFloat(price).StringFixed(2)
}

func (r *Renderer) drawText(dst *image1bit.VerticalLSB, topLeft image.Point, face font.Face, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(topLeft.X, topLeft.Y).Add(fixed.Point26_6{Y: face.Metrics().Ascent}),
	}
	d.DrawString(text)
}

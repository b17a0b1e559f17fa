package display

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Opener hands a file to the operating system's default viewer.
type Opener func(path string) error

// Simulated stands in for the panel during development: the single frame it
// receives is written to disk as PNG and optionally opened.
type Simulated struct {
	bounds image.Rectangle
	path   string
	open   Opener
}

// NewSimulated creates a simulated display of the given landscape size. A nil
// opener leaves the PNG on disk without opening it.
func NewSimulated(width, height int, path string, open Opener) *Simulated {
	return &Simulated{bounds: image.Rect(0, 0, width, height), path: path, open: open}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Bounds() image.Rectangle { return s.bounds }

func (s *Simulated) OneShot() bool { return true }

func (s *Simulated) Init() error { return nil }

func (s *Simulated) Clear() error { return nil }

func (s *Simulated) Sleep() error { return nil }

// Path returns where frames are written.
func (s *Simulated) Path() string { return s.path }

// Show writes img to the output path, then opens it.
func (s *Simulated) Show(img image.Image) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("simulated: create output dir: %w", err)
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("simulated: create %s: %w", s.path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("simulated: encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("simulated: close %s: %w", s.path, err)
	}
	log.Printf("[INFO] frame written to %s", s.path)

	if s.open != nil {
		if err := s.open(s.path); err != nil {
			log.Printf("[WARN] open %s: %v", s.path, err)
		}
	}
	return nil
}

// OpenWithDefaultApp launches the platform's file handler without waiting for it.
func OpenWithDefaultApp(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const (
	DefaultCommand = "pdftoppm"
	baseDPI        = 72.0
)

// Engine rasterizes a single page of the PDF at path.
type Engine interface {
	Render(ctx context.Context, path string, page int, scale float64) (image.Image, error)
}

// PopplerEngine shells out to poppler's pdftoppm.
type PopplerEngine struct {
	Command string
}

func NewPopplerEngine(command string) *PopplerEngine {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	return &PopplerEngine{Command: command}
}

func (e *PopplerEngine) Render(ctx context.Context, path string, page int, scale float64) (image.Image, error) {
	args := popplerArgs(path, page, scale)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w (%s)", e.Command, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", e.Command, err)
	}
	return img, nil
}

func popplerArgs(path string, page int, scale float64) []string {
	n := strconv.Itoa(page)
	return []string{"-f", n, "-l", n, "-r", strconv.Itoa(dpi(scale)), "-png", "-singlefile", path}
}

func dpi(scale float64) int {
	if scale <= 0 {
		scale = 1
	}
	return int(math.Max(1, math.Round(baseDPI*scale)))
}

// Package tuitest drives a terminal program through a pseudo terminal and
// records what it draws.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 32
	defaultTimeout = 5 * time.Second
)

// Step is one scripted interaction: wait Delay, then write Input.
type Step struct {
	Delay time.Duration
	Input []byte
}

// Type sends text as if typed.
func Type(text string) Step {
	return Step{Input: []byte(text)}
}

// Press sends a key sequence such as KeyEnter.
func Press(key []byte) Step {
	return Step{Input: key}
}

// Pause waits before the next step.
func Pause(d time.Duration) Step {
	return Step{Delay: d}
}

// Config configures how the harness spawns and drives the program.
type Config struct {
	Command          []string
	Dir              string
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	AllowInterrupt   bool
}

// Recording contains the raw terminal stream plus parsed frames.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// Run executes the command inside a PTY, replays the steps and captures
// every byte written to the terminal until the program exits.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cfg = withDefaults(cfg)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(cfg.Height), Cols: uint16(cfg.Width)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	capture := &captureBuffer{}
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		responder := newTerminalResponder(ptmx)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				responder.Process(buf[:n])
				capture.Write(buf[:n])
			}
			if readErr != nil {
				return
			}
		}
	}()

	start := time.Now()
	if err := replay(ctx, ptmx, cfg.Steps); err != nil {
		return nil, err
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		if err := checkExit(err, cfg); err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}

	// Closing the PTY lets the reader goroutine finish draining.
	_ = ptmx.Close()
	<-copyDone

	raw := capture.Bytes()
	return &Recording{Raw: raw, Frames: parseFrames(raw), Duration: time.Since(start)}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Width <= 0 {
		cfg.Width = defaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultHeight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

func replay(ctx context.Context, w *os.File, steps []Step) error {
	for _, step := range steps {
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("tuitest: context cancelled before script finished: %w", ctx.Err())
			case <-time.After(step.Delay):
			}
		}
		if len(step.Input) == 0 {
			continue
		}
		if _, err := w.Write(step.Input); err != nil {
			return fmt.Errorf("tuitest: write input: %w", err)
		}
	}
	return nil
}

func checkExit(err error, cfg Config) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		for _, code := range cfg.AllowedExitCodes {
			if exitErr.ExitCode() == code {
				return nil
			}
		}
	}
	if cfg.AllowInterrupt && strings.Contains(err.Error(), "signal: interrupt") {
		return nil
	}
	return fmt.Errorf("tuitest: program exited with error: %w", err)
}

// captureBuffer is written by the PTY reader and read after it stops.
type captureBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *captureBuffer) Write(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Write(p)
}

func (c *captureBuffer) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf.Bytes()...)
}

func buildEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}

var (
	// KeyEnter sends a carriage return to the PTY.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC requests the program to terminate.
	KeyCtrlC = []byte{3}
	// KeyEsc exits transient overlays inside the TUI.
	KeyEsc = []byte{27}
	// KeyRight and KeyLeft are the cursor keys in normal mode.
	KeyRight = []byte("\x1b[C")
	KeyLeft  = []byte("\x1b[D")
)

package tuitest

import (
	"regexp"
	"strings"
)

// Frame is one screen the program drew, with and without escape codes.
type Frame struct {
	Index int
	ANSI  string
	Plain string
}

// Contains reports whether the plain text of the frame includes s.
func (f Frame) Contains(s string) bool {
	return strings.Contains(f.Plain, s)
}

var (
	frameSeparator = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiPattern     = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscPattern     = regexp.MustCompile(`\x1b\][^\x07]*(\x07|\x1b\\)`)
)

// parseFrames splits the raw stream on screen clears. Output without any
// clear is returned as a single frame.
func parseFrames(raw []byte) []Frame {
	cleaned := strings.ReplaceAll(string(raw), "\r", "")
	var frames []Frame
	for _, segment := range frameSeparator.Split(cleaned, -1) {
		segment = strings.TrimPrefix(strings.Trim(segment, "\x00"), "\x1b[H")
		plain := normalizeLines(stripANSI(segment))
		if strings.TrimSpace(plain) == "" {
			continue
		}
		frames = append(frames, Frame{Index: len(frames), ANSI: segment, Plain: plain})
	}
	if len(frames) == 0 && len(cleaned) > 0 {
		frames = append(frames, Frame{ANSI: cleaned, Plain: normalizeLines(stripANSI(cleaned))})
	}
	return frames
}

// FinalFrame returns the last captured frame. The second return value is false
// when no frames were recorded.
func (r *Recording) FinalFrame() (Frame, bool) {
	if r == nil || len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// LastFrameContaining returns the newest frame whose text includes s.
func (r *Recording) LastFrameContaining(s string) (Frame, bool) {
	if r == nil {
		return Frame{}, false
	}
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if r.Frames[i].Contains(s) {
			return r.Frames[i], true
		}
	}
	return Frame{}, false
}

// Contains reports whether s was drawn at any point. The renderer only
// repaints changed lines, so text can be missing from the final frame.
func (r *Recording) Contains(s string) bool {
	if r == nil {
		return false
	}
	return strings.Contains(stripANSI(strings.ReplaceAll(string(r.Raw), "\r", "")), s)
}

func stripANSI(s string) string {
	s = oscPattern.ReplaceAllString(s, "")
	s = csiPattern.ReplaceAllString(s, "")
	return strings.NewReplacer("\x0f", "", "\x0e", "").Replace(s)
}

func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n ")
}

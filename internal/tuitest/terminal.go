package tuitest

import (
	"bytes"
	"io"
)

// terminalQuery is an escape sequence a TUI may send to query the terminal,
// paired with the reply a real xterm would give.
type terminalQuery struct {
	request []byte
	reply   []byte
}

// lipgloss and termenv ask for the cursor position and the default colours
// on start-up and block until they get an answer.
var terminalQueries = []terminalQuery{
	{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},
	{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
	{[]byte("\x1b[c"), []byte("\x1b[?62;22c")},
}

const (
	responderMaxBuffer = 256
	responderTail      = 64
)

type terminalResponder struct {
	w       io.Writer
	buf     []byte
	replies int
}

func newTerminalResponder(w io.Writer) *terminalResponder {
	return &terminalResponder{w: w, buf: make([]byte, 0, 128)}
}

func (tr *terminalResponder) Process(chunk []byte) {
	tr.buf = append(tr.buf, chunk...)
	for tr.answerNext() {
	}
	// Sequences can span reads, so a short tail survives trimming.
	if len(tr.buf) > responderMaxBuffer {
		tr.buf = tr.buf[len(tr.buf)-responderTail:]
	}
}

// answerNext replies to the earliest pending query in the buffer.
func (tr *terminalResponder) answerNext() bool {
	first, at := -1, -1
	for i, q := range terminalQueries {
		idx := bytes.Index(tr.buf, q.request)
		if idx >= 0 && (at < 0 || idx < at) {
			first, at = i, idx
		}
	}
	if first < 0 {
		return false
	}
	q := terminalQueries[first]
	tr.buf = tr.buf[at+len(q.request):]
	_, _ = tr.w.Write(q.reply)
	tr.replies++
	return true
}

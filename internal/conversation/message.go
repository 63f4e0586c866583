package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/csheth/pagetutor/internal/llm"
)

// Message is one entry in the conversation transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Error marks an in-band failure notice. It is shown but never sent back as history.
	Error bool `json:"error,omitempty"`
}

type Difficulty string

const (
	ELI5      Difficulty = "eli5"
	HighLevel Difficulty = "highlevel"
	Detailed  Difficulty = "detailed"

	DefaultDifficulty = HighLevel
)

var difficulties = []Difficulty{ELI5, HighLevel, Detailed}

func ParseDifficulty(raw string) (Difficulty, error) {
	level := Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	for _, d := range difficulties {
		if d == level {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", raw)
}

// Next cycles eli5 → highlevel → detailed → eli5.
func (d Difficulty) Next() Difficulty {
	for i, candidate := range difficulties {
		if candidate == d {
			return difficulties[(i+1)%len(difficulties)]
		}
	}
	return DefaultDifficulty
}

func (d Difficulty) Label() string {
	switch d {
	case ELI5:
		return "ELI5"
	case Detailed:
		return "Detailed"
	default:
		return "High-level"
	}
}

// ExplanationPrompt wraps text in the instruction for the given level.
func ExplanationPrompt(level Difficulty, text string) string {
	switch level {
	case ELI5:
		return "Explain this text as if you're explaining to a 5-year-old:\n\n" + text
	case Detailed:
		return "Give a detailed, technical explanation of this text, including key concepts and their relationships:\n\n" + text
	default:
		return "Provide a high-level overview of the main concepts in this text:\n\n" + text
	}
}

func acknowledgement(pageNumber int) string {
	return fmt.Sprintf("I'm now looking at page %d. Let me explain it for you.", pageNumber)
}

func errorContent(err error) string {
	return "Error: " + err.Error()
}

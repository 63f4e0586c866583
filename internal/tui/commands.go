package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pagetutor/internal/document"
	"github.com/csheth/pagetutor/internal/history"
	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/preferences"
)

const (
	openTimeout    = 45 * time.Second
	renderTimeout  = 30 * time.Second
	requestTimeout = 2 * time.Minute
)

type documentResultMsg struct {
	doc *document.Document
	err error
}

type renderResultMsg struct {
	docID  string
	page   int
	width  int
	height int
	err    error
}

type conversationResultMsg struct {
	kind jobKind
	err  error
}

type modelsResultMsg struct {
	models []llm.ModelInfo
}

type modelSelectedMsg struct {
	id  string
	err error
}

type connectionResultMsg struct {
	ok bool
}

type credentialResultMsg struct {
	cleared bool
	err     error
}

type restoreResultMsg struct {
	replay *history.Replay
	err    error
}

type closeResultMsg struct {
	name string
	err  error
}

type historyResultMsg struct {
	entries []history.Entry
	err     error
}

func isRemoteTarget(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func openDocumentJob(ws Workspace, target string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, openTimeout)
		defer cancel()
		var (
			doc *document.Document
			err error
		)
		if isRemoteTarget(target) {
			doc, err = ws.OpenURL(ctx, target)
		} else {
			doc, err = ws.OpenFile(ctx, target)
		}
		return documentResultMsg{doc: doc, err: err}, err
	}
}

func renderPageJob(ws Workspace, docID string, page int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, renderTimeout)
		defer cancel()
		img, err := ws.RenderPage(ctx)
		msg := renderResultMsg{docID: docID, page: page, err: err}
		if err == nil {
			bounds := img.Bounds()
			msg.width, msg.height = bounds.Dx(), bounds.Dy()
		}
		return msg, err
	}
}

func explainPageJob(ws Workspace) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		err := ws.Explain(ctx)
		return conversationResultMsg{kind: jobKindExplain, err: err}, err
	}
}

func askQuestionJob(ws Workspace, question string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		err := ws.Ask(ctx, question)
		return conversationResultMsg{kind: jobKindAsk, err: err}, err
	}
}

func refreshModelsJob(ws Workspace) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		models := ws.RefreshModels(ctx)
		if err := parent.Err(); err != nil {
			return nil, err
		}
		return modelsResultMsg{models: models}, nil
	}
}

func selectModelJob(ws Workspace, id string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		err := ws.SelectModel(parent, id)
		return modelSelectedMsg{id: id, err: err}, err
	}
}

func testConnectionJob(ws Workspace) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, requestTimeout)
		defer cancel()
		return connectionResultMsg{ok: ws.TestConnection(ctx, "")}, nil
	}
}

func setCredentialJob(ws Workspace, credential string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		err := ws.SetCredential(parent, credential)
		return credentialResultMsg{cleared: credential == "", err: err}, err
	}
}

func restoreHistoryJob(ws Workspace, id string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, openTimeout)
		defer cancel()
		replay, err := ws.Restore(ctx, id)
		return restoreResultMsg{replay: replay, err: err}, err
	}
}

func closeDocumentJob(ws Workspace, name string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		err := ws.Close(parent)
		return closeResultMsg{name: name, err: err}, err
	}
}

func loadHistoryJob(ws Workspace) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		entries, err := ws.History(parent)
		return historyResultMsg{entries: entries, err: err}, err
	}
}

type promptSelectedMsg struct {
	name string
	err  error
}

type promptAddedMsg struct {
	prompt preferences.Prompt
	err    error
}

type promptRemovedMsg struct {
	name string
	err  error
}

type historyClearedMsg struct {
	err error
}

type thumbnailsResultMsg struct {
	docID  string
	first  int
	states []thumbnailState
}

func selectPromptJob(ws Workspace, prompt preferences.Prompt) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		err := ws.SelectPrompt(parent, prompt.ID)
		return promptSelectedMsg{name: prompt.Name, err: err}, err
	}
}

func addPromptJob(ws Workspace, name, text string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		prompt, err := ws.AddPrompt(parent, name, text)
		return promptAddedMsg{prompt: prompt, err: err}, err
	}
}

func removePromptJob(ws Workspace, prompt preferences.Prompt) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		err := ws.RemovePrompt(parent, prompt.ID)
		return promptRemovedMsg{name: prompt.Name, err: err}, err
	}
}

func clearHistoryJob(ws Workspace) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		err := ws.ClearHistory(parent)
		return historyClearedMsg{err: err}, err
	}
}

// thumbnailsJob renders pages first..first+count-1 at thumbnail scale and
// reports which succeeded. It stops early when superseded.
func thumbnailsJob(ws Workspace, docID string, first, count int) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		states := make([]thumbnailState, count)
		for i := range states {
			if err := parent.Err(); err != nil {
				return nil, err
			}
			ctx, cancel := context.WithTimeout(parent, renderTimeout)
			_, err := ws.Thumbnail(ctx, first+i)
			cancel()
			switch {
			case err == nil:
				states[i] = thumbnailReady
			case errors.Is(err, context.Canceled) && parent.Err() != nil:
				return nil, parent.Err()
			default:
				states[i] = thumbnailFailed
			}
		}
		return thumbnailsResultMsg{docID: docID, first: first, states: states}, nil
	}
}

// friendlyError trims the package prefixes from errors shown in the log.
func friendlyError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, document.ErrUnsupportedFormat):
		return "That file is not a readable PDF."
	case errors.Is(err, llm.ErrInvalidCredential):
		return "That API key does not look valid for this provider."
	case errors.Is(err, history.ErrReplayFailed):
		return "Could not reopen that document: " + err.Error()
	case errors.Is(err, preferences.ErrUnknownPrompt):
		return "That prompt no longer exists."
	case errors.Is(err, preferences.ErrBuiltinPrompt):
		return "Built-in prompts cannot be removed."
	case errors.Is(err, preferences.ErrEmptyPrompt):
		return "A custom prompt needs a name and instructions, as Name: text."
	}
	return err.Error()
}

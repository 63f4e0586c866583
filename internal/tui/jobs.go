package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type jobKind string

type jobStatus string

const (
	jobKindOpen    jobKind = "open"
	jobKindRender  jobKind = "render"
	jobKindExplain jobKind = "explain"
	jobKindAsk     jobKind = "ask"
	jobKindModels  jobKind = "models"
	jobKindSelect  jobKind = "select"
	jobKindTest    jobKind = "test"
	jobKindCred    jobKind = "credential"
	jobKindRestore jobKind = "restore"
	jobKindClose   jobKind = "close"
	jobKindHistory jobKind = "history"
	jobKindPrompt  jobKind = "prompt"
	jobKindThumbs  jobKind = "thumbnails"

	jobKindHistoryClear jobKind = "history-clear"
)

const (
	jobStatusRunning    jobStatus = "running"
	jobStatusSucceeded  jobStatus = "succeeded"
	jobStatusFailed     jobStatus = "failed"
	jobStatusSuperseded jobStatus = "superseded"
)

// Only the newest job of these kinds is worth waiting for.
var supersededKinds = map[jobKind]bool{
	jobKindRender: true,
	jobKindModels: true,
	jobKindThumbs: true,
}

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

// jobResultEnvelope carries a finished job. Payload is nil when the job was
// superseded by a newer one of the same kind.
type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

type jobBus struct {
	counter int64
	logger  *zap.Logger

	mu       sync.Mutex
	inflight map[jobKind]inflightJob
}

type inflightJob struct {
	id     string
	cancel context.CancelFunc
}

func newJobBus(logger *zap.Logger) *jobBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jobBus{logger: logger, inflight: map[jobKind]inflightJob{}}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

// acquire returns the context a job runs under. For superseded kinds it
// cancels the previous job of that kind.
func (b *jobBus) acquire(kind jobKind, id string) context.Context {
	if !supersededKinds[kind] {
		return context.Background()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	if prev, ok := b.inflight[kind]; ok {
		prev.cancel()
	}
	b.inflight[kind] = inflightJob{id: id, cancel: cancel}
	b.mu.Unlock()
	return ctx
}

func (b *jobBus) release(kind jobKind, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.inflight[kind]; ok && cur.id == id {
		cur.cancel()
		delete(b.inflight, kind)
	}
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}}
	}

	runCmd := func() tea.Msg {
		return b.run(kind, id, started, runner)
	}

	return tea.Sequence(startCmd, runCmd)
}

func (b *jobBus) run(kind jobKind, id string, started time.Time, runner jobRunner) jobResultEnvelope {
	ctx := b.acquire(kind, id)
	payload, err := runner(ctx)
	superseded := ctx.Err() != nil && errors.Is(err, context.Canceled)
	b.release(kind, id)

	snapshot := jobSnapshot{ID: id, Kind: kind, StartedAt: started, CompletedAt: time.Now()}
	snapshot.Duration = snapshot.CompletedAt.Sub(started)
	switch {
	case superseded:
		snapshot.Status = jobStatusSuperseded
		payload = nil
	case err != nil:
		snapshot.Status = jobStatusFailed
		snapshot.Err = err.Error()
	default:
		snapshot.Status = jobStatusSucceeded
	}
	b.logger.Debug("job finished",
		zap.String("job_id", id),
		zap.String("kind", string(kind)),
		zap.String("status", string(snapshot.Status)),
		zap.Duration("duration", snapshot.Duration),
		zap.Error(err),
	)
	return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
}

package preferences

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/storage"
)

type fakeDefaults struct{}

func (fakeDefaults) DefaultModel() string { return "gpt-3.5-turbo" }

func (fakeDefaults) FallbackModels() []llm.ModelInfo {
	return []llm.ModelInfo{
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provenance: llm.ProvenanceBuiltin},
		{ID: "gpt-4", Name: "GPT-4", Provenance: llm.ProvenanceBuiltin},
	}
}

type fakeSource struct {
	calls      int
	credential string
	models     []llm.ModelInfo
}

func (f *fakeSource) RefreshModels(_ context.Context, credential string) []llm.ModelInfo {
	f.calls++
	f.credential = credential
	return f.models
}

func newPrefs(t *testing.T) (*Preferences, storage.Store) {
	t.Helper()
	records, err := storage.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return New(records, fakeDefaults{}, nil), records
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	p, _ := newPrefs(t)
	require.NoError(t, p.Load(context.Background()))

	assert.Equal(t, "", p.Credential())
	assert.Equal(t, DefaultPromptID, p.SystemPrompt().ID)
	assert.Equal(t, "gpt-3.5-turbo", p.Model().ID)
	assert.Equal(t, "GPT-3.5 Turbo", p.Model().Name)

	prompts := p.Prompts()
	require.Len(t, prompts, 4)
	ids := []string{prompts[0].ID, prompts[1].ID, prompts[2].ID, prompts[3].ID}
	assert.Equal(t, []string{"default", "socratic", "expert", "friendly"}, ids)
	assert.Equal(t, "Socratic Teacher", prompts[1].Name)
}

func TestSelectionsPersist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, records := newPrefs(t)

	require.NoError(t, p.SetCredential(ctx, "  sk-secret  "))
	require.NoError(t, p.SetSystemPrompt(ctx, "expert"))
	require.NoError(t, p.SetModel(ctx, llm.ModelInfo{ID: "gpt-4o", Provenance: llm.ProvenanceRemote}))

	raw, err := records.Get(ctx, storage.KeyCredential)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", string(raw))

	reloaded := New(records, fakeDefaults{}, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, "sk-secret", reloaded.Credential())
	assert.Equal(t, "expert", reloaded.SystemPrompt().ID)
	assert.Contains(t, reloaded.SystemPrompt().Text, "subject matter expert")
	assert.Equal(t, "gpt-4o", reloaded.Model().ID)
	assert.Equal(t, "gpt-4o", reloaded.Model().Name)

	require.NoError(t, reloaded.SetCredential(ctx, ""))
	_, err = records.Get(ctx, storage.KeyCredential)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUnknownPromptRejected(t *testing.T) {
	t.Parallel()
	p, _ := newPrefs(t)
	err := p.SetSystemPrompt(context.Background(), "pirate")
	assert.ErrorIs(t, err, ErrUnknownPrompt)
	assert.Equal(t, DefaultPromptID, p.SystemPrompt().ID)
}

func TestCustomPrompts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, records := newPrefs(t)

	_, err := p.AddCustomPrompt(ctx, " ", "text")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	added, err := p.AddCustomPrompt(ctx, "Terse", "Answer in one sentence.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(added.ID, "custom-"))
	assert.True(t, added.Custom())
	require.Len(t, p.Prompts(), 5)

	var stored []Prompt
	require.NoError(t, storage.GetJSON(ctx, records, storage.KeyCustomPrompts, &stored))
	require.Len(t, stored, 1, "only custom prompts are persisted")
	assert.Equal(t, added.ID, stored[0].ID)

	require.NoError(t, p.SetSystemPrompt(ctx, added.ID))
	reloaded := New(records, fakeDefaults{}, nil)
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, added.ID, reloaded.SystemPrompt().ID)
	assert.Len(t, reloaded.Prompts(), 5)

	assert.ErrorIs(t, reloaded.RemoveCustomPrompt(ctx, "socratic"), ErrBuiltinPrompt)
	assert.ErrorIs(t, reloaded.RemoveCustomPrompt(ctx, "custom-missing"), ErrUnknownPrompt)
	require.NoError(t, reloaded.RemoveCustomPrompt(ctx, added.ID))
	assert.Len(t, reloaded.Prompts(), 4)
	assert.Equal(t, DefaultPromptID, reloaded.SystemPrompt().ID)
}

func TestLoadIgnoresUnreadableRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, records := newPrefs(t)
	require.NoError(t, records.Set(ctx, storage.KeySystemPrompt, []byte("{broken")))
	require.NoError(t, p.Load(ctx))
	assert.Equal(t, DefaultPromptID, p.SystemPrompt().ID)
}

func TestModelsFallsBackWithoutCredential(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, _ := newPrefs(t)
	source := &fakeSource{models: []llm.ModelInfo{{ID: "gpt-4o", Provenance: llm.ProvenanceRemote}}}

	models := p.Models(ctx, source)
	assert.Len(t, models, 2)
	assert.Equal(t, 0, source.calls)

	require.NoError(t, p.SetCredential(ctx, "sk-live"))
	models = p.Models(ctx, source)
	require.Len(t, models, 1)
	assert.Equal(t, "gpt-4o", models[0].ID)
	assert.Equal(t, "sk-live", source.credential)

	source.models = nil
	assert.Empty(t, p.Models(ctx, source), "a failed refresh must not fall back to a stale list")
}

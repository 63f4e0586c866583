package llm

import (
	"reflect"
	"testing"
)

func TestFilterChatModels(t *testing.T) {
	input := []ModelInfo{
		{ID: "gpt-4"},
		{ID: "whisper-1"},
		{ID: "gpt-3.5-turbo-instruct"},
		{ID: "gpt-3.5-turbo"},
		{ID: "gpt-4"},
		{ID: "dall-e-3"},
		{ID: "  "},
	}
	got := FilterChatModels(input, "gpt-")
	var ids []string
	for _, m := range got {
		ids = append(ids, m.ID)
		if m.Name != m.ID {
			t.Fatalf("expected name to default to id, got %q", m.Name)
		}
	}
	want := []string{"gpt-3.5-turbo", "gpt-4"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("FilterChatModels = %v, want %v", ids, want)
	}
}

func TestFilterChatModelsWithoutFamilyKeepsAll(t *testing.T) {
	got := FilterChatModels([]ModelInfo{{ID: "llama3:latest"}, {ID: "mistral:instruct"}, {ID: "gemma:2b"}}, "")
	if len(got) != 2 || got[0].ID != "gemma:2b" || got[1].ID != "llama3:latest" {
		t.Fatalf("unexpected models %+v", got)
	}
}

func TestFilterChatModelsEmpty(t *testing.T) {
	if got := FilterChatModels(nil, "gpt-"); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestMergeTurns(t *testing.T) {
	got := mergeTurns([]Turn{
		{Role: RoleAssistant, Content: "ack"},
		{Role: RoleUser, Content: "a"},
		{Role: RoleUser, Content: "b"},
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleAssistant, Content: "c"},
	})
	want := []Turn{
		{Role: RoleAssistant, Content: "ack"},
		{Role: RoleUser, Content: "a\n\nb"},
		{Role: RoleAssistant, Content: "c"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mergeTurns = %+v", got)
	}
}

package llm

import (
	"sort"
	"strings"
)

// FilterChatModels keeps models whose id starts with family, drops
// instruct variants and duplicates, and sorts by id.
func FilterChatModels(models []ModelInfo, family string) []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for _, model := range models {
		id := strings.TrimSpace(model.ID)
		if id == "" {
			continue
		}
		if family != "" && !strings.HasPrefix(id, family) {
			continue
		}
		if strings.Contains(id, "instruct") {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		model.ID = id
		if strings.TrimSpace(model.Name) == "" {
			model.Name = id
		}
		out = append(out, model)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// mergeTurns collapses consecutive turns with the same role.
func mergeTurns(turns []Turn) []Turn {
	merged := make([]Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.Role == RoleSystem {
			continue
		}
		if n := len(merged); n > 0 && merged[n-1].Role == turn.Role {
			merged[n-1].Content += "\n\n" + turn.Content
			continue
		}
		merged = append(merged, turn)
	}
	return merged
}

package commonModels

import "slices"

// SourceFilter restricts retrieval to a set of document ids.
// The zero value matches every document.
type SourceFilter struct {
	ids []string
}

// NewSourceFilter deduplicates ids and rejects empty strings.
// No ids yields an unrestricted filter.
func NewSourceFilter(ids ...string) (SourceFilter, error) {
	if len(ids) == 0 {
		return SourceFilter{}, nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return SourceFilter{}, ErrEmptySourceID
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return SourceFilter{ids: out}, nil
}

func (f SourceFilter) IsEmpty() bool {
	return len(f.ids) == 0
}

func (f SourceFilter) IDs() []string {
	return slices.Clone(f.ids)
}

func (f SourceFilter) Allows(source string) bool {
	return f.IsEmpty() || slices.Contains(f.ids, source)
}

package settings

import (
	"strings"

	"github.com/bft-labs/golive/internal/domain"
)

// Prefill returns a copy of draft where empty values are filled from the
// defaults reported during prepopulation. The base title and category come
// from the first platform (in ID order) that reports one; each override gets
// the platform's default fields it does not set itself. Values the user
// already entered always win.
func Prefill(draft domain.StreamSettings, defaults map[domain.PlatformID]domain.PlatformDefaults) domain.StreamSettings {
	out := draft.Clone()

	ids := make([]domain.PlatformID, 0, len(defaults))
	for id := range defaults {
		ids = append(ids, id)
	}
	domain.SortPlatformIDs(ids)

	for _, id := range ids {
		d := defaults[id]
		if strings.TrimSpace(out.Title) == "" && d.Title != "" {
			out.Title = d.Title
		}
		if out.Category == "" && d.Category != "" {
			out.Category = d.Category
		}

		o, ok := out.Overrides[id]
		if !ok || len(d.Fields) == 0 {
			continue
		}
		if o.Fields == nil {
			o.Fields = make(map[string]any, len(d.Fields))
		}
		for k, v := range d.Fields {
			if _, set := o.Fields[k]; !set {
				o.Fields[k] = v
			}
		}
		out.Overrides[id] = o
	}
	return out
}

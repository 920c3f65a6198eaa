package cliconfig

import (
	"fmt"

	"github.com/bft-labs/golive/internal/domain"
)

// StreamSettings builds the draft settings for a go-live attempt: the
// [stream] section as base plus one override per configured platform.
func (c *Config) StreamSettings() domain.StreamSettings {
	s := domain.StreamSettings{
		Title:      c.Stream.Title,
		Category:   c.Stream.Category,
		Resolution: c.Stream.Resolution,
		MaxViewers: c.Stream.MaxViewers,
		Visibility: domain.Visibility{Secret: c.Stream.Secret, Password: c.Stream.Password},
		Audience:   domain.Audience{AdultOnly: c.Stream.AdultOnly, MinRank: c.Stream.MinRank},
		Overrides:  make(map[domain.PlatformID]domain.PlatformOverride, len(c.Platforms)),
	}
	for _, p := range c.Platforms {
		id := domain.PlatformID(p.ID)
		fields := make(map[string]any, len(p.Fields))
		for k, v := range p.Fields {
			fields[k] = v
		}
		s.Overrides[id] = domain.PlatformOverride{
			Platform:        id,
			Enabled:         p.IsEnabled(),
			Required:        p.Required,
			UseCustomFields: p.CustomFields,
			Fields:          fields,
		}
	}
	return s
}

// FieldSchema converts the [platforms.schema] table of an http platform.
func (p PlatformConfig) FieldSchema() (domain.FieldSchema, error) {
	schema := make(domain.FieldSchema, len(p.Schema))
	for name, f := range p.Schema {
		kind, err := parseKind(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		schema[name] = domain.FieldSpec{
			Kind:     kind,
			Required: f.Required,
			Options:  append([]string(nil), f.Options...),
			Min:      f.Min,
			Max:      f.Max,
		}
	}
	return schema, nil
}

func parseKind(s string) (domain.FieldKind, error) {
	switch s {
	case "", "string":
		return domain.KindString, nil
	case "int":
		return domain.KindInt, nil
	case "bool":
		return domain.KindBool, nil
	case "enum":
		return domain.KindEnum, nil
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

package settings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bft-labs/golive/internal/domain"
)

// Result is the outcome of a merge. Resolved is always populated with what
// could be merged; Problems lists everything the user has to correct.
type Result struct {
	Resolved domain.ResolvedSettings
	Problems []domain.FieldError
}

// Err returns a *domain.ValidationError when the merge found problems.
func (r Result) Err() error {
	if len(r.Problems) == 0 {
		return nil
	}
	return &domain.ValidationError{Problems: append([]domain.FieldError(nil), r.Problems...)}
}

// Merger merges base settings with platform overrides.
type Merger struct {
	schemas map[domain.PlatformID]domain.FieldSchema
}

// NewMerger creates a merger for the given platform schemas. Enabled
// overrides for platforms without a schema are reported as problems.
func NewMerger(schemas map[domain.PlatformID]domain.FieldSchema) *Merger {
	cp := make(map[domain.PlatformID]domain.FieldSchema, len(schemas))
	for id, s := range schemas {
		cp[id] = s
	}
	return &Merger{schemas: cp}
}

// Merge resolves base and overrides into per-platform settings.
//
// A platform inherits title, category, resolution and max viewers from base
// unless its override sets UseCustomFields. Platform-exclusive fields are
// always contributed, after checking them against the platform schema.
// Disabled overrides are merged for display but not validated.
func (m *Merger) Merge(base domain.StreamSettings, overrides []domain.PlatformOverride) Result {
	res := Result{
		Resolved: domain.ResolvedSettings{
			Base:      base.Clone(),
			Platforms: make(map[domain.PlatformID]domain.PlatformSettings, len(overrides)),
		},
	}

	res.Problems = append(res.Problems, checkBase(base)...)

	counts := make(map[domain.PlatformID]int, len(overrides))
	for _, o := range overrides {
		counts[o.Platform]++
	}

	for _, o := range overrides {
		if o.Platform == "" {
			res.Problems = append(res.Problems, domain.FieldError{Field: "platform", Message: "override without platform"})
			continue
		}
		if counts[o.Platform] > 1 {
			// Keep none of them so the outcome does not depend on order.
			continue
		}
		ps, problems := m.mergeOne(base, o)
		res.Resolved.Platforms[o.Platform] = ps
		res.Problems = append(res.Problems, problems...)
	}

	for id, n := range counts {
		if n > 1 && id != "" {
			res.Problems = append(res.Problems, domain.FieldError{Platform: id, Field: "platform", Message: "duplicate override"})
		}
	}

	if len(res.Resolved.Enabled()) == 0 {
		res.Problems = append(res.Problems, domain.FieldError{Field: "platforms", Message: "no platform enabled"})
	}

	sortProblems(res.Problems)
	return res
}

func checkBase(base domain.StreamSettings) []domain.FieldError {
	var out []domain.FieldError
	if base.Visibility.Secret && strings.TrimSpace(base.Visibility.Password) == "" {
		out = append(out, domain.FieldError{Field: "password", Message: "is required for a secret room"})
	}
	if base.Audience.MinRank < 0 {
		out = append(out, domain.FieldError{Field: "minRank", Message: "must not be negative"})
	}
	if base.MaxViewers < 0 {
		out = append(out, domain.FieldError{Field: domain.FieldMaxViewers, Message: "must not be negative"})
	}
	return out
}

func (m *Merger) mergeOne(base domain.StreamSettings, o domain.PlatformOverride) (domain.PlatformSettings, []domain.FieldError) {
	ps := domain.PlatformSettings{
		Platform:   o.Platform,
		Enabled:    o.Enabled,
		Required:   o.Required,
		Title:      base.Title,
		Category:   base.Category,
		Resolution: base.Resolution,
		MaxViewers: base.MaxViewers,
		Visibility: base.Visibility,
		Audience:   base.Audience,
		Fields:     make(map[string]any),
	}

	schema, known := m.schemas[o.Platform]
	var problems []domain.FieldError
	report := func(field, msg string) {
		if o.Enabled {
			problems = append(problems, domain.FieldError{Platform: o.Platform, Field: field, Message: msg})
		}
	}

	if !known {
		report("platform", "no adapter registered")
	}

	for key, raw := range o.Fields {
		if isShared(key) {
			if !o.UseCustomFields {
				continue
			}
			spec, ok := schema[key]
			if !ok {
				spec = domain.FieldSpec{Kind: sharedKind(key)}
			}
			if err := applyShared(&ps, key, spec, raw); err != nil {
				report(key, err.Error())
			}
			continue
		}

		spec, ok := schema[key]
		if !ok {
			if known {
				report(key, "unknown field")
			}
			continue
		}
		v, err := coerce(spec, raw)
		if err != nil {
			report(key, err.Error())
			continue
		}
		ps.Fields[key] = v
	}

	if o.Enabled {
		if strings.TrimSpace(ps.Title) == "" {
			report(domain.FieldTitle, "is required")
		}
		problems = append(problems, checkSharedAgainstSchema(ps, schema)...)
		for key, spec := range schema {
			if isShared(key) || !spec.Required {
				continue
			}
			if v, ok := ps.Fields[key]; !ok || isEmpty(v) {
				report(key, "is required")
			}
		}
	}

	return ps, problems
}

func isShared(key string) bool {
	switch key {
	case domain.FieldTitle, domain.FieldCategory, domain.FieldResolution, domain.FieldMaxViewers:
		return true
	}
	return false
}

// applyShared replaces one shared value from a custom-fields override.
func applyShared(ps *domain.PlatformSettings, key string, spec domain.FieldSpec, raw any) error {
	v, err := coerce(spec, raw)
	if err != nil {
		return err
	}
	switch key {
	case domain.FieldTitle:
		ps.Title = fmt.Sprint(v)
	case domain.FieldCategory:
		ps.Category = fmt.Sprint(v)
	case domain.FieldResolution:
		ps.Resolution = fmt.Sprint(v)
	case domain.FieldMaxViewers:
		n, err := toInt(v)
		if err != nil {
			return err
		}
		ps.MaxViewers = n
	}
	return nil
}

func sharedKind(key string) domain.FieldKind {
	if key == domain.FieldMaxViewers {
		return domain.KindInt
	}
	return domain.KindString
}

// checkSharedAgainstSchema applies platform constraints (enum options,
// bounds, required) to the resolved shared values.
func checkSharedAgainstSchema(ps domain.PlatformSettings, schema domain.FieldSchema) []domain.FieldError {
	values := map[string]any{
		domain.FieldTitle:      ps.Title,
		domain.FieldCategory:   ps.Category,
		domain.FieldResolution: ps.Resolution,
		domain.FieldMaxViewers: ps.MaxViewers,
	}
	var out []domain.FieldError
	for key, v := range values {
		spec, ok := schema[key]
		if !ok {
			continue
		}
		if isEmpty(v) {
			if spec.Required && key != domain.FieldTitle {
				out = append(out, domain.FieldError{Platform: ps.Platform, Field: key, Message: "is required"})
			}
			continue
		}
		if _, err := coerce(spec, v); err != nil {
			out = append(out, domain.FieldError{Platform: ps.Platform, Field: key, Message: err.Error()})
		}
	}
	return out
}

func sortProblems(p []domain.FieldError) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Platform != p[j].Platform {
			return p[i].Platform < p[j].Platform
		}
		if p[i].Field != p[j].Field {
			return p[i].Field < p[j].Field
		}
		return p[i].Message < p[j].Message
	})
}

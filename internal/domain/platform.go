package domain

import (
	"reflect"
	"sort"
)

// PlatformID identifies a streaming destination (e.g. "twitch", "flextv").
type PlatformID string

// SortPlatformIDs sorts ids in place.
func SortPlatformIDs(ids []PlatformID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// PlatformOverride customizes one platform for an attempt.
// A disabled override is never activated but still shows up in the merged view.
type PlatformOverride struct {
	Platform PlatformID
	Enabled  bool

	// Required platforms abort the attempt when they fail; optional ones
	// (e.g. multistream secondaries) are tolerated.
	Required bool

	// UseCustomFields lets the override replace the shared title, category
	// and resolution instead of inheriting them from the base settings.
	UseCustomFields bool

	// Fields are platform specific values validated against the
	// platform's FieldSchema.
	Fields map[string]any
}

// Clone returns a deep copy of o.
func (o PlatformOverride) Clone() PlatformOverride {
	out := o
	out.Fields = cloneFields(o.Fields)
	return out
}

// FieldKind is the value type accepted for a platform field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindBool
	KindEnum
)

// String returns the kind name.
func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// FieldSpec describes one accepted platform field.
type FieldSpec struct {
	Kind     FieldKind
	Required bool

	// Options lists the accepted values of a KindEnum field.
	Options []string

	// Min and Max bound KindInt fields when Max > 0; without a Max, a
	// non-zero Min is a lower bound on its own.
	Min int
	Max int
}

// FieldSchema is the set of fields a platform accepts, keyed by field name.
// Shared field names (title, category, resolution, maxViewers) may appear to
// constrain the shared values for that platform.
type FieldSchema map[string]FieldSpec

// PlatformDefaults is what a platform reports during prepopulation: either
// the settings of a broadcast that is already live or the platform defaults.
type PlatformDefaults struct {
	Title    string
	Category string
	Fields   map[string]any

	// Live reports an already running broadcast being resumed.
	Live bool
}

// PlatformSettings is the resolved configuration for a single platform.
type PlatformSettings struct {
	Platform   PlatformID
	Enabled    bool
	Required   bool
	Title      string
	Category   string
	Resolution string
	MaxViewers int
	Visibility Visibility
	Audience   Audience

	// Fields are the platform-exclusive values.
	Fields map[string]any
}

// Equal reports whether two resolved settings are identical.
func (p PlatformSettings) Equal(other PlatformSettings) bool {
	return reflect.DeepEqual(p.normalized(), other.normalized())
}

func (p PlatformSettings) normalized() PlatformSettings {
	if len(p.Fields) == 0 {
		p.Fields = nil
	}
	return p
}

// Clone returns a deep copy of p.
func (p PlatformSettings) Clone() PlatformSettings {
	out := p
	out.Fields = cloneFields(p.Fields)
	return out
}

// ResolvedSettings is the merge of base settings with every override.
type ResolvedSettings struct {
	Base      StreamSettings
	Platforms map[PlatformID]PlatformSettings
}

// Enabled returns the enabled platform IDs in order.
func (r ResolvedSettings) Enabled() []PlatformID {
	ids := make([]PlatformID, 0, len(r.Platforms))
	for id, p := range r.Platforms {
		if p.Enabled {
			ids = append(ids, id)
		}
	}
	SortPlatformIDs(ids)
	return ids
}

func cloneFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

package domain

// Shared field names. A platform override only replaces these when it sets
// UseCustomFields.
const (
	FieldTitle      = "title"
	FieldCategory   = "category"
	FieldResolution = "resolution"
	FieldMaxViewers = "maxViewers"
)

// Visibility controls who can enter the broadcast.
type Visibility struct {
	// Secret marks a password protected room.
	Secret bool

	// Password is the room credential; required when Secret is set.
	Password string
}

// Audience gates the broadcast by age or viewer rank.
type Audience struct {
	AdultOnly bool

	// MinRank is the minimum viewer rank allowed in; 0 disables the gate.
	MinRank int
}

// StreamSettings is the value a user submits for one go-live attempt.
// Once handed to the orchestrator it is never mutated; a new attempt
// submits a new value.
type StreamSettings struct {
	Title      string
	Category   string
	Resolution string
	Visibility Visibility
	Audience   Audience

	// MaxViewers caps concurrent viewers; 0 means platform default.
	MaxViewers int

	// Overrides holds per-platform overrides keyed by platform.
	Overrides map[PlatformID]PlatformOverride
}

// Clone returns a deep copy of s.
func (s StreamSettings) Clone() StreamSettings {
	out := s
	if s.Overrides != nil {
		out.Overrides = make(map[PlatformID]PlatformOverride, len(s.Overrides))
		for id, o := range s.Overrides {
			out.Overrides[id] = o.Clone()
		}
	}
	return out
}

// OverrideList returns the overrides in platform order.
func (s StreamSettings) OverrideList() []PlatformOverride {
	ids := make([]PlatformID, 0, len(s.Overrides))
	for id := range s.Overrides {
		ids = append(ids, id)
	}
	SortPlatformIDs(ids)

	out := make([]PlatformOverride, 0, len(ids))
	for _, id := range ids {
		o := s.Overrides[id]
		if o.Platform == "" {
			o.Platform = id
		}
		out = append(out, o)
	}
	return out
}

// Package settings resolves the stream settings of a go-live attempt.
//
// [Merger] combines base [domain.StreamSettings] with per-platform overrides
// into one [domain.ResolvedSettings]. Each platform declares a
// [domain.FieldSchema]; override fields are checked and normalized against
// it. Problems are returned as a structured [Result], never panicked, so the
// orchestrator can map them onto checklist failures.
//
// Merging is deterministic and independent of override order: every override
// writes only its own platform namespace, and problems are sorted.
package settings

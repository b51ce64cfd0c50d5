// Package lesson defines the typed data model shared by every stage of the
// lessons-learned analysis pipeline.
//
// A Document is the raw input read from disk. A Record is the structured
// result of extracting a Document; it is recomputed on every run and never
// persisted on its own. Analysis bundles a Record with its validation result
// and scores, and is the unit folded into a run's batch.
//
// # Invariants
//
//   - Every Record maps to exactly one source file (Record.Path).
//   - ValidationResult.Valid holds if and only if Errors is empty; build
//     results with NewValidationResult to keep the two in sync.
//   - Scores and impact metric values are clamped into [0, 100] with Clamp.
//   - Record.Categories is never empty once categorized (defaults to
//     "general").
package lesson

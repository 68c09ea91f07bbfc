// Package pipeline orchestrates a run: change detection, extraction,
// cleaning, merging, loading, and notification. The orchestrator owns
// the stage ordering and the failure policy; the stages themselves
// live in their own packages behind small interfaces.
package pipeline

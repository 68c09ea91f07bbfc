// Package notify delivers run summaries. Delivery is best effort:
// a failed notification is logged, never propagated as a run failure.
package notify

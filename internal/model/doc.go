// Package model defines the core data types of the imports pipeline:
// the normalized freight import Record and its composite identity key,
// the per-run Checkpoint persisted after each successful run, and the
// run Summary delivered over the notification channel.
package model

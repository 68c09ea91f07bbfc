// Package source is the HTTP client for the remote bulk imports
// endpoint. It exposes exactly the two operations the pipeline needs:
// a lightweight metadata probe (HEAD, for change detection) and a
// streaming download of the compressed payload to a staging file.
package source

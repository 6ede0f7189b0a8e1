// Package filestore implements TaskGate persistence on the local
// filesystem: the approval snapshot, append-only JSONL logs and the CSV
// prompt datasets used for router curation.
package filestore

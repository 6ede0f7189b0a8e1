// Package routecache implements the cache port for prompt-match results:
// an in-process ristretto L1, a NATS JetStream KV L2 shared between
// replicas, and a tiered combination of both.
package routecache

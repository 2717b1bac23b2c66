// Package resilience wraps calls to optional upstream services with retry
// and circuit breaking so a struggling dependency degrades the pipeline
// instead of stalling it.
//
// The recognition-service client is the main consumer: transient failures
// are retried with exponential backoff, and repeated failures open a
// circuit that skips the service entirely until a cooldown passes.
package resilience

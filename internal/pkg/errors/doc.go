// Package errors provides structured application errors with HTTP status
// mapping. The codes cover both generic request failures and the evaluation
// workflow's own taxonomy (precondition, configuration, remote, sequence,
// not-ready).
package errors

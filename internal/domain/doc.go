// Package domain contains the core types of the evaluation workflow: trace
// candidates and normalized details, per-aggregation fetch state, evaluation
// sessions and kinds, prompt templates, scores and audit entries.
package domain

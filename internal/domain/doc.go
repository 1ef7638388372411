// Package domain contains the trace model recorded by X-Ray.
//
// # Key Entities
//
//   - Execution: one end-to-end pipeline run, the root of the trace hierarchy
//   - Step: one stage within an execution, sealed once it ends
//   - Artifact: a labeled intermediate value attached to a step
//   - Evaluation: a pass/fail judgment about one artifact, with criteria
//
// The JSON encoding of these types is the wire format consumed by the UI.
// Timestamps are milliseconds since the Unix epoch.
package domain

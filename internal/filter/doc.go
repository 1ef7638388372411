// Package filter narrows a list of schema-free records to those matching a
// natural language intent.
//
// The engine infers a schema from the records, asks a Reasoner for
// declarative rules over that schema, applies every rule to every record and
// records a per-item, per-rule audit trail on the current step:
//
//   - "Candidate Evaluations": one row per item with its metrics, each rule's
//     verdict and detail, and whether the item qualified
//   - "Filter Logic": the schema, the generated rules and the drop count,
//     evaluated with the single criterion "Filter Applied"
//
// The engine never widens its output when nothing qualifies.
package filter

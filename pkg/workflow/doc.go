// Package workflow models automation-workflow definition records and provides
// the file-backed persistence collaborator used by the classification engine.
//
// A record is parsed once from its JSON document and never mutated afterwards.
// The parsed form keeps the raw top-level fields so that presence and shape
// checks (a missing "nodes" key versus a "nodes" key holding an object) can be
// made by the validator, and so that write-back of an updated meta block keeps
// every other field intact.
//
// Documents that cannot be read as a JSON object at all surface as *ParseError.
package workflow

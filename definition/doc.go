// Package definition models persisted agent definitions: the composition
// kind, model parameters, tool references and kind-specific configuration an
// operator stores for each reusable agent. Definitions are looked up through
// the Store interface (owned by a persistence collaborator); the in-memory
// implementation exists for tests, examples and embedded use.
//
// A definition loaded for a run is an immutable snapshot: Store
// implementations return copies, so a concurrent edit never affects an
// in-flight execution.
package definition

// Package plan turns stored agent definitions into executable plans. The
// resolver walks definition references depth-first, detects cycles and
// over-deep nesting, merges tool catalogs down the tree and materializes an
// immutable node tree the engine interprets. A version-checking cache makes
// repeated resolution of unchanged definitions cheap.
package plan

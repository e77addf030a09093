// Package manifest handles parsing and validation of the Move.toml project
// manifest. Besides the standard Move sections ([package], [dependencies],
// [addresses]) it reads the [ika] table, a lookup of named command strings
// used by the end-to-end test phase. Validation runs against an embedded
// JSON Schema.
package manifest

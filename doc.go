/*
Package zadm provides primitives for managing zone configurations on a host.

A zone's persisted configuration is a flat set of attribute records: name,
declared type and string value. zadm presents that store as a structured,
brand-aware configuration document, reconciling the two views in both
directions.

Data Model

A Record is the storage primitive: a flat name/type/value attribute.  List
valued properties are stored as multiple records with numeric name suffixes
denoting slot order.

A Config is the structured view: property names mapped to typed values.  It
is what an operator edits, as pretty-printed JSON (comments and trailing
commas tolerated on the way back in).

A Brand selects the schema governing which properties are recognized, their
types and their defaults.  Properties no brand recognizes pass through every
operation untouched, so operators can tag zones with attributes zadm does
not understand.

A Session turns a candidate configuration into a validated, committed one or
safely discards it, restoring the pre-session serialized state if the store
changed underneath it.

All interaction with the host's management binaries goes through the
pkg/runner boundary, so the engine itself never spawns processes.
*/
package zadm

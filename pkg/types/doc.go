// Package types defines the shared domain model of the storage fabric:
// data objects, access records, migrations, replicas, and the analysis
// structures produced by the placement optimizer and replication manager.
//
// All entity types carry JSON tags so snapshots can be relayed unchanged
// to the surrounding API and event layers.
package types

// Package state persists follow snapshots, identity health, and run
// summaries through a pluggable key-value backend. The bundled FileKV
// writes atomically so interrupted runs never corrupt prior state.
package state

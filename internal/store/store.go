// Package store persists the deposition history of a metadynamics run.
//
// The canonical on-disk record is the tab-separated hills log, compatible
// with the grid-free analysis workflow: an ordered, append-only sequence of
// (timestep, height, center, sigma) rows sufficient to reconstruct the bias
// potential exactly by replay. A SQLite backend stores the same sequence in
// a queryable form for post-run analysis, and a memory backend serves tests.
package store

import "fmt"

// Record is one deposition: the well-tempered height actually deposited and
// the hill center and width per collective variable, in registration order.
type Record struct {
	Step    uint64
	Height  float64
	Centers []float64
	Sigmas  []float64
}

// HillLog records depositions in order. Implementations append one record
// per deposited hill and replay them in deposition order. A nil *FileHillLog
// or *SQLiteHillLog from a constructor is never returned together with a nil
// error; callers that run without persistence use a MemoryHillLog or skip
// logging entirely.
type HillLog interface {
	// Append records one deposition. The record's slices are copied.
	Append(rec Record) error

	// Records returns the full deposition history in order.
	Records() ([]Record, error)

	// Names returns the collective-variable names the log was opened with,
	// in registration order.
	Names() []string

	Close() error
}

// validateRecord checks a record against the log's variable count.
func validateRecord(rec Record, names []string) error {
	if len(rec.Centers) != len(names) || len(rec.Sigmas) != len(names) {
		return fmt.Errorf("store: record has %d centers and %d sigmas for %d variables",
			len(rec.Centers), len(rec.Sigmas), len(names))
	}
	return nil
}

func copyRecord(rec Record) Record {
	return Record{
		Step:    rec.Step,
		Height:  rec.Height,
		Centers: append([]float64(nil), rec.Centers...),
		Sigmas:  append([]float64(nil), rec.Sigmas...),
	}
}

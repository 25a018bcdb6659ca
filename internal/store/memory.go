package store

// MemoryHillLog keeps the deposition history in memory. It backs runs
// without a hills file and keeps tests free of filesystem setup.
type MemoryHillLog struct {
	names   []string
	records []Record
}

// NewMemoryHillLog creates an in-memory hill log for the given variables.
func NewMemoryHillLog(names []string) *MemoryHillLog {
	return &MemoryHillLog{names: append([]string(nil), names...)}
}

// Append implements HillLog.
func (m *MemoryHillLog) Append(rec Record) error {
	if err := validateRecord(rec, m.names); err != nil {
		return err
	}
	m.records = append(m.records, copyRecord(rec))
	return nil
}

// Records implements HillLog.
func (m *MemoryHillLog) Records() ([]Record, error) {
	out := make([]Record, len(m.records))
	for i, r := range m.records {
		out[i] = copyRecord(r)
	}
	return out, nil
}

// Names implements HillLog.
func (m *MemoryHillLog) Names() []string { return m.names }

// Close implements HillLog.
func (m *MemoryHillLog) Close() error { return nil }

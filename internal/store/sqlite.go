package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteHillLog stores the deposition history in a SQLite database for
// post-run analysis. The insertion-ordered rowid preserves deposition order;
// center and sigma tuples are stored as JSON arrays.
type SQLiteHillLog struct {
	names []string
	db    *sql.DB
}

const hillsSchema = `
CREATE TABLE IF NOT EXISTS variables (
	idx  INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS hills (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	step    INTEGER NOT NULL,
	height  REAL NOT NULL,
	centers TEXT NOT NULL,
	sigmas  TEXT NOT NULL
);
`

// NewSQLiteHillLog opens (or creates) a hill database at path. When the
// database already holds a variable set it must match names exactly;
// otherwise the set is recorded.
func NewSQLiteHillLog(path string, names []string) (*SQLiteHillLog, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("store: opening hill database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with a single writer

	if _, err := db.Exec(hillsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initializing hill schema: %w", err)
	}

	stored, err := storedNames(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(stored) == 0 {
		for i, name := range names {
			if _, err := db.Exec(`INSERT INTO variables (idx, name) VALUES (?, ?)`, i, name); err != nil {
				db.Close()
				return nil, fmt.Errorf("store: recording variable set: %w", err)
			}
		}
	} else if !equalNames(stored, names) {
		db.Close()
		return nil, fmt.Errorf("store: hill database %s was created for variables %v, not %v",
			path, stored, names)
	}

	return &SQLiteHillLog{names: append([]string(nil), names...), db: db}, nil
}

func storedNames(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM variables ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("store: reading variable set: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: reading variable set: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Append implements HillLog.
func (s *SQLiteHillLog) Append(rec Record) error {
	if err := validateRecord(rec, s.names); err != nil {
		return err
	}

	centers, err := json.Marshal(rec.Centers)
	if err != nil {
		return fmt.Errorf("store: encoding centers: %w", err)
	}
	sigmas, err := json.Marshal(rec.Sigmas)
	if err != nil {
		return fmt.Errorf("store: encoding sigmas: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO hills (step, height, centers, sigmas) VALUES (?, ?, ?, ?)`,
		int64(rec.Step), rec.Height, string(centers), string(sigmas))
	if err != nil {
		return fmt.Errorf("store: inserting hill: %w", err)
	}
	return nil
}

// Records implements HillLog, returning hills in deposition order.
func (s *SQLiteHillLog) Records() ([]Record, error) {
	rows, err := s.db.Query(`SELECT step, height, centers, sigmas FROM hills ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: querying hills: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			step            int64
			height          float64
			centers, sigmas string
		)
		if err := rows.Scan(&step, &height, &centers, &sigmas); err != nil {
			return nil, fmt.Errorf("store: scanning hill: %w", err)
		}
		rec := Record{Step: uint64(step), Height: height}
		if err := json.Unmarshal([]byte(centers), &rec.Centers); err != nil {
			return nil, fmt.Errorf("store: decoding centers: %w", err)
		}
		if err := json.Unmarshal([]byte(sigmas), &rec.Sigmas); err != nil {
			return nil, fmt.Errorf("store: decoding sigmas: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Names implements HillLog.
func (s *SQLiteHillLog) Names() []string { return s.names }

// Close implements HillLog.
func (s *SQLiteHillLog) Close() error { return s.db.Close() }

package store

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/csadorf/metadynamics-plugin/internal/constants"
)

// FileHillLog appends depositions to a tab-separated hills log:
//
//	timestep	W	<name>	sigma_<name>	...
//	5000	0.7304026910	0.2993401121	0.05	...
//
// one column pair per collective variable in registration order, values with
// 10 significant digits. An existing file is appended to unless overwrite is
// requested; the header is only written for a fresh file.
type FileHillLog struct {
	names []string
	path  string
	file  *os.File
	w     *bufio.Writer
}

// NewFileHillLog opens (or creates) the hills log at path for the given
// variables. Appending to an existing log requires the same variable set as
// its header; an empty existing file gets a fresh header.
func NewFileHillLog(path string, names []string, overwrite bool) (*FileHillLog, error) {
	_, statErr := os.Stat(path)
	appending := statErr == nil && !overwrite

	if appending {
		existing, err := readHillsHeader(path)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			appending = false
		} else if !equalNames(existing, names) {
			return nil, fmt.Errorf("store: hills log %s records variables %v, cannot append %v",
				path, existing, names)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appending {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, constants.HillsFileMode)
	if err != nil {
		return nil, fmt.Errorf("store: opening hills log: %w", err)
	}

	l := &FileHillLog{
		names: append([]string(nil), names...),
		path:  path,
		file:  f,
		w:     bufio.NewWriter(f),
	}

	if !appending {
		if err := l.writeHeader(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return l, nil
}

func (l *FileHillLog) writeHeader() error {
	cols := []string{"timestep", "W"}
	for _, name := range l.names {
		cols = append(cols, name, "sigma_"+name)
	}
	if _, err := l.w.WriteString(strings.Join(cols, constants.HillsDelimiter) + "\n"); err != nil {
		return fmt.Errorf("store: writing hills header: %w", err)
	}
	return l.w.Flush()
}

// Append implements HillLog. Each record is flushed immediately so the log
// survives a crashed run up to the last deposition.
func (l *FileHillLog) Append(rec Record) error {
	if err := validateRecord(rec, l.names); err != nil {
		return err
	}

	cols := []string{
		strconv.FormatUint(rec.Step, 10),
		fmt.Sprintf(constants.FloatFormat, rec.Height),
	}
	for i := range l.names {
		cols = append(cols,
			fmt.Sprintf(constants.FloatFormat, rec.Centers[i]),
			fmt.Sprintf(constants.FloatFormat, rec.Sigmas[i]))
	}
	if _, err := l.w.WriteString(strings.Join(cols, constants.HillsDelimiter) + "\n"); err != nil {
		return fmt.Errorf("store: writing hills record: %w", err)
	}
	return l.w.Flush()
}

// Records implements HillLog by re-reading the log file.
func (l *FileHillLog) Records() ([]Record, error) {
	records, _, err := ReadHillsFile(l.path)
	return records, err
}

// Names implements HillLog.
func (l *FileHillLog) Names() []string { return l.names }

// Close implements HillLog.
func (l *FileHillLog) Close() error {
	if err := l.w.Flush(); err != nil {
		l.file.Close()
		return fmt.Errorf("store: flushing hills log: %w", err)
	}
	return l.file.Close()
}

// ReadHillsFile parses a hills log and returns its records in deposition
// order together with the collective-variable names from the header.
func ReadHillsFile(path string) ([]Record, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("store: opening hills log: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, nil, fmt.Errorf("store: reading hills log: %w", err)
		}
		return nil, nil, fmt.Errorf("store: hills log %s is empty", path)
	}

	names, err := parseHillsHeader(sc.Text())
	if err != nil {
		return nil, nil, fmt.Errorf("store: hills log %s: %w", path, err)
	}

	var records []Record
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rec, err := parseHillsRow(line, len(names))
		if err != nil {
			return nil, nil, fmt.Errorf("store: hills log %s line %d: %w", path, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: reading hills log: %w", err)
	}
	return records, names, nil
}

// readHillsHeader returns the variable names from an existing log's header,
// or nil for an empty file.
func readHillsHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: opening hills log: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("store: reading hills log: %w", err)
		}
		return nil, nil
	}
	names, err := parseHillsHeader(sc.Text())
	if err != nil {
		return nil, fmt.Errorf("store: hills log %s: %w", path, err)
	}
	return names, nil
}

func parseHillsHeader(line string) ([]string, error) {
	cols := strings.Split(line, constants.HillsDelimiter)
	if len(cols) < 4 || cols[0] != "timestep" || cols[1] != "W" || len(cols)%2 != 0 {
		return nil, fmt.Errorf("malformed header %q", line)
	}
	var names []string
	for i := 2; i < len(cols); i += 2 {
		name := cols[i]
		if cols[i+1] != "sigma_"+name {
			return nil, fmt.Errorf("malformed header column %q, want %q", cols[i+1], "sigma_"+name)
		}
		names = append(names, name)
	}
	return names, nil
}

func parseHillsRow(line string, ncv int) (Record, error) {
	cols := strings.Split(line, constants.HillsDelimiter)
	if len(cols) != 2+2*ncv {
		return Record{}, fmt.Errorf("expected %d columns, got %d", 2+2*ncv, len(cols))
	}

	step, err := strconv.ParseUint(cols[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad timestep %q", cols[0])
	}
	height, err := strconv.ParseFloat(cols[1], 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad height %q", cols[1])
	}

	rec := Record{
		Step:    step,
		Height:  height,
		Centers: make([]float64, ncv),
		Sigmas:  make([]float64, ncv),
	}
	for i := 0; i < ncv; i++ {
		if rec.Centers[i], err = strconv.ParseFloat(cols[2+2*i], 64); err != nil {
			return Record{}, fmt.Errorf("bad center %q", cols[2+2*i])
		}
		if rec.Sigmas[i], err = strconv.ParseFloat(cols[3+2*i], 64); err != nil {
			return Record{}, fmt.Errorf("bad sigma %q", cols[3+2*i])
		}
	}
	return rec, nil
}

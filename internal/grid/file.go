package grid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/csadorf/metadynamics-plugin/internal/constants"
)

// Grid file format, bit-exact for restart compatibility:
//
//	#ncv: <n>
//	#cv: <name> <min> <max> <points>      (one line per axis, registration order)
//	<value>                               (one node per line, row-major order)
//
// Floats are written in Go's shortest round-trip representation, so a parsed
// value reproduces the stored float64 exactly. Load rejects any header that
// does not match the live axes exactly; a rejected load leaves the grid
// contents untouched.

// Save writes the grid to w in the restart file format.
func (g *Grid) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "#ncv: %d\n", g.Dimension())
	for _, a := range g.axes {
		fmt.Fprintf(bw, "#cv: %s %s %s %d\n",
			a.Name, formatFloat(a.Min), formatFloat(a.Max), a.Points)
	}
	for _, v := range g.data {
		bw.WriteString(formatFloat(v))
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// SaveFile writes the grid to path. The file is written to a temporary
// sibling first and renamed into place, so a failed dump never leaves a
// truncated grid file behind.
func (g *Grid) SaveFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("grid: creating dump file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := g.Save(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("grid: writing dump file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("grid: closing dump file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), constants.GridFileMode); err != nil {
		return fmt.Errorf("grid: setting dump file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("grid: renaming dump file: %w", err)
	}
	return nil
}

// Load replaces the grid contents with the values read from r. The header
// must match the live axes exactly: same dimensionality, names, ranges, and
// point counts. On any error the previous contents are left untouched.
func (g *Grid) Load(r io.Reader) error {
	axes, values, err := parse(r)
	if err != nil {
		return err
	}
	if len(axes) != g.Dimension() {
		return fmt.Errorf("%w: file has %d collective variables, grid has %d",
			ErrFormat, len(axes), g.Dimension())
	}
	for i, a := range g.axes {
		if axes[i] != a {
			return fmt.Errorf("%w: axis %q declared as %s %s %s %d, live configuration is %s %s %s %d",
				ErrFormat, a.Name,
				axes[i].Name, formatFloat(axes[i].Min), formatFloat(axes[i].Max), axes[i].Points,
				a.Name, formatFloat(a.Min), formatFloat(a.Max), a.Points)
		}
	}

	copy(g.data, values)
	return nil
}

// Read parses a grid file into a new Grid with the axes the file declares.
func Read(r io.Reader) (*Grid, error) {
	axes, values, err := parse(r)
	if err != nil {
		return nil, err
	}
	g, err := New(axes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	copy(g.data, values)
	return g, nil
}

// ReadFile parses the grid file at path into a new Grid.
func ReadFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid: opening grid file: %w", err)
	}
	defer f.Close()
	g, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("grid: grid file %s: %w", path, err)
	}
	return g, nil
}

// parse reads the header and the full node array from r.
func parse(r io.Reader) ([]Axis, []float64, error) {
	sc := bufio.NewScanner(r)

	line, err := nextLine(sc)
	if err != nil {
		return nil, nil, err
	}
	var ncv int
	if _, err := fmt.Sscanf(line, "#ncv: %d", &ncv); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed #ncv header %q", ErrFormat, line)
	}
	if ncv < 1 {
		return nil, nil, fmt.Errorf("%w: file declares %d collective variables", ErrFormat, ncv)
	}

	axes := make([]Axis, ncv)
	n := 1
	for i := range axes {
		line, err := nextLine(sc)
		if err != nil {
			return nil, nil, err
		}
		axes[i], err = parseAxisLine(line)
		if err != nil {
			return nil, nil, err
		}
		if axes[i].Points < 1 {
			return nil, nil, fmt.Errorf("%w: axis %q declares %d points", ErrFormat, axes[i].Name, axes[i].Points)
		}
		n *= axes[i].Points
	}

	values := make([]float64, n)
	for i := range values {
		line, err := nextLine(sc)
		if err != nil {
			return nil, nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: bad value at node %d: %q", ErrFormat, i, line)
		}
		values[i] = v
	}

	return axes, values, nil
}

// LoadFile replaces the grid contents with the values stored at path.
func (g *Grid) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("grid: opening restart file: %w", err)
	}
	defer f.Close()
	if err := g.Load(f); err != nil {
		return fmt.Errorf("grid: restart file %s: %w", path, err)
	}
	return nil
}

func nextLine(sc *bufio.Scanner) (string, error) {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("grid: reading grid file: %w", err)
		}
		return "", fmt.Errorf("%w: premature end of file", ErrFormat)
	}
	return sc.Text(), nil
}

func parseAxisLine(line string) (Axis, error) {
	rest, ok := strings.CutPrefix(line, "#cv: ")
	if !ok {
		return Axis{}, fmt.Errorf("%w: malformed #cv header %q", ErrFormat, line)
	}
	fields := strings.Fields(rest)
	if len(fields) != 4 {
		return Axis{}, fmt.Errorf("%w: malformed #cv header %q", ErrFormat, line)
	}
	min, err1 := strconv.ParseFloat(fields[1], 64)
	max, err2 := strconv.ParseFloat(fields[2], 64)
	points, err3 := strconv.Atoi(fields[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return Axis{}, fmt.Errorf("%w: malformed #cv header %q", ErrFormat, line)
	}
	return Axis{Name: fields[0], Min: min, Max: max, Points: points}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

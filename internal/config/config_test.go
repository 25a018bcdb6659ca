package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const validRun = `
engine:
  dt: 0.005
  height: 1.0
  stride: 100
  delta_t: standard
  hills_file: hills.log
  add_hills: true
system:
  species: [A, B]
variables:
  - kind: lamellar
    sigma: 0.05
    grid: {min: -2.0, max: 2.0, points: 400}
    amplitudes: {A: 1.0, B: -1.0}
    lattice_vectors: [[0, 0, 3]]
    phases: [0.0]
logging:
  level: debug
`

func writeRun(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing run file: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	c, err := Load(writeRun(t, validRun))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !math.IsInf(float64(c.Engine.DeltaT), 1) {
		t.Errorf("delta_t = %v, want +Inf for \"standard\"", c.Engine.DeltaT)
	}
	if c.Engine.Stride != 100 {
		t.Errorf("stride = %d, want 100", c.Engine.Stride)
	}
	if got := c.VariableNames(); len(got) != 1 || got[0] != "lamellar" {
		t.Errorf("VariableNames() = %v, want [lamellar]", got)
	}

	vars, umbrellas, err := c.BuildVariables()
	if err != nil {
		t.Fatalf("BuildVariables() error = %v", err)
	}
	if len(vars) != 1 || len(umbrellas) != 0 {
		t.Errorf("got %d variables and %d umbrellas, want 1 and 0", len(vars), len(umbrellas))
	}
	if g := vars[0].Grid(); g == nil || g.Points != 400 {
		t.Errorf("variable grid = %+v, want 400 points", g)
	}
}

func TestLoad_NumericDeltaT(t *testing.T) {
	run := strings.Replace(validRun, "delta_t: standard", "delta_t: 7.0", 1)
	c, err := Load(writeRun(t, run))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if float64(c.Engine.DeltaT) != 7.0 {
		t.Errorf("delta_t = %v, want 7.0", c.Engine.DeltaT)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "zero stride",
			mutate:  func(s string) string { return strings.Replace(s, "stride: 100", "stride: 0", 1) },
			wantErr: "stride",
		},
		{
			name:    "negative height",
			mutate:  func(s string) string { return strings.Replace(s, "height: 1.0", "height: -1.0", 1) },
			wantErr: "W must be positive",
		},
		{
			name:    "zero dt",
			mutate:  func(s string) string { return strings.Replace(s, "dt: 0.005", "dt: 0", 1) },
			wantErr: "dt must be positive",
		},
		{
			name:    "bad delta_t string",
			mutate:  func(s string) string { return strings.Replace(s, "delta_t: standard", "delta_t: sideways", 1) },
			wantErr: "delta_t",
		},
		{
			name:    "unknown variable kind",
			mutate:  func(s string) string { return strings.Replace(s, "kind: lamellar", "kind: gyroid", 1) },
			wantErr: "unknown kind",
		},
		{
			name:    "missing variable kind",
			mutate:  func(s string) string { return strings.Replace(s, "kind: lamellar", "name: lamellar", 1) },
			wantErr: "missing kind",
		},
		{
			name: "phase count mismatch",
			mutate: func(s string) string {
				return strings.Replace(s, "phases: [0.0]", "phases: [0.0, 1.0]", 1)
			},
			wantErr: "phase",
		},
		{
			name: "mixed grid and non-grid variables",
			mutate: func(s string) string {
				return strings.Replace(s, "logging:", `  - kind: lamellar
    name: second
    sigma: 0.05
    amplitudes: {A: 1.0, B: -1.0}
    lattice_vectors: [[0, 0, 2]]
    phases: [0.0]
logging:`, 1)
			},
			wantErr: "grid mode",
		},
		{
			name: "duplicate variable names",
			mutate: func(s string) string {
				return strings.Replace(s, "logging:", `  - kind: lamellar
    sigma: 0.05
    grid: {min: -2.0, max: 2.0, points: 400}
    amplitudes: {A: 1.0, B: -1.0}
    lattice_vectors: [[0, 0, 2]]
    phases: [0.0]
logging:`, 1)
			},
			wantErr: "duplicate",
		},
		{
			name: "amplitude for no species",
			mutate: func(s string) string {
				return strings.Replace(s, "amplitudes: {A: 1.0, B: -1.0}", "amplitudes: {A: 1.0}", 1)
			},
			wantErr: "amplitude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeRun(t, tt.mutate(validRun)))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestBuildVariables_Umbrella(t *testing.T) {
	run := strings.Replace(validRun, "phases: [0.0]",
		"phases: [0.0]\n    umbrella: {kappa: 2.0, at: 0.3}", 1)
	c, err := Load(writeRun(t, run))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, umbrellas, err := c.BuildVariables()
	if err != nil {
		t.Fatalf("BuildVariables() error = %v", err)
	}
	if len(umbrellas) != 1 {
		t.Fatalf("got %d umbrellas, want 1", len(umbrellas))
	}
}

func TestDefault_IsValidOnceVariablesAdded(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
	if !c.Engine.AddHills {
		t.Error("Default() should enable deposition")
	}
}

func TestDeltaT_MarshalRoundTrip(t *testing.T) {
	for _, d := range []DeltaT{DeltaT(math.Inf(1)), DeltaT(7.0)} {
		out, err := yaml.Marshal(d)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", d, err)
		}
		var back DeltaT
		if err := yaml.Unmarshal(out, &back); err != nil {
			t.Fatalf("Unmarshal(%q) error = %v", out, err)
		}
		if float64(back) != float64(d) {
			t.Errorf("round trip of %v gave %v", d, back)
		}
	}
}

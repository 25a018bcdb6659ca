package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/csadorf/metadynamics-plugin/internal/grid"
)

func newGridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Work with bias grid files",
	}
	cmd.AddCommand(newGridInspectCmd())
	return cmd
}

func newGridInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <grid-file>",
		Short: "Print the axes and value range of a grid file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, err := grid.ReadFile(args[0])
			if err != nil {
				return err
			}

			lo, hi := math.Inf(1), math.Inf(-1)
			nonzero := 0
			coords := make([]int, g.Dimension())
			ix := grid.NewIndex(pointCounts(g))
			for flat := 0; flat < g.NumElements(); flat++ {
				ix.Coordinates(flat, coords)
				v := g.At(coords)
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
				if v != 0 {
					nonzero++
				}
			}

			if jsonOut {
				type axisInfo struct {
					Name   string  `json:"name"`
					Min    float64 `json:"min"`
					Max    float64 `json:"max"`
					Points int     `json:"points"`
				}
				axes := make([]axisInfo, 0, g.Dimension())
				for _, a := range g.Axes() {
					axes = append(axes, axisInfo{a.Name, a.Min, a.Max, a.Points})
				}
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"axes":          axes,
					"nodes":         g.NumElements(),
					"nonzero_nodes": nonzero,
					"min_value":     lo,
					"max_value":     hi,
				})
			}

			fmt.Printf("%s:\n", args[0])
			for _, a := range g.Axes() {
				fmt.Printf("  axis %s: [%g, %g] x %d\n", a.Name, a.Min, a.Max, a.Points)
			}
			fmt.Printf("  nodes:   %d (%d nonzero)\n", g.NumElements(), nonzero)
			fmt.Printf("  values:  [%g, %g]\n", lo, hi)
			return nil
		},
	}
}

func pointCounts(g *grid.Grid) []int {
	counts := make([]int, g.Dimension())
	for i, a := range g.Axes() {
		counts[i] = a.Points
	}
	return counts
}

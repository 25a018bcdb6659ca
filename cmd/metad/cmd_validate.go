package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/csadorf/metadynamics-plugin/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <run-file>",
		Short: "Validate a run configuration",
		Long: `Validate a run configuration.

The full configuration is checked the way a starting simulation would:
engine parameters, every collective variable definition, and the grid
ranges. All errors a run would hit at startup are reported here.

Examples:
  metad validate run.yaml
  metad validate run.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			c, err := config.Load(args[0])
			if err != nil {
				return err
			}

			vars, umbrellas, err := c.BuildVariables()
			if err != nil {
				return err
			}
			gridMode := len(vars) > 0
			for _, v := range vars {
				if v.Grid() == nil {
					gridMode = false
				}
			}

			mode := "closed-form"
			if gridMode {
				mode = "grid"
			}
			deltaT := "standard"
			if !math.IsInf(float64(c.Engine.DeltaT), 1) {
				deltaT = fmt.Sprintf("%g", float64(c.Engine.DeltaT))
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
					"valid":     true,
					"mode":      mode,
					"variables": c.VariableNames(),
					"umbrellas": len(umbrellas),
					"stride":    c.Engine.Stride,
					"height":    c.Engine.Height,
					"delta_t":   deltaT,
				})
			}

			fmt.Printf("%s: valid\n", args[0])
			fmt.Printf("  mode:      %s\n", mode)
			fmt.Printf("  variables: %d\n", len(vars))
			for _, v := range vars {
				if g := v.Grid(); g != nil {
					fmt.Printf("    %s (sigma %g, grid [%g, %g] x %d)\n",
						v.Name(), v.Sigma(), g.Min, g.Max, g.Points)
				} else {
					fmt.Printf("    %s (sigma %g)\n", v.Name(), v.Sigma())
				}
			}
			fmt.Printf("  stride:    %d\n", c.Engine.Stride)
			fmt.Printf("  height:    %g\n", c.Engine.Height)
			fmt.Printf("  delta_t:   %s\n", deltaT)
			if len(umbrellas) > 0 {
				fmt.Printf("  umbrellas: %d\n", len(umbrellas))
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/csadorf/metadynamics-plugin/internal/config"
	"github.com/csadorf/metadynamics-plugin/internal/grid"
	"github.com/csadorf/metadynamics-plugin/internal/logging"
	"github.com/csadorf/metadynamics-plugin/internal/store"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <run-file>",
		Short: "Rebuild a bias grid from a deposition log",
		Long: `Rebuild a bias grid from a deposition log.

Every variable in the run file must define a grid range. The recorded
hills carry their deposited heights, well-tempered damping included, so
replaying is a plain summation onto the grid. The result is a restart
file for the same run configuration.

Examples:
  metad replay run.yaml --out bias.dat
  metad replay run.yaml --hills other.log --out bias.dat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hillsPath, _ := cmd.Flags().GetString("hills")
			outPath, _ := cmd.Flags().GetString("out")
			level, _ := cmd.Flags().GetString("log-level")
			log := logging.NewLogger(level, os.Stderr)

			c, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if hillsPath == "" {
				hillsPath = c.Engine.HillsFile
			}
			if hillsPath == "" {
				return fmt.Errorf("no deposition log: run file has no hills_file and --hills not given")
			}

			vars, _, err := c.BuildVariables()
			if err != nil {
				return err
			}
			if len(vars) == 0 {
				return fmt.Errorf("run file defines no collective variables")
			}
			axes := make([]grid.Axis, len(vars))
			for i, v := range vars {
				spec := v.Grid()
				if spec == nil {
					return fmt.Errorf("variable %q has no grid range, cannot replay onto a grid", v.Name())
				}
				axes[i] = grid.Axis{Name: v.Name(), Min: spec.Min, Max: spec.Max, Points: spec.Points}
			}
			g, err := grid.New(axes)
			if err != nil {
				return err
			}

			records, names, err := store.ReadHillsFile(hillsPath)
			if err != nil {
				return err
			}
			if len(names) != len(vars) {
				return fmt.Errorf("deposition log has %d variables, run file has %d", len(names), len(vars))
			}
			for i, name := range names {
				if name != vars[i].Name() {
					return fmt.Errorf("deposition log variable %d is %q, run file has %q", i, name, vars[i].Name())
				}
			}

			for i, rec := range records {
				log.Debug("replaying hill", "index", i, "step", rec.Step, "height", rec.Height)
				if err := g.Deposit(rec.Centers, rec.Height, rec.Sigmas); err != nil {
					return fmt.Errorf("replaying hill %d (step %d): %w", i, rec.Step, err)
				}
			}
			if err := g.SaveFile(outPath); err != nil {
				return err
			}

			fmt.Printf("replayed %d hills from %s onto %s\n", len(records), hillsPath, outPath)
			return nil
		},
	}

	cmd.Flags().String("hills", "", "Deposition log to replay (default: hills_file from the run file)")
	cmd.Flags().String("out", "bias.dat", "Output grid file")
	return cmd
}

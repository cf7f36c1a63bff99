package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-demindex"
)

var heightCmd = &cobra.Command{
	Use:   "height latitude longitude [latitude longitude...]",
	Short: "Get the elevation at one or more positions",
	Long: `Get the elevation at one or more positions from the finest tiles available.

Examples:
  demindex height --dir ./dem 35.3606 138.7274
  demindex height 35.3606 138.7274 35.6586 139.7454

Positions without data are reported as NaN.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%2 != 0 {
			return fmt.Errorf("expected pairs of latitude and longitude, got %d arguments", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		positions := make([]demindex.LatLon, 0, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			p, err := parsePosition(args[i], args[i+1])
			if err != nil {
				return err
			}
			positions = append(positions, p)
		}

		index, err := cfg.NewIndex()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for i, height := range index.Heights(positions) {
			if math.IsNaN(height) {
				fmt.Fprintf(w, "%s NaN\n", positions[i])
				continue
			}
			fmt.Fprintf(w, "%s %g\n", positions[i], height)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(heightCmd)
}

package main

import (
	"io"
	"os"

	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var mapCmd = &cobra.Command{
	Use:   "map minLon,minLat,maxLon,maxLat",
	Short: "Stitch the tiles covering a bounding box into a CSV grid",
	Long: `Stitch the tiles covering a bounding box into a single grid and write the
center and value of every cell as CSV.

The finest registry whose coverage of the bounding box reaches --coverage
is used. Cells without data are written as NaN.

Examples:
  demindex map 138.5,35.2,138.9,35.5 --output fuji.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := parseBBox(args[0])
		if err != nil {
			return err
		}
		crop, _ := cmd.Flags().GetBool("crop")

		index, err := cfg.NewIndex()
		if err != nil {
			return err
		}
		m, stats, err := index.CreateMap(field, cfg.Coverage)
		if err != nil {
			return err
		}
		if m == nil {
			return errors.Errorf("no registry covers %s with coverage %.2f", field, cfg.Coverage)
		}
		sigolo.Infof("Stitched %d of %d tiles into %s", stats.Contributed, stats.Requested, m)
		if crop {
			cropped, ok := m.Crop(field)
			if !ok {
				return errors.Errorf("%s does not overlap %s", field, m)
			}
			m = cropped
		}

		var w io.Writer = cmd.OutOrStdout()
		if output, _ := cmd.Flags().GetString("output"); output != "" && output != "-" {
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			defer file.Close()
			w = file
		}
		return m.WriteCSV(w)
	},
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().StringP("output", "o", "-", "Output file")
	mapCmd.Flags().Bool("crop", false, "Crop the map to the bounding box")
}

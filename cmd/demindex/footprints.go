package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-demindex"
)

var footprintsCmd = &cobra.Command{
	Use:   "footprints",
	Short: "Write the footprint of every tile as GeoJSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := cfg.NewIndex()
		if err != nil {
			return err
		}
		featureCollection := demindex.FootprintFeatureCollection(index.Footprints())
		return json.NewEncoder(cmd.OutOrStdout()).Encode(featureCollection)
	},
}

func init() {
	rootCmd.AddCommand(footprintsCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the registries and tiles found in a directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := cfg.NewIndex()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for i, registry := range index.Registries() {
			cols, rows := registry.MeshDimensions()
			fmt.Fprintf(w, "registry %d: %d tiles, tile size %s, mesh %dx%d, offset %s\n",
				i, registry.Len(), registry.TileSize(), cols, rows, registry.Offset())
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				fmt.Fprint(w, registry)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("verbose", "v", false, "List every tile")
}

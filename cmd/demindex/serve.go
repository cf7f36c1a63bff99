package main

import (
	"net/http"
	"time"

	"github.com/hauke96/sigolo/v2"
	"github.com/spf13/cobra"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 60 * time.Second
	idleTimeout  = 120 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start an HTTP server that provides endpoints for:
  - /height?lat=&lon= - Get the elevation at a position
  - /map?bbox=minLon,minLat,maxLon,maxLat[&coverage=] - Get a stitched CSV grid
  - /footprints - Get tile footprints as GeoJSON
  - /health - Health check endpoint
  - /metrics - Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := cfg.NewIndex()
		if err != nil {
			return err
		}
		httpServer := &http.Server{
			Addr:         cfg.Addr,
			Handler:      newRouter(index, cfg.Coverage),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		}
		sigolo.Infof("Starting server on %s", cfg.Addr)
		return httpServer.ListenAndServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}

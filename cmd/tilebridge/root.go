package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olablt/tilebridge/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tilebridge",
	Short: "Draw a WMTS or XYZ tile layer inside a host map",
	Long: `tilebridge renders a WMTS or XYZ tile source on a hidden offscreen map that
follows a host map's view, and draws the offscreen canvas into the host as a
single textured quad.

Examples:
  # Open a GL window with an OpenStreetMap layer over Riga
  tilebridge view --lon 24.1 --lat 56.95 --zoom 10

  # Show the offscreen canvas itself
  tilebridge preview --config layers/ortho.yaml

  # Render one view to PNG with a world file
  tilebridge snapshot --lon 139.75 --lat 35.68 --zoom 9 -o tokyo.png -w

  # Serve snapshots over HTTP
  tilebridge serve --port 8080`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tilebridge.yaml)")

	// Layer options
	pf.String("type", "XYZ", "layer type (WMTS|XYZ)")
	pf.StringP("url", "u", "", "tile URL template")
	pf.Int("width", 1024, "offscreen canvas width in pixels")
	pf.Int("height", 768, "offscreen canvas height in pixels")
	pf.Bool("debug", false, "draw generated coordinate tiles instead of fetching")
	pf.String("fallback", "", "draw coordinate tiles where a fetch fails (debug)")

	// View options
	pf.Float64("lon", 0, "center longitude")
	pf.Float64("lat", 0, "center latitude")
	pf.Float64("zoom", 2, "host zoom level")

	// HTTP options
	pf.String("user-agent", "tilebridge/1.0", "HTTP User-Agent header for tile requests")

	viper.BindPFlag("layer.type", pf.Lookup("type"))
	viper.BindPFlag("layer.tiles.url", pf.Lookup("url"))
	viper.BindPFlag("layer.width", pf.Lookup("width"))
	viper.BindPFlag("layer.height", pf.Lookup("height"))
	viper.BindPFlag("layer.fallback", pf.Lookup("fallback"))
	viper.BindPFlag("debug", pf.Lookup("debug"))
	viper.BindPFlag("view.lon", pf.Lookup("lon"))
	viper.BindPFlag("view.lat", pf.Lookup("lat"))
	viper.BindPFlag("view.zoom", pf.Lookup("zoom"))
	viper.BindPFlag("user-agent", pf.Lookup("user-agent"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tilebridge")
	}

	// TILEBRIDGE_LAYER_TILES_URL sets layer.tiles.url
	viper.SetEnvPrefix("tilebridge")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}

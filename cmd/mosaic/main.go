// Command-line interface for cropping multi-resolution tile pyramids and converting
// them to neuroglancer precomputed volumes.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/blang/semver"
	"github.com/urfave/cli/v2"

	"github.com/janelia-flyem/mosaic/config"
	"github.com/janelia-flyem/mosaic/crop"
	"github.com/janelia-flyem/mosaic/mosaic"
)

// Version is the semantic version of this tool.
var Version = semver.MustParse("0.3.0")

// TokenEnv names the environment variable holding the render-tile API token.
const TokenEnv = "MOSAIC_TOKEN"

func main() {
	app := cli.NewApp()

	app.Name = "mosaic"
	app.Usage = "crop and convert multi-resolution image pyramids"
	app.Version = Version.String()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"MOSAIC_CONFIG"},
			Usage:   "path to TOML configuration file",
		},
		&cli.StringFlag{
			Name:  "logfile",
			Usage: "write log messages to this file instead of stdout",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "log debug messages",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "crop",
			Usage:     "Render a region of a pyramid into out.png",
			ArgsUsage: "[URL]",
			Description: "URL is an OMERO.figure render_scaled_region URL such as\n" +
				"   /<z>/<t>/?c=1|0:65535$FF0000&region=0,0,1024,1024",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   ".",
					Usage:   "directory receiving out.png",
				},
				&cli.StringFlag{
					Name:  "source",
					Usage: "directory or bucket of tiles, overriding the configuration",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() > 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				return run(c, doCrop)
			},
		},
		{
			Name:  "precompute",
			Usage: "Convert stored tiles into a neuroglancer precomputed volume per channel",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "input",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "directory or bucket of tiles",
				},
				&cli.StringFlag{
					Name:     "output",
					Aliases:  []string{"o"},
					Required: true,
					Usage:    "directory or bucket receiving the volumes",
				},
				&cli.StringFlag{
					Name:  "encoding",
					Usage: "chunk encoding: auto, jpeg, png or raw",
				},
				&cli.BoolFlag{
					Name:  "overwrite",
					Usage: "rewrite chunks that already exist",
				},
			},
			Action: func(c *cli.Context) error {
				return run(c, doPrecompute)
			},
		},
		{
			Name:  "about",
			Usage: "Print the version",
			Action: func(c *cli.Context) error {
				fmt.Printf("mosaic %s\n", Version)
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// run loads the configuration, sets up logging and interrupt handling, and then
// runs a command, converting its error into an exit error.
func run(c *cli.Context, cmd func(ctx context.Context, c *cli.Context, cfg *config.Config) error) error {
	if c.Bool("verbose") {
		mosaic.Verbose = true
		mosaic.SetLogMode(mosaic.DebugMode)
	}
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if logfile := c.String("logfile"); logfile != "" {
		cfg.Logging.Logfile = logfile
	}
	cfg.Logging.SetLogger()
	defer mosaic.Shutdown()

	// Capture ctrl+c and other interrupts so in-flight loads and writes stop cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, c, cfg); err != nil {
		if crop.IsCanceled(err) {
			mosaic.Warningf("%s interrupted: %v\n", c.Command.Name, err)
			return cli.NewExitError(fmt.Sprintf("%s interrupted", c.Command.Name), 130)
		}
		mosaic.Errorf("%s failed: %v\n", c.Command.Name, err)
		return cli.NewExitError(err, 1)
	}
	return nil
}

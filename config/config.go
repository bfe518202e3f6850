/*
	Package config loads the TOML configuration shared by the crop and precompute
	commands.  Every setting has a working default, so a configuration file is only
	needed to change them.  A complete file looks like:

		[logging]
		logfile = "mosaic.log"   # relative paths are relative to this file
		max_log_size = 500       # MB
		max_log_age = 30         # days

		[source]
		ref = "tiles"            # directory or bucket of C-T-Z-L-Y-X tiles
		endpoint = ""            # render-tile API used instead of ref if set
		image = ""               # image id for the render-tile API
		tile_shape = [1024, 1024]
		levels = 1
		data_type = "uint16"

		[render]
		max_size = 2000
		concurrency = 8

		[precompute]
		encoding = "auto"        # auto, jpeg, png or raw
		jpeg_quality = 95
		gzip = false
		overwrite = false
		concurrency = 16
		resolution = [1.0, 1.0, 1.0]

		[cache]
		mb = 0                   # decoded tile cache, 0 disables

		[groupcache]
		mb = 0                   # encoded tile cache, 0 disables
*/
package config

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/mosaic/crop"
	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/precompute"
	"github.com/janelia-flyem/mosaic/storage"
)

// Config is the parsed TOML configuration.
type Config struct {
	Logging    mosaic.LogConfig
	Source     SourceConfig
	Render     RenderConfig
	Precompute PrecomputeConfig
	Cache      SizeConfig
	Groupcache SizeConfig
}

// SourceConfig selects where tiles are read.  Tile shape, levels and data type are
// only needed for render-tile API sources since stored tiles are indexed.
type SourceConfig struct {
	Ref       string
	Endpoint  string
	Image     string
	TileShape [2]int32 `toml:"tile_shape"`
	Levels    int
	DataType  string `toml:"data_type"`
}

type RenderConfig struct {
	MaxSize     int `toml:"max_size"`
	Concurrency int
}

type PrecomputeConfig struct {
	Encoding    string
	JPEGQuality int `toml:"jpeg_quality"`
	Gzip        bool
	Overwrite   bool
	Concurrency int
	Resolution  [3]float64
}

// SizeConfig gives a cache size in megabytes.
type SizeConfig struct {
	MB int
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			TileShape: [2]int32{1024, 1024},
			Levels:    1,
			DataType:  mosaic.Uint16.String(),
		},
		Render: RenderConfig{
			MaxSize:     2000,
			Concurrency: crop.DefaultConcurrency,
		},
		Precompute: PrecomputeConfig{
			Encoding:    precompute.EncodingAuto,
			JPEGQuality: precompute.DefaultJPEGQuality,
			Concurrency: precompute.DefaultConcurrency,
			Resolution:  [3]float64{1, 1, 1},
		},
	}
}

// LoadConfig reads a TOML file over the defaults.  Relative paths in the file are
// taken relative to the file's directory.
func LoadConfig(filename string) (*Config, error) {
	c := Default()
	if filename == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, mosaic.NewConfigError("could not decode TOML config %q: %v", filename, err)
	}
	for _, key := range md.Undecoded() {
		mosaic.Warningf("Ignoring unknown setting %q in %s\n", key.String(), filename)
	}
	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	mosaic.Debugf("Loaded config %s: %+v\n", filename, *c)
	return c, c.Validate()
}

// Some settings in the TOML can be given as relative paths.
// This function converts them in-place to absolute paths,
// assuming the given paths were relative to the TOML file's own directory.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error

	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = mosaic.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("error converting logfile setting to absolute path")
		}
	}

	// [source].ref unless it names a bucket
	if c.Source.Ref != "" && !storage.IsBucketRef(c.Source.Ref) {
		c.Source.Ref, err = mosaic.ConvertToAbsolute(c.Source.Ref, configDir)
		if err != nil {
			return fmt.Errorf("error converting source ref %q to absolute path", c.Source.Ref)
		}
	}
	return nil
}

// DataType returns the sample type configured for render-tile API sources.
func (c *Config) DataType() (mosaic.DataType, error) {
	switch c.Source.DataType {
	case "uint8":
		return mosaic.Uint8, nil
	case "uint16", "":
		return mosaic.Uint16, nil
	default:
		return 0, mosaic.NewConfigError("unsupported data type %q", c.Source.DataType)
	}
}

// Validate returns a *mosaic.ConfigError for settings that can never work.
func (c *Config) Validate() error {
	if c.Render.MaxSize < 1 {
		return mosaic.NewConfigError("render.max_size must be positive, got %d", c.Render.MaxSize)
	}
	if c.Source.Levels < 1 {
		return mosaic.NewConfigError("source.levels must be positive, got %d", c.Source.Levels)
	}
	if c.Source.TileShape[0] < 1 || c.Source.TileShape[1] < 1 {
		return mosaic.NewConfigError("source.tile_shape %v must be positive", c.Source.TileShape)
	}
	if c.Cache.MB < 0 || c.Groupcache.MB < 0 {
		return mosaic.NewConfigError("cache sizes must not be negative")
	}
	if _, err := c.DataType(); err != nil {
		return err
	}
	if c.Precompute.Encoding != "" {
		// any sample type accepts these, so only unknown names fail here
		if _, err := precompute.ResolveEncoding(c.Precompute.Encoding, mosaic.Uint8); err != nil {
			return err
		}
	}
	return nil
}

// PrecomputeOptions returns the options of a precompute run.
func (c *Config) PrecomputeOptions() precompute.Options {
	return precompute.Options{
		Encoding:    c.Precompute.Encoding,
		JPEGQuality: c.Precompute.JPEGQuality,
		Gzip:        c.Precompute.Gzip,
		Overwrite:   c.Precompute.Overwrite,
		Concurrency: c.Precompute.Concurrency,
		Resolution:  c.Precompute.Resolution,
	}
}

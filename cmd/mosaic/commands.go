package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/janelia-flyem/mosaic/config"
	"github.com/janelia-flyem/mosaic/crop"
	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/precompute"
)

// progressInterval is the period of throughput logging during precompute.
const progressInterval = 30 * time.Second

func doCrop(ctx context.Context, c *cli.Context, cfg *config.Config) error {
	rawURL := crop.DefaultRegionURL
	if c.NArg() == 1 {
		rawURL = c.Args().First()
	}
	if ref := c.String("source"); ref != "" {
		cfg.Source.Ref = ref
		cfg.Source.Endpoint = ""
	}
	dtype, err := cfg.DataType()
	if err != nil {
		return err
	}
	if cfg.Source.Endpoint == "" {
		// stored tiles carry their own sample type, which the window must match
		src, err := cfg.OpenSource(ctx, "")
		if err != nil {
			return err
		}
		defer src.Close()
		return cropSource(ctx, c, cfg, src, rawURL, src.DataType)
	}

	region, err := crop.ParseScaledRegion(rawURL, dtype.Limit())
	if err != nil {
		return err
	}
	if region.ImageID != "" {
		cfg.Source.Image = region.ImageID
	}
	src, err := cfg.OpenSource(ctx, os.Getenv(TokenEnv))
	if err != nil {
		return err
	}
	defer src.Close()
	return cropSource(ctx, c, cfg, src, rawURL, dtype)
}

func cropSource(ctx context.Context, c *cli.Context, cfg *config.Config, src *config.Source, rawURL string, dtype mosaic.DataType) error {
	region, err := crop.ParseScaledRegion(rawURL, dtype.Limit())
	if err != nil {
		return err
	}
	req, err := cropRequest(cfg, src, region)
	if err != nil {
		return err
	}
	res, err := crop.Crop(ctx, src, req, cfg.Render.Concurrency)
	if err != nil {
		return err
	}
	mosaic.Infof("Tile caches: %s\n", src.CacheStats())
	outDir := c.String("output")
	if err := mosaic.EnsureDir(outDir); err != nil {
		return &mosaic.WriteError{Path: outDir, Err: err}
	}
	path := crop.OutputPath(outDir)
	if err := crop.WritePNG(path, res.Canvas.RGBA()); err != nil {
		return err
	}
	mosaic.Infof("Wrote %s: %s\n", path, res)
	return nil
}

// cropRequest builds the crop of a parsed region.  Empty regions are rejected since
// no image can be written for them.
func cropRequest(cfg *config.Config, src *config.Source, region *crop.ScaledRegion) (crop.Request, error) {
	req := crop.Request{
		Channels:  region.Channels,
		TileShape: src.TileShape,
		Origin:    region.Origin,
		Shape:     region.Shape,
		Levels:    src.Levels,
		MaxSize:   cfg.Render.MaxSize,
		Time:      region.Time,
		Z:         region.Z,
	}
	if req.Region().Empty() {
		return req, mosaic.NewConfigError("crop region %s is empty, nothing to write", req.Region())
	}
	return req, req.Validate()
}

func doPrecompute(ctx context.Context, c *cli.Context, cfg *config.Config) error {
	cfg.Source.Ref = c.String("input")
	cfg.Source.Endpoint = ""
	opts := cfg.PrecomputeOptions()
	if enc := c.String("encoding"); enc != "" {
		opts.Encoding = enc
	}
	if c.Bool("overwrite") {
		opts.Overwrite = true
	}

	src, err := cfg.OpenSource(ctx, "")
	if err != nil {
		return err
	}
	defer src.Close()
	if src.Index == nil {
		return mosaic.NewConfigError("precompute needs stored tiles, not a render-tile endpoint")
	}

	w, err := precompute.NewWriter(ctx, c.String("output"))
	if err != nil {
		return err
	}
	defer w.Close()

	monCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go src.Monitor.Run(monCtx, progressInterval)

	shape := precompute.ShapeFromIndex(src.Index)
	w = precompute.MonitorWriter(w, src.Monitor)
	summary, err := precompute.NewPipeline(src, shape, src.TileShape, w, opts).Run(ctx)
	if err != nil {
		return err
	}
	mosaic.Infof("Tile caches: %s\n", src.CacheStats())
	fmt.Println(summary)
	return nil
}

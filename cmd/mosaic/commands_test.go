package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janelia-flyem/mosaic/config"
	"github.com/janelia-flyem/mosaic/crop"
	"github.com/janelia-flyem/mosaic/mosaic"
)

func TestCropRequest(t *testing.T) {
	cfg := config.Default()
	src := &config.Source{TileShape: mosaic.Point2d{1024, 1024}, Levels: 4, DataType: mosaic.Uint16}

	region, err := crop.ParseScaledRegion("/0/0/?c=1|0:65535$FF0000&region=0,0,1,4000", 65535)
	require.NoError(t, err)
	req, err := cropRequest(cfg, src, region)
	require.NoError(t, err)
	assert.Equal(t, mosaic.Point2d{4000, 1}, req.Shape)
	assert.Equal(t, 4, req.Levels)
	assert.Equal(t, cfg.Render.MaxSize, req.MaxSize)

	region, err = crop.ParseScaledRegion("/0/0/?c=1|0:65535$FF0000&region=0,0,0,100", 65535)
	require.NoError(t, err)
	_, err = cropRequest(cfg, src, region)
	assert.True(t, mosaic.IsConfigError(err), "got %v", err)
}

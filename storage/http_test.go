package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janelia-flyem/mosaic/mosaic"
)

func TestHTTPFetcher(t *testing.T) {
	tile, err := EncodePNG(testBuffer(mosaic.Point2d{4, 4}, mosaic.Uint8))
	require.NoError(t, err)

	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/image/abc/render-tile/3/1/0/0/2/5,FFFFFF,0,1", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "image/png")
		w.Write(tile)
	})
	mux.HandleFunc("/image/abc/render-tile/9/9/0/0/0/0,FFFFFF,0,1", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	f, err := NewHTTPFetcher(ctx, server.URL+"/", "abc", TokenSource("secret"))
	require.NoError(t, err)
	src := NewDecoder(f)

	// x is the column and y the row
	res, err := src.Load(ctx, TileKey{Channel: 5, Level: 2, Row: 1, Col: 3})
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, mosaic.Point2d{4, 4}, res.Pixels().Shape)
	assert.Equal(t, "Bearer secret", gotAuth)

	res, err = src.Load(ctx, TileKey{Row: 7, Col: 7})
	require.NoError(t, err)
	assert.False(t, res.Found(), "404 must be absent")

	_, err = src.Load(ctx, TileKey{Row: 9, Col: 9})
	var terr *mosaic.TransportError
	require.True(t, errors.As(err, &terr), "expected transport error, got %v", err)
	assert.Contains(t, terr.Error(), "500")
}

func TestHTTPFetcherConfig(t *testing.T) {
	_, err := NewHTTPFetcher(context.Background(), "", "abc", nil)
	assert.True(t, mosaic.IsConfigError(err))

	f, err := NewHTTPFetcher(context.Background(), "https://example.com/v1", "img", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v1/image/img/render-tile/2/1/4/3/0/6,FFFFFF,0,1",
		f.TileURL(TileKey{Channel: 6, Time: 3, Z: 4, Level: 0, Row: 1, Col: 2}))
}

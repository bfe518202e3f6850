package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// maxTileBytes bounds the size of a tile response.
const maxTileBytes = 64 << 20

// HTTPFetcher reads tiles from a Minerva-style render-tile endpoint:
//
//	<endpoint>/image/<image uuid>/render-tile/<x>/<y>/<z>/<t>/<level>/<channel>,FFFFFF,0,1
//
// where x is the tile column and y is the tile row.  Tiles are rendered white with
// the full intensity range so color and contrast are applied during compositing.
//
// Some older render-tile clients put the tile row in the x slot and send the raw
// token as the Authorization header.  This fetcher always sends x as the column and
// the token as "Bearer <token>", so endpoints expecting the older form need a
// proxy or a token source that matches them.
type HTTPFetcher struct {
	endpoint string
	imageID  string
	client   *http.Client
}

// NewHTTPFetcher returns a fetcher for an image.  If tokens is non-nil each request
// carries its bearer token.
func NewHTTPFetcher(ctx context.Context, endpoint, imageID string, tokens oauth2.TokenSource) (*HTTPFetcher, error) {
	if endpoint == "" || imageID == "" {
		return nil, mosaic.NewConfigError("http tile source needs both endpoint and image id")
	}
	client := http.DefaultClient
	if tokens != nil {
		client = oauth2.NewClient(ctx, tokens)
	}
	return &HTTPFetcher{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		imageID:  imageID,
		client:   client,
	}, nil
}

// TokenSource returns a static token source for an already-issued access token.
func TokenSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

// TileURL returns the render-tile URL for a key.
func (f *HTTPFetcher) TileURL(key TileKey) string {
	return fmt.Sprintf("%s/image/%s/render-tile/%d/%d/%d/%d/%d/%d,FFFFFF,0,1",
		f.endpoint, f.imageID, key.Col, key.Row, key.Z, key.Time, key.Level, key.Channel)
}

// Fetch requests a tile.  A 404 response means the tile does not exist.
func (f *HTTPFetcher) Fetch(ctx context.Context, key TileKey) ([]byte, error) {
	url := f.TileURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &mosaic.TransportError{Op: "GET " + url, Err: err}
	}
	req.Header.Set("Accept", "image/png")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &mosaic.TransportError{Op: "GET " + url, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &mosaic.TransportError{
			Op:  "GET " + url,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, &mosaic.TransportError{Op: "GET " + url, Err: err}
	}
	return data, nil
}

package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	_ "image/jpeg"

	"golang.org/x/image/draw"
)

const pngDataURIPrefix = "data:image/png;base64,"

// ErrNotDataURI is returned for strings that are not base64 image data URIs.
var ErrNotDataURI = errors.New("not an image data URI")

// EncodeDataURI serializes snap as a base64 PNG data URI.
func EncodeDataURI(snap Snapshot) (string, error) {
	if err := snap.validate(); err != nil {
		return "", err
	}
	img := &image.RGBA{
		Pix:    snap.Pix,
		Stride: 4 * snap.Width,
		Rect:   image.Rect(0, 0, snap.Width, snap.Height),
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI parses a base64 image data URI (PNG or JPEG) into a snapshot.
func DecodeDataURI(uri string) (Snapshot, error) {
	uri = strings.TrimSpace(uri)
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return Snapshot{}, ErrNotDataURI
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode base64: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return Snapshot{Pix: rgba.Pix, Width: b.Dx(), Height: b.Dy()}, nil
}

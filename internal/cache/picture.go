// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"errors"
	"image"

	// Decoders for the formats the catalog serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/staranto/catinfo/internal/apperr"
)

var errEmptyImage = errors.New("empty image data")

// Picture is a decoded image together with the encoded bytes it came from.
// The bytes are what the disk tier stores.
type Picture struct {
	Image  image.Image
	Format string
	Raw    []byte
}

// Decode parses raw into a Picture. Failures are apperr.ErrDecoding.
func Decode(raw []byte) (*Picture, error) {
	if len(raw) == 0 {
		return nil, apperr.Decoding("decode image", errEmptyImage)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperr.Decoding("decode image", err)
	}
	return &Picture{Image: img, Format: format, Raw: raw}, nil
}

// Cost approximates the memory held by p: four bytes per decoded pixel plus
// the encoded bytes.
func (p *Picture) Cost() int64 {
	if p == nil {
		return 0
	}
	var px int64
	if p.Image != nil {
		b := p.Image.Bounds()
		px = int64(b.Dx()) * int64(b.Dy()) * 4 //nolint:mnd
	}
	return px + int64(len(p.Raw))
}

// Size returns the pixel dimensions of p.
func (p *Picture) Size() (int, int) {
	if p == nil || p.Image == nil {
		return 0, 0
	}
	b := p.Image.Bounds()
	return b.Dx(), b.Dy()
}

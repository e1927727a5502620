// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/catinfo/internal/apperr"
)

// pngBytes encodes a w x h image filled with c.
func pngBytes(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	raw := pngBytes(t, 4, 3, color.White)

	pic, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "png", pic.Format)
	w, h := pic.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)
	assert.Equal(t, int64(4*3*4+len(raw)), pic.Cost())
	assert.Equal(t, raw, pic.Raw)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "nil", raw: nil},
		{name: "empty", raw: []byte{}},
		{name: "garbage", raw: []byte("definitely not an image")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pic, err := Decode(tt.raw)
			assert.Nil(t, pic)
			assert.ErrorIs(t, err, apperr.ErrDecoding)
		})
	}
}

func TestPicture_NilCost(t *testing.T) {
	var p *Picture
	assert.Equal(t, int64(0), p.Cost())
	w, h := p.Size()
	assert.Zero(t, w)
	assert.Zero(t, h)
}

// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package browse

import (
	"image"
	"strings"
)

// ramp runs from light to dark.
const ramp = " .:-=+*#%@"

// Preview renders img as cols x rows characters of ASCII art. Terminal cells
// are about twice as tall as wide, and the aspect ratio is kept inside that
// box. A nil or empty image yields "".
func Preview(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}

	// Fit inside the box, counting each row as two pixels of height.
	w, h := cols, cols*b.Dy()/b.Dx()/2
	if h > rows {
		h = rows
		w = rows * 2 * b.Dx() / b.Dy()
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	var sb strings.Builder
	sb.Grow((w + 1) * h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px := b.Min.X + x*b.Dx()/w
			py := b.Min.Y + y*b.Dy()/h
			sb.WriteByte(shade(img, px, py))
		}
		if y < h-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func shade(img image.Image, x, y int) byte {
	r, g, b, a := img.At(x, y).RGBA()
	if a == 0 {
		return ramp[0]
	}
	// Rec. 601 luma on 16 bit channels.
	lum := (299*r + 587*g + 114*b) / 1000
	idx := int((0xffff - lum) * uint32(len(ramp)-1) / 0xffff)
	return ramp[idx]
}

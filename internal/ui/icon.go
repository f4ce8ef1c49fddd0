package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

var iconBytes = renderIcon(22)

// renderIcon draws a film strip: a filled frame with sprocket holes down
// both edges.
func renderIcon(size int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	ink := color.NRGBA{R: 0xE8, G: 0x4A, B: 0x27, A: 0xFF}
	for y := 1; y < size-1; y++ {
		for x := 2; x < size-2; x++ {
			edge := x < 5 || x >= size-5
			hole := edge && (x == 3 || x == size-4) && y%4 == 2
			if !hole {
				img.Set(x, y, ink)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

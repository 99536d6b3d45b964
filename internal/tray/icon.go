package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

const (
	iconWidth  = 22
	iconHeight = 22
)

var (
	colorIdle      = color.RGBA{255, 255, 255, 255}
	colorListening = color.RGBA{255, 59, 48, 255}
	colorBusy      = color.RGBA{0, 122, 255, 255}
	colorFailed    = color.RGBA{255, 149, 0, 255}
)

func iconColor(s interpreter.State) color.RGBA {
	switch s {
	case interpreter.StateListening:
		return colorListening
	case interpreter.StateInitializing, interpreter.StateStopping:
		return colorBusy
	case interpreter.StateFailed:
		return colorFailed
	default:
		return colorIdle
	}
}

// createIcon renders a "D" glyph in the state color
func createIcon(s interpreter.State) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconWidth, iconHeight))
	drawGlyph(img, glyphD, 3, 4, 2, iconColor(s))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

// 5x7 bitmap, one byte per row
var glyphD = []byte{
	0b11100,
	0b10010,
	0b10001,
	0b10001,
	0b10001,
	0b10010,
	0b11100,
}

func drawGlyph(img *image.RGBA, pattern []byte, x, y, scale int, c color.RGBA) {
	bounds := img.Bounds()
	for row, bits := range pattern {
		for col := 0; col < 5; col++ {
			if bits&(1<<(4-col)) == 0 {
				continue
			}
			for sy := 0; sy < scale; sy++ {
				for sx := 0; sx < scale; sx++ {
					px := x + col*scale + sx
					py := y + row*scale + sy
					if image.Pt(px, py).In(bounds) {
						img.SetRGBA(px, py, c)
					}
				}
			}
		}
	}
}

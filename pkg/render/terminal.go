package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

const halfBlock = "▀"

// Draw presents the framebuffer on a terminal screen. Each cell shows two
// vertically stacked pixels: the foreground paints the upper half block,
// the background the lower one.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		if topY >= fb.Height {
			break
		}
		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}
			scr.SetCell(col, row, &uv.Cell{
				Content: halfBlock,
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.GetPixel(x, topY)),
					Bg: cellColor(fb.GetPixel(x, topY+1)),
				},
			})
		}
	}
}

// CellSize returns the terminal area, in cells, a framebuffer of the given
// pixel size covers.
func CellSize(width, height int) (cols, rows int) {
	return width, (height + 1) / 2
}

// cellColor maps transparent pixels (past the last row) to the terminal
// default.
func cellColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil
	}
	return c
}

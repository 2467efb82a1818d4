package main

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/glbview/pkg/app"
	"github.com/taigrr/glbview/pkg/engine"
)

const toastDuration = 2500 * time.Millisecond

var (
	hudBg     = color.RGBA{0, 0, 0, 255}
	hudFg     = color.RGBA{230, 230, 230, 255}
	hudGreen  = color.RGBA{90, 230, 120, 255}
	hudCyan   = color.RGBA{90, 220, 230, 255}
	hudYellow = color.RGBA{240, 220, 90, 255}
	popupBg   = color.RGBA{30, 30, 46, 255}
)

// HUD overlays frame stats, the status toast and the entity popup. It is
// the app's Notifier.
type HUD struct {
	title string
	show  bool

	fps       float64
	fpsFrames int
	fpsTime   time.Time

	status      string
	statusUntil time.Time

	popupTitle string
	popupBody  []string
}

var _ app.Notifier = (*HUD)(nil)

func NewHUD(title string) *HUD {
	return &HUD{title: title, show: true, fpsTime: time.Now()}
}

func (h *HUD) Toggle() { h.show = !h.show }

func (h *HUD) Status(msg string) {
	h.status = msg
	h.statusUntil = time.Now().Add(toastDuration)
}

func (h *HUD) ShowPopup(title, body string) {
	h.popupTitle = title
	h.popupBody = strings.Split(body, "\n")
}

func (h *HUD) DismissPopup() {
	h.popupTitle, h.popupBody = "", nil
}

// tick counts a presented frame.
func (h *HUD) tick() {
	h.fpsFrames++
	if elapsed := time.Since(h.fpsTime); elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Draw paints the overlay onto a cols x rows screen.
func (h *HUD) Draw(scr uv.Screen, cols, rows int, stats engine.Stats, paused bool) {
	if h.show && rows > 1 {
		drawText(scr, 0, 0, fmt.Sprintf(" %.0f FPS ", h.fps), hudGreen, hudBg)
		drawText(scr, max((cols-len(h.title)-2)/2, 0), 0, " "+h.title+" ", hudFg, hudBg)
		tris := fmt.Sprintf(" %d tris ", stats.Triangles)
		drawText(scr, max(cols-len(tris), 0), 0, tris, hudCyan, hudBg)

		bottom := fmt.Sprintf(" %d/%d drawn  scale %.2f ", stats.Drawn, stats.Drawn+stats.Culled, stats.Scale)
		if paused {
			bottom += " PAUSED "
		}
		drawText(scr, 0, rows-1, bottom, hudFg, hudBg)
		hint := " tap: select  p: pause  ?: hud "
		drawText(scr, max(cols-len(hint), 0), rows-1, hint, hudYellow, hudBg)
	}

	if len(h.popupBody) > 0 {
		h.drawPopup(scr, cols, rows)
	}

	if h.status != "" && time.Now().Before(h.statusUntil) {
		msg := " " + h.status + " "
		drawText(scr, max((cols-len(msg))/2, 0), max(rows-3, 0), msg, hudBg, hudFg)
	}
}

func (h *HUD) drawPopup(scr uv.Screen, cols, rows int) {
	width := len(h.popupTitle)
	for _, l := range h.popupBody {
		width = max(width, len(l))
	}
	width += 4
	height := len(h.popupBody) + 3
	x0, y0 := max((cols-width)/2, 0), max((rows-height)/2, 0)

	for y := range height {
		drawText(scr, x0, y0+y, strings.Repeat(" ", width), hudFg, popupBg)
	}
	drawText(scr, x0+2, y0, h.popupTitle, hudYellow, popupBg)
	for i, l := range h.popupBody {
		drawText(scr, x0+2, y0+2+i, l, hudFg, popupBg)
	}
}

func drawText(scr uv.Screen, x, y int, s string, fg, bg color.Color) {
	for _, r := range s {
		scr.SetCell(x, y, &uv.Cell{
			Content: string(r),
			Width:   1,
			Style:   uv.Style{Fg: fg, Bg: bg},
		})
		x++
	}
}

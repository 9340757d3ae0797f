package detection

import (
	"image"
	"image/color"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"qc-vision/internal/domain/entity"
)

const (
	lineThickness = 2
	labelOffsetX  = 20
)

// BoxColor цвет рамок и подписей.
var BoxColor = color.RGBA{G: 255, A: 255}

// Annotate рисует рамки и номера детекций на копии кадра.
// Исходный кадр не изменяется.
func Annotate(frame image.Image, detections []entity.Detection) *image.RGBA {
	bounds := frame.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, frame, bounds.Min, draw.Src)

	for _, d := range detections {
		drawRect(dst, d.Box.Rect(), BoxColor, lineThickness)

		_, cy := d.Box.Center()
		drawLabel(dst, strconv.Itoa(d.ID), image.Pt(d.Box.X0-labelOffsetX, cy), BoxColor)
	}

	return dst
}

// drawRect рисует контур прямоугольника; толщина растёт наружу.
func drawRect(dst *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	for i := 0; i < thickness; i++ {
		o := i - thickness/2
		rr := image.Rect(r.Min.X+o, r.Min.Y+o, r.Max.X-o, r.Max.Y-o)
		for x := rr.Min.X; x <= rr.Max.X; x++ {
			dst.SetRGBA(x, rr.Min.Y, c)
			dst.SetRGBA(x, rr.Max.Y, c)
		}
		for y := rr.Min.Y; y <= rr.Max.Y; y++ {
			dst.SetRGBA(rr.Min.X, y, c)
			dst.SetRGBA(rr.Max.X, y, c)
		}
	}
}

// drawLabel пишет текст; pt: левая точка базовой линии.
func drawLabel(dst *image.RGBA, text string, pt image.Point, c color.RGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
	}
	// два прохода со сдвигом на пиксель дают жирный шрифт
	for dx := 0; dx < lineThickness; dx++ {
		d.Dot = fixed.P(pt.X+dx, pt.Y)
		d.DrawString(text)
	}
}

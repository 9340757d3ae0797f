package entity

import "image"

// BoundingBox представляет прямоугольник найденного дефекта в пикселях
type BoundingBox struct {
	X0 int // координата X левого верхнего угла
	Y0 int // координата Y левого верхнего угла
	X1 int // координата X правого нижнего угла
	Y1 int // координата Y правого нижнего угла
}

// Center возвращает координаты центра дефекта
func (b BoundingBox) Center() (x, y int) {
	return b.X0 + (b.X1-b.X0)/2, b.Y0 + (b.Y1-b.Y0)/2
}

// Width возвращает ширину прямоугольника в пикселях
func (b BoundingBox) Width() int {
	return b.X1 - b.X0
}

// Height возвращает высоту прямоугольника в пикселях
func (b BoundingBox) Height() int {
	return b.Y1 - b.Y0
}

// Rect переводит прямоугольник в image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X0, b.Y0, b.X1, b.Y1)
}

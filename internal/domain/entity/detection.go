package entity

import "image"

// Candidate сырая строка вывода модели детекции.
type Candidate struct {
	ClassIndex int     // индекс класса модели
	Confidence float64 // уверенность в диапазоне [0,1]
	CenterX    float64 // центр рамки по X, пиксели
	CenterY    float64 // центр рамки по Y, пиксели
	Width      float64 // ширина рамки, пиксели
	Height     float64 // высота рамки, пиксели
}

// ModelOutput результат одного запуска модели на кадре.
type ModelOutput struct {
	Candidates []Candidate
	Names      []string    // индекс класса -> имя
	Image      image.Image // исходный кадр
}

// ClassName возвращает имя класса по индексу.
func (o *ModelOutput) ClassName(index int) (string, bool) {
	if index < 0 || index >= len(o.Names) {
		return "", false
	}
	return o.Names[index], true
}

// Detection один найденный объект на кадре.
type Detection struct {
	ID             int         `json:"id"`
	ClassName      string      `json:"class"`
	Confidence     float64     `json:"confidence"` // проценты, 0..100
	Box            BoundingBox `json:"box"`
	PhysicalWidth  float64     `json:"width_cm"`
	PhysicalHeight float64     `json:"height_cm"`
}

// FrameResult детекции кадра и кадр с разметкой.
type FrameResult struct {
	Detections []Detection
	Annotated  *image.RGBA
}

package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	titleHeight = 24
	panelMargin = 10
)

var (
	paper = image.NewUniform(color.White)
	ink   = image.NewUniform(color.Black)
	face  = basicfont.Face7x13
)

// RenderOrthogonal writes a 2x2 figure with the middle axial, sagittal
// and coronal planes, each drawn at its physical aspect ratio. The
// fourth cell is left blank.
func (v *Viewer) RenderOrthogonal(path string, cellSize int) error {
	if v.geometry == nil {
		return fmt.Errorf("orthogonal views need pixel spacing and slice thickness")
	}
	if cellSize <= 0 {
		return fmt.Errorf("cell size must be positive")
	}

	axialIdx, sagittalIdx, coronalIdx := MiddleIndices(v.volume)
	panels := []struct {
		axis  Axis
		index int
		title string
		cell  image.Point
	}{
		{Axial, axialIdx, "Axial view", image.Pt(0, 0)},
		{Sagittal, sagittalIdx, "Sagittal view", image.Pt(1, 0)},
		{Coronal, coronalIdx, "Coronal view", image.Pt(0, 1)},
	}

	fig := image.NewRGBA(image.Rect(0, 0, 2*cellSize, 2*cellSize))
	draw.Draw(fig, fig.Bounds(), paper, image.Point{}, draw.Src)

	for _, p := range panels {
		m, err := v.ExtractSlice(p.axis, p.index)
		if err != nil {
			return fmt.Errorf("%s view: %w", p.axis, err)
		}
		origin := p.cell.Mul(cellSize)
		cell := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(cellSize, cellSize))}
		drawPanel(fig, cell, p.title, toGray(m), v.aspect(p.axis))
	}

	return writePNG(path, fig)
}

// Projection computes the maximum intensity projection of the volume
// along axis. The result is oriented like ExtractSlice for that axis.
func (v *Viewer) Projection(axis Axis) (*mat.Dense, error) {
	vol := v.volume
	var m *mat.Dense

	switch axis {
	case Axial:
		m = mat.NewDense(vol.Rows, vol.Cols, nil)
		for r := 0; r < vol.Rows; r++ {
			for c := 0; c < vol.Cols; c++ {
				best := math.Inf(-1)
				for s := 0; s < vol.Slices; s++ {
					best = math.Max(best, vol.At(r, c, s))
				}
				m.Set(r, c, best)
			}
		}
	case Sagittal:
		m = mat.NewDense(vol.Rows, vol.Slices, nil)
		for r := 0; r < vol.Rows; r++ {
			for s := 0; s < vol.Slices; s++ {
				best := math.Inf(-1)
				for c := 0; c < vol.Cols; c++ {
					best = math.Max(best, vol.At(r, c, s))
				}
				m.Set(r, s, best)
			}
		}
	case Coronal:
		m = mat.NewDense(vol.Slices, vol.Cols, nil)
		for s := 0; s < vol.Slices; s++ {
			for c := 0; c < vol.Cols; c++ {
				best := math.Inf(-1)
				for r := 0; r < vol.Rows; r++ {
					best = math.Max(best, vol.At(r, c, s))
				}
				m.Set(s, c, best)
			}
		}
	default:
		return nil, fmt.Errorf("invalid axis: %s", axis)
	}
	return m, nil
}

// RenderVolume writes a grayscale rendering of the whole volume as a
// maximum intensity projection along axis, next to an intensity scale bar
func (v *Viewer) RenderVolume(path string, axis Axis, cellSize int) error {
	if cellSize <= 0 {
		return fmt.Errorf("cell size must be positive")
	}
	proj, err := v.Projection(axis)
	if err != nil {
		return err
	}

	barWidth := cellSize / 4
	if barWidth < 100 {
		barWidth = 100
	}

	fig := image.NewRGBA(image.Rect(0, 0, cellSize+barWidth, cellSize))
	draw.Draw(fig, fig.Bounds(), paper, image.Point{}, draw.Src)

	title := fmt.Sprintf("Volume (%s projection)", axis)
	drawPanel(fig, image.Rect(0, 0, cellSize, cellSize), title, toGray(proj), v.aspect(axis))

	lo, hi := floats.Min(v.volume.Data), floats.Max(v.volume.Data)
	drawScaleBar(fig, image.Rect(cellSize, 0, cellSize+barWidth, cellSize), "Intensity", lo, hi)

	return writePNG(path, fig)
}

// toGray maps a plane linearly from its own min..max onto 0..255
func toGray(m mat.Matrix) *image.Gray {
	rows, cols := m.Dims()
	values := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			values = append(values, m.At(y, x))
		}
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	if len(values) == 0 {
		return img
	}

	lo, hi := floats.Min(values), floats.Max(values)
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			img.Pix[y*img.Stride+x] = uint8(math.Round((values[y*cols+x] - lo) * scale))
		}
	}
	return img
}

// drawPanel draws title at the top of cell and src below it, scaled to
// fit while keeping displayed height/width = rows*aspect/cols
func drawPanel(dst draw.Image, cell image.Rectangle, title string, src image.Image, aspect float64) {
	drawText(dst, title, cell.Min.X+cell.Dx()/2, cell.Min.Y+titleHeight-6, true)

	box := image.Rect(cell.Min.X+panelMargin, cell.Min.Y+titleHeight,
		cell.Max.X-panelMargin, cell.Max.Y-panelMargin)
	if box.Empty() {
		return
	}

	b := src.Bounds()
	target := fitRect(box, b.Dx(), b.Dy(), aspect)
	if target.Empty() {
		return
	}
	draw.BiLinear.Scale(dst, target, src, b, draw.Src, nil)
}

// fitRect returns the largest rectangle centered in box whose
// height/width equals rows*aspect/cols
func fitRect(box image.Rectangle, cols, rows int, aspect float64) image.Rectangle {
	natW := float64(cols)
	natH := float64(rows) * aspect
	if natW <= 0 || natH <= 0 || box.Empty() {
		return image.Rectangle{}
	}

	s := math.Min(float64(box.Dx())/natW, float64(box.Dy())/natH)
	w := int(math.Max(1, math.Round(natW*s)))
	h := int(math.Max(1, math.Round(natH*s)))

	origin := image.Pt(box.Min.X+(box.Dx()-w)/2, box.Min.Y+(box.Dy()-h)/2)
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
}

// drawScaleBar draws a vertical black-to-white gradient labeled with
// its value range inside area
func drawScaleBar(dst draw.Image, area image.Rectangle, title string, lo, hi float64) {
	drawText(dst, title, area.Min.X+area.Dx()/2, area.Min.Y+titleHeight-6, true)

	bar := image.Rect(area.Min.X+panelMargin, area.Min.Y+2*titleHeight,
		area.Min.X+panelMargin+20, area.Max.Y-2*titleHeight)
	if bar.Empty() {
		return
	}

	for y := bar.Min.Y; y < bar.Max.Y; y++ {
		// top of the bar is the maximum
		t := float64(bar.Max.Y-1-y) / math.Max(1, float64(bar.Dy()-1))
		g := color.Gray{Y: uint8(math.Round(t * 255))}
		for x := bar.Min.X; x < bar.Max.X; x++ {
			dst.Set(x, y, g)
		}
	}

	labelX := bar.Max.X + 6
	drawText(dst, formatValue(hi), labelX, bar.Min.Y+5, false)
	drawText(dst, formatValue(lo), labelX, bar.Max.Y+5, false)
}

func formatValue(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e9 {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.3g", f)
}

// drawText writes s with its baseline at y, starting at x or centered on it
func drawText(dst draw.Image, s string, x, y int, centered bool) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  ink,
		Face: face,
	}
	if centered {
		x -= d.MeasureString(s).Ceil() / 2
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}

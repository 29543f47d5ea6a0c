package peakfinder

import (
	"image"

	"github.com/disintegration/imaging"
)

// LoadImage reads a greyscale heightmap from filename. Each sample is the
// luminance of the corresponding pixel, from 0 to 255. Color images are
// converted to greyscale first.
func LoadImage(filename string) (*Grid, error) {
	img, err := imaging.Open(filename)
	if err != nil {
		return nil, err
	}
	return GridFromImage(img)
}

// GridFromImage returns a Grid of the luminance of img's pixels.
func GridFromImage(img image.Image) (*Grid, error) {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	return NewGridFunc(bounds.Dx(), bounds.Dy(), func(x, y int) float64 {
		return float64(gray.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R)
	})
}

// ImageGeoreference returns a Georeference for an image with no CRS whose
// pixels are metresPerPixel wide and high, with its top-left corner at the
// origin.
func ImageGeoreference(width, height int, metresPerPixel float64) Georeference {
	return Georeference{
		ScaleX: metresPerPixel,
		ScaleY: metresPerPixel,
		Width:  width,
		Height: height,
	}
}

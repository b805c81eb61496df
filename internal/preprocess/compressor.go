package preprocess

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// JPEGCompressor scales images to fit within the maximum dimensions and
// re-encodes them as JPEG. Transparent areas are flattened onto white.
type JPEGCompressor struct{}

func NewJPEGCompressor() *JPEGCompressor {
	return &JPEGCompressor{}
}

func (c *JPEGCompressor) Compress(in, out string, quality, maxWidth, maxHeight int) (int64, int64, error) {
	info, err := os.Stat(in)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat input: %w", err)
	}

	f, err := os.Open(in)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	o, err := os.Create(out)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create output: %w", err)
	}
	if err := jpeg.Encode(o, dst, &jpeg.Options{Quality: quality}); err != nil {
		o.Close()
		return 0, 0, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	if err := o.Close(); err != nil {
		return 0, 0, fmt.Errorf("failed to write output: %w", err)
	}

	outInfo, err := os.Stat(out)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat output: %w", err)
	}
	return info.Size(), outInfo.Size(), nil
}

// fitWithin scales (w, h) down to fit the box, keeping the aspect ratio.
// Non-positive limits leave that axis unconstrained. Images are never enlarged.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = min(scale, float64(maxW)/float64(w))
	}
	if maxH > 0 && h > maxH {
		scale = min(scale, float64(maxH)/float64(h))
	}
	if scale == 1.0 {
		return w, h
	}
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}

// Package imaging renders batches of decoded digits as PNG files.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/latentml/vae/internal/tensor"
)

// FromBatch converts a [N, 1, H, W] tensor of pixel intensities in [0, 1]
// into grayscale images. Values outside [0, 1] are clamped.
func FromBatch[B tensor.Backend](t *tensor.Tensor[B]) []*image.Gray {
	shape := t.Shape()
	if len(shape) != 4 || shape[1] != 1 {
		panic(fmt.Sprintf("imaging: expected [N, 1, H, W] tensor, got %v", shape))
	}
	n, h, w := shape[0], shape[2], shape[3]
	data := t.Data()

	images := make([]*image.Gray, n)
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, w, h))
		base := i * h * w
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := data[base+y*w+x]
				if v < 0 {
					v = 0
				} else if v > 1 {
					v = 1
				}
				img.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
			}
		}
		images[i] = img
	}
	return images
}

// Grid tiles images left to right, top to bottom, into a single image with
// cols columns, upscaling each tile by scale using nearest-neighbor so the
// pixels stay crisp.
func Grid(images []*image.Gray, cols, scale int) (*image.Gray, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("imaging: no images to tile")
	}
	if cols < 1 {
		return nil, fmt.Errorf("imaging: cols must be positive, got %d", cols)
	}
	if scale < 1 {
		return nil, fmt.Errorf("imaging: scale must be positive, got %d", scale)
	}

	bounds := images[0].Bounds()
	tileW, tileH := bounds.Dx()*scale, bounds.Dy()*scale
	rows := (len(images) + cols - 1) / cols

	grid := image.NewGray(image.Rect(0, 0, cols*tileW, rows*tileH))
	for i, img := range images {
		if img.Bounds() != bounds {
			return nil, fmt.Errorf("imaging: image %d has bounds %v, want %v", i, img.Bounds(), bounds)
		}
		x := (i % cols) * tileW
		y := (i / cols) * tileH
		dst := image.Rect(x, y, x+tileW, y+tileH)
		draw.NearestNeighbor.Scale(grid, dst, img, img.Bounds(), draw.Src, nil)
	}
	return grid, nil
}

// WriteGridPNG tiles images into a grid and writes it to path as PNG.
func WriteGridPNG(path string, images []*image.Gray, cols, scale int) error {
	grid, err := Grid(images, cols, scale)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, grid); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

package mnist

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/latentml/vae/internal/tensor"
)

// Dataset holds a set of normalized grayscale images in a flat buffer.
// Pixel values are float32 in [0, 1].
type Dataset struct {
	pixels []float32 // count * height * width, row-major
	count  int
	height int
	width  int
}

// NewDataset wraps pre-normalized pixel data. The slice length must equal
// count * height * width.
func NewDataset(pixels []float32, count, height, width int) (*Dataset, error) {
	if len(pixels) != count*height*width {
		return nil, fmt.Errorf("pixel buffer length %d != %d*%d*%d", len(pixels), count, height, width)
	}
	return &Dataset{
		pixels: pixels,
		count:  count,
		height: height,
		width:  width,
	}, nil
}

// Len returns the number of images.
func (d *Dataset) Len() int {
	return d.count
}

// Height returns the image height in pixels.
func (d *Dataset) Height() int {
	return d.height
}

// Width returns the image width in pixels.
func (d *Dataset) Width() int {
	return d.width
}

// Image returns the pixels of image i (a view, not a copy).
func (d *Dataset) Image(i int) []float32 {
	size := d.height * d.width
	return d.pixels[i*size : (i+1)*size]
}

// Batch assembles the images at the given indices into an NCHW tensor
// [len(indices), 1, height, width] on the given backend.
func Batch[B tensor.Backend](d *Dataset, indices []int, backend B) *tensor.Tensor[B] {
	size := d.height * d.width
	raw, err := tensor.NewRaw(tensor.Shape{len(indices), 1, d.height, d.width}, backend.Device())
	if err != nil {
		panic(fmt.Sprintf("batch: failed to create tensor: %v", err))
	}

	data := raw.Data()
	for n, idx := range indices {
		if idx < 0 || idx >= d.count {
			panic(fmt.Sprintf("batch: index %d out of range [0, %d)", idx, d.count))
		}
		copy(data[n*size:(n+1)*size], d.Image(idx))
	}

	return tensor.New(raw, backend)
}

// Split partitions the dataset into a training prefix and validation suffix.
// frac is the training fraction in (0, 1).
func (d *Dataset) Split(frac float64) (train, val *Dataset, err error) {
	if frac <= 0 || frac >= 1 {
		return nil, nil, fmt.Errorf("split fraction must be in (0, 1), got %g", frac)
	}

	size := d.height * d.width
	trainCount := int(float64(d.count) * frac)
	if trainCount == 0 || trainCount == d.count {
		return nil, nil, fmt.Errorf("split fraction %g leaves an empty partition for %d images", frac, d.count)
	}

	train = &Dataset{
		pixels: d.pixels[:trainCount*size],
		count:  trainCount,
		height: d.height,
		width:  d.width,
	}
	val = &Dataset{
		pixels: d.pixels[trainCount*size:],
		count:  d.count - trainCount,
		height: d.height,
		width:  d.width,
	}
	return train, val, nil
}

// Synthetic generates a dataset of soft Gaussian blobs at random positions:
// digit-free stand-ins with the same value range and shape as MNIST.
// Deterministic for a given seed.
func Synthetic(count, height, width int, seed int64) *Dataset {
	//nolint:gosec // math/rand for synthetic data generation
	rng := rand.New(rand.NewSource(seed))

	size := height * width
	pixels := make([]float32, count*size)

	for n := 0; n < count; n++ {
		cy := rng.Float64()*float64(height-8) + 4
		cx := rng.Float64()*float64(width-8) + 4
		sigma := rng.Float64()*2 + 2

		base := n * size
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				dy := float64(y) - cy
				dx := float64(x) - cx
				v := math.Exp(-(dy*dy + dx*dx) / (2 * sigma * sigma))
				pixels[base+y*width+x] = float32(v)
			}
		}
	}

	return &Dataset{
		pixels: pixels,
		count:  count,
		height: height,
		width:  width,
	}
}

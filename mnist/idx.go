// Package mnist loads MNIST-style image data for VAE training: IDX file
// parsing, normalization, dataset splitting, batching, and a synthetic
// fallback dataset for tests and quick runs.
//
// The VAE is unsupervised, so labels are never loaded.
package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// imagesMagic is the IDX magic number for image files.
const imagesMagic = 2051

// Header sanity bounds. The full MNIST training set is 60k images of
// 28x28; anything far beyond that is a corrupt or hostile header, and
// trusting it would mean a multi-gigabyte allocation before the first
// pixel is read.
const (
	maxImages    = 1 << 24
	maxDimension = 1 << 12
	maxPixels    = 1 << 31
)

// ReadIDXImages parses an MNIST image file in IDX format:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
//
// Pixels are normalized to [0, 1] float32.
func ReadIDXImages(r io.Reader) (*Dataset, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != imagesMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", magic, imagesMagic)
	}

	var numImages, numRows, numCols uint32
	if err := binary.Read(r, binary.BigEndian, &numImages); err != nil {
		return nil, fmt.Errorf("failed to read image count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numRows); err != nil {
		return nil, fmt.Errorf("failed to read row count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numCols); err != nil {
		return nil, fmt.Errorf("failed to read col count: %w", err)
	}

	if numImages == 0 || numImages > maxImages {
		return nil, fmt.Errorf("implausible image count in header: %d", numImages)
	}
	if numRows == 0 || numRows > maxDimension || numCols == 0 || numCols > maxDimension {
		return nil, fmt.Errorf("implausible image dimensions in header: %dx%d", numRows, numCols)
	}
	if total := uint64(numImages) * uint64(numRows) * uint64(numCols); total > maxPixels {
		return nil, fmt.Errorf("header describes %d pixels, refusing to allocate", total)
	}

	imageSize := int(numRows) * int(numCols)
	pixels := make([]float32, int(numImages)*imageSize)
	buf := make([]byte, imageSize)

	for i := 0; i < int(numImages); i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		base := i * imageSize
		for j, b := range buf {
			pixels[base+j] = float32(b) / 255.0
		}
	}

	return &Dataset{
		pixels: pixels,
		count:  int(numImages),
		height: int(numRows),
		width:  int(numCols),
	}, nil
}

// LoadImages reads an IDX image file from disk.
func LoadImages(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	ds, err := ReadIDXImages(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return ds, nil
}

package imaging_test

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/imaging"
	"github.com/latentml/vae/internal/tensor"
)

func TestFromBatch(t *testing.T) {
	backend := cpu.New()
	batch, err := tensor.FromSlice([]float32{
		0.0, 0.5, 1.0, 0.25,
		1.0, 1.0, 0.0, 0.0,
	}, []int{2, 1, 2, 2}, backend)
	require.NoError(t, err)

	images := imaging.FromBatch(batch)
	require.Len(t, images, 2)

	assert.Equal(t, uint8(0), images[0].GrayAt(0, 0).Y)
	assert.Equal(t, uint8(128), images[0].GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), images[0].GrayAt(0, 1).Y)
	assert.Equal(t, uint8(255), images[1].GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), images[1].GrayAt(0, 1).Y)
}

func TestFromBatchClampsOutOfRange(t *testing.T) {
	backend := cpu.New()
	batch, err := tensor.FromSlice([]float32{-0.5, 1.5, 0.5, 0.5}, []int{1, 1, 2, 2}, backend)
	require.NoError(t, err)

	images := imaging.FromBatch(batch)
	assert.Equal(t, uint8(0), images[0].GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), images[0].GrayAt(1, 0).Y)
}

func TestFromBatchRejectsMultiChannel(t *testing.T) {
	backend := cpu.New()
	batch := tensor.Zeros([]int{1, 3, 2, 2}, backend)

	assert.Panics(t, func() { imaging.FromBatch(batch) })
}

func TestGridTilesAndScales(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 2, 2))
	b := image.NewGray(image.Rect(0, 0, 2, 2))
	a.Pix[0] = 255
	b.Pix[3] = 255

	grid, err := imaging.Grid([]*image.Gray{a, b, a}, 2, 2)
	require.NoError(t, err)

	// 2 columns of 4x4 tiles, 2 rows for 3 images.
	assert.Equal(t, image.Rect(0, 0, 8, 8), grid.Bounds())
	// Nearest-neighbor doubling spreads a's corner over a 2x2 block.
	assert.Equal(t, uint8(255), grid.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), grid.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(0), grid.GrayAt(2, 0).Y)
	// b's bottom-right corner lands in the second column.
	assert.Equal(t, uint8(255), grid.GrayAt(7, 3).Y)
}

func TestGridRejectsBadArguments(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))

	_, err := imaging.Grid(nil, 2, 1)
	assert.Error(t, err)

	_, err = imaging.Grid([]*image.Gray{img}, 0, 1)
	assert.Error(t, err)

	_, err = imaging.Grid([]*image.Gray{img}, 1, 0)
	assert.Error(t, err)
}

func TestWriteGridPNG(t *testing.T) {
	backend := cpu.New()
	batch := tensor.Rand([]int{4, 1, 4, 4}, backend)
	images := imaging.FromBatch(batch)

	path := filepath.Join(t.TempDir(), "grid.png")
	require.NoError(t, imaging.WriteGridPNG(path, images, 2, 4))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), decoded.Bounds())
}

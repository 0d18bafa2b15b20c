package mnist_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/internal/tensor"
	"github.com/latentml/vae/mnist"
)

// writeIDX builds an in-memory IDX image file.
func writeIDX(t *testing.T, images [][]byte, rows, cols int) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(2051)))
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(len(images))))
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(rows)))
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(cols)))
	for _, img := range images {
		buf.Write(img)
	}
	return buf
}

func TestReadIDXImages(t *testing.T) {
	img0 := make([]byte, 4)
	img1 := make([]byte, 4)
	copy(img0, []byte{0, 255, 128, 64})
	copy(img1, []byte{255, 0, 0, 255})

	ds, err := mnist.ReadIDXImages(writeIDX(t, [][]byte{img0, img1}, 2, 2))
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 2, ds.Height())
	assert.Equal(t, 2, ds.Width())

	// Normalized to [0, 1].
	assert.InDelta(t, 0.0, ds.Image(0)[0], 1e-6)
	assert.InDelta(t, 1.0, ds.Image(0)[1], 1e-6)
	assert.InDelta(t, 128.0/255.0, ds.Image(0)[2], 1e-6)
	assert.InDelta(t, 1.0, ds.Image(1)[3], 1e-6)
}

func TestReadIDXImagesBadMagic(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(2049))) // label magic

	_, err := mnist.ReadIDXImages(buf)
	assert.Error(t, err)
}

func TestReadIDXImagesTruncated(t *testing.T) {
	buf := writeIDX(t, [][]byte{make([]byte, 4)}, 2, 2)
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])

	_, err := mnist.ReadIDXImages(truncated)
	assert.Error(t, err)
}

// writeIDXHeader builds only the 16-byte header, with arbitrary counts.
func writeIDXHeader(t *testing.T, images, rows, cols uint32) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.BigEndian, uint32(2051)))
	require.NoError(t, binary.Write(buf, binary.BigEndian, images))
	require.NoError(t, binary.Write(buf, binary.BigEndian, rows))
	require.NoError(t, binary.Write(buf, binary.BigEndian, cols))
	return buf
}

func TestReadIDXImagesRejectsCorruptHeader(t *testing.T) {
	cases := []struct {
		name               string
		images, rows, cols uint32
	}{
		{"zero images", 0, 28, 28},
		{"zero rows", 10, 0, 28},
		{"zero cols", 10, 28, 0},
		{"huge image count", 1 << 30, 28, 28},
		{"huge dimensions", 10, 1 << 20, 1 << 20},
		// rows*cols wraps uint32 to a tiny product; the per-field bound
		// must catch it before any arithmetic.
		{"dimension product wraps", 1, 1 << 16, 1 << 16},
		{"plausible fields, implausible total", 1 << 23, 1 << 11, 1 << 11},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mnist.ReadIDXImages(writeIDXHeader(t, tc.images, tc.rows, tc.cols))
			assert.Error(t, err)
		})
	}
}

func TestBatchShapesAndContent(t *testing.T) {
	backend := cpu.New()
	ds := mnist.Synthetic(10, 8, 8, 1)

	batch := mnist.Batch(ds, []int{3, 7, 1}, backend)

	require.Equal(t, tensor.Shape{3, 1, 8, 8}, batch.Shape())
	assert.Equal(t, ds.Image(3), batch.Data()[:64])
	assert.Equal(t, ds.Image(1), batch.Data()[128:192])
}

func TestSplit(t *testing.T) {
	ds := mnist.Synthetic(10, 4, 4, 1)

	train, val, err := ds.Split(0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, val.Len())

	// Validation starts where training ends.
	assert.Equal(t, ds.Image(8), val.Image(0))
}

func TestSplitRejectsDegenerateFractions(t *testing.T) {
	ds := mnist.Synthetic(4, 4, 4, 1)

	_, _, err := ds.Split(0)
	assert.Error(t, err)
	_, _, err = ds.Split(1)
	assert.Error(t, err)
	_, _, err = ds.Split(0.01) // empty training partition
	assert.Error(t, err)
}

func TestSyntheticDeterministicAndNormalized(t *testing.T) {
	a := mnist.Synthetic(4, 28, 28, 42)
	b := mnist.Synthetic(4, 28, 28, 42)
	c := mnist.Synthetic(4, 28, 28, 43)

	assert.Equal(t, a.Image(0), b.Image(0))
	assert.NotEqual(t, a.Image(0), c.Image(0))

	for _, v := range a.Image(0) {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
}

func TestNewDatasetValidatesLength(t *testing.T) {
	_, err := mnist.NewDataset(make([]float32, 10), 2, 4, 4)
	assert.Error(t, err)

	ds, err := mnist.NewDataset(make([]float32, 32), 2, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

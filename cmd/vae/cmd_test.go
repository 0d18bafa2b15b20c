package main

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentml/vae/internal/autodiff"
	"github.com/latentml/vae/internal/backend/cpu"
	"github.com/latentml/vae/vae"
)

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0, 2)
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "train")
	assert.Contains(t, names, "generate")
	assert.Equal(t, version, root.Version)
}

func TestBuildOptimizer(t *testing.T) {
	backend := autodiff.New(cpu.New())
	model, err := vae.New(vae.DefaultConfig(), backend)
	require.NoError(t, err)

	for _, name := range []string{"rmsprop", "sgd"} {
		opt, err := buildOptimizer(trainOptions{optimizer: name, lr: 0.001}, model, backend)
		require.NoError(t, err, name)
		assert.InDelta(t, 0.001, float64(opt.GetLR()), 1e-9)
	}

	_, err = buildOptimizer(trainOptions{optimizer: "adamw"}, model, backend)
	assert.Error(t, err)
}

func TestLatentSweep(t *testing.T) {
	backend := cpu.New()

	z, err := latentSweep(3, 1, backend)
	require.NoError(t, err)
	require.Equal(t, []int{9, 2}, []int(z.Shape()))

	// Top-left corner of the lattice: z0 = -r, z1 = +r.
	assert.InDelta(t, -1, z.At(0, 0), 1e-6)
	assert.InDelta(t, 1, z.At(0, 1), 1e-6)
	// Center point.
	assert.InDelta(t, 0, z.At(4, 0), 1e-6)
	assert.InDelta(t, 0, z.At(4, 1), 1e-6)
	// Bottom-right corner: z0 = +r, z1 = -r.
	assert.InDelta(t, 1, z.At(8, 0), 1e-6)
	assert.InDelta(t, -1, z.At(8, 1), 1e-6)

	_, err = latentSweep(1, 1, backend)
	assert.Error(t, err)
	_, err = latentSweep(3, 0, backend)
	assert.Error(t, err)
}

func TestRunGenerateWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.png")

	err := runGenerate(generateOptions{
		count:     4,
		cols:      2,
		scale:     1,
		latentDim: 2,
		seed:      1,
		output:    path,
	})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 56, 56), decodePNG(t, path).Bounds())
}

func TestRunGenerateLatentWalk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.png")

	err := runGenerate(generateOptions{
		scale:     1,
		latentDim: 2,
		seed:      1,
		walk:      2,
		walkRange: 2,
		output:    path,
	})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 56, 56), decodePNG(t, path).Bounds())

	// The sweep needs both latent coordinates.
	err = runGenerate(generateOptions{
		scale:     1,
		latentDim: 4,
		walk:      2,
		walkRange: 2,
		output:    path,
	})
	assert.Error(t, err)
}

func TestRunTrainSmoke(t *testing.T) {
	outDir := t.TempDir()

	err := runTrain(trainOptions{
		synthetic: 20,
		epochs:    1,
		batchSize: 4,
		latentDim: 2,
		lr:        0.001,
		optimizer: "rmsprop",
		seed:      1,
		valFrac:   0.2,
		outDir:    outDir,
	})
	require.NoError(t, err)

	for _, name := range []string{"reconstructions.png", "samples.png"} {
		img := decodePNG(t, filepath.Join(outDir, name))
		assert.False(t, img.Bounds().Empty(), name)
	}
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

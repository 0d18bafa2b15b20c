package cpu

import (
	"fmt"

	"github.com/latentml/vae/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out]
//
// where:
//
//	out_h = (H + 2*padding - K_h) / stride + 1
//	out_w = (W + 2*padding - K_w) / stride + 1
//
// Im2col converts convolution into a matrix multiplication: input patches are
// unrolled into columns and multiplied against the flattened kernel.
//
// Reference: "High Performance Convolutional Neural Networks for Document
// Processing" (Chellapilla et al., 2006).
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[0]
	KH := kernelShape[2]
	KW := kernelShape[3]

	if CIn != kernelShape[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, kernelShape[1]))
	}

	HOut := (H+2*padding-KH)/stride + 1
	WOut := (W+2*padding-KW)/stride + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", HOut, WOut))
	}

	output, err := tensor.NewRaw(tensor.Shape{N, COut, HOut, WOut}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: failed to create output tensor: %v", err))
	}

	inputData := input.Data()
	kernelData := kernel.Data()
	outputData := output.Data()

	// Step 1: Im2col transformation.
	// colBuf: [N * H_out * W_out, C_in * K_h * K_w]
	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colBuf := make([]float32, colHeight*colWidth)
	im2col(colBuf, inputData, N, CIn, H, W, KH, KW, HOut, WOut, stride, padding)

	// Step 2: kernelData is already laid out as [C_out, C_in*K_h*K_w] (row-major).
	// Step 3: result[c, j] = sum_k kernel[c, k] * colBuf[j, k].
	for c := 0; c < COut; c++ {
		kRow := kernelData[c*colWidth : (c+1)*colWidth]
		for j := 0; j < colHeight; j++ {
			col := colBuf[j*colWidth : (j+1)*colWidth]
			var sum float32
			for k := range kRow {
				sum += kRow[k] * col[k]
			}
			// Step 4: j decomposes as (n, oh, ow); place directly in NCHW layout.
			n := j / (HOut * WOut)
			pos := j % (HOut * WOut)
			outputData[n*COut*HOut*WOut+c*HOut*WOut+pos] = sum
		}
	}

	return output
}

// im2col unrolls input patches into the rows of colBuf.
//
// Each row of colBuf corresponds to one output position; each column to one
// kernel weight. Out-of-bounds positions (padding) are left at zero.
func im2col(colBuf, inputData []float32, n, c, h, w, kh, kw, hOut, wOut, stride, padding int) {
	colWidth := c * kh * kw
	colIdx := 0

	for batch := 0; batch < n; batch++ {
		for outH := 0; outH < hOut; outH++ {
			for outW := 0; outW < wOut; outW++ {
				hStart := outH*stride - padding
				wStart := outW*stride - padding
				bufIdx := colIdx * colWidth

				for chn := 0; chn < c; chn++ {
					for ki := 0; ki < kh; ki++ {
						for kj := 0; kj < kw; kj++ {
							hi := hStart + ki
							wi := wStart + kj
							if hi >= 0 && hi < h && wi >= 0 && wi < w {
								colBuf[bufIdx] = inputData[batch*c*h*w+chn*h*w+hi*w+wi]
							}
							bufIdx++
						}
					}
				}
				colIdx++
			}
		}
	}
}

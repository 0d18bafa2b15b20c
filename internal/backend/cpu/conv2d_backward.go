package cpu

import (
	"fmt"

	"github.com/latentml/vae/internal/tensor"
)

// Conv2DInputBackward computes the gradient of a convolution with respect to
// its input. This is the transposed convolution of the output gradient with
// the kernel: each output-gradient element is routed back to the input
// positions that contributed to it.
//
// gradOutput shape: [N, C_out, H_out, W_out]
// Kernel shape:     [C_out, C_in, K_h, K_w]
// Result shape:     [N, C_in, H, W] (matches the forward input)
func (cpu *CPUBackend) Conv2DInputBackward(input, kernel, gradOutput *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := gradOutput.Shape()

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[0]
	KH := kernelShape[2]
	KW := kernelShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	gradInput, err := tensor.NewRaw(inputShape.Clone(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d input backward: failed to create gradient tensor: %v", err))
	}

	kernelData := kernel.Data()
	gradData := gradOutput.Data()
	gradInputData := gradInput.Data()

	// Scatter: grad_input[n,ci,h,w] += grad[n,co,oh,ow] * kernel[co,ci,kh,kw]
	// for every (oh,ow,kh,kw) with oh*stride - padding + kh == h, etc.
	for n := 0; n < N; n++ {
		for co := 0; co < COut; co++ {
			for oh := 0; oh < HOut; oh++ {
				for ow := 0; ow < WOut; ow++ {
					g := gradData[n*COut*HOut*WOut+co*HOut*WOut+oh*WOut+ow]
					if g == 0 {
						continue
					}
					hStart := oh*stride - padding
					wStart := ow*stride - padding
					for ci := 0; ci < CIn; ci++ {
						for kh := 0; kh < KH; kh++ {
							hi := hStart + kh
							if hi < 0 || hi >= H {
								continue
							}
							for kw := 0; kw < KW; kw++ {
								wi := wStart + kw
								if wi < 0 || wi >= W {
									continue
								}
								k := kernelData[co*CIn*KH*KW+ci*KH*KW+kh*KW+kw]
								gradInputData[n*CIn*H*W+ci*H*W+hi*W+wi] += g * k
							}
						}
					}
				}
			}
		}
	}

	return gradInput
}

// Conv2DKernelBackward computes the gradient of a convolution with respect to
// its kernel: the correlation of the input with the output gradient.
//
// Result shape: [C_out, C_in, K_h, K_w] (matches the forward kernel)
func (cpu *CPUBackend) Conv2DKernelBackward(input, kernel, gradOutput *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := gradOutput.Shape()

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[0]
	KH := kernelShape[2]
	KW := kernelShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	gradKernel, err := tensor.NewRaw(kernelShape.Clone(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d kernel backward: failed to create gradient tensor: %v", err))
	}

	inputData := input.Data()
	gradData := gradOutput.Data()
	gradKernelData := gradKernel.Data()

	for n := 0; n < N; n++ {
		for co := 0; co < COut; co++ {
			for oh := 0; oh < HOut; oh++ {
				for ow := 0; ow < WOut; ow++ {
					g := gradData[n*COut*HOut*WOut+co*HOut*WOut+oh*WOut+ow]
					if g == 0 {
						continue
					}
					hStart := oh*stride - padding
					wStart := ow*stride - padding
					for ci := 0; ci < CIn; ci++ {
						for kh := 0; kh < KH; kh++ {
							hi := hStart + kh
							if hi < 0 || hi >= H {
								continue
							}
							for kw := 0; kw < KW; kw++ {
								wi := wStart + kw
								if wi < 0 || wi >= W {
									continue
								}
								x := inputData[n*CIn*H*W+ci*H*W+hi*W+wi]
								gradKernelData[co*CIn*KH*KW+ci*KH*KW+kh*KW+kw] += g * x
							}
						}
					}
				}
			}
		}
	}

	return gradKernel
}

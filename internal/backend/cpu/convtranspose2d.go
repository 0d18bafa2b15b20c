package cpu

import (
	"fmt"

	"github.com/latentml/vae/internal/tensor"
)

// ConvTranspose2D performs 2D transposed convolution (fractionally-strided
// convolution), the upsampling counterpart of Conv2D.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_in, C_out, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out]
//
// where:
//
//	out_h = (H - 1)*stride - 2*padding + K_h + outPadding
//	out_w = (W - 1)*stride - 2*padding + K_w + outPadding
//
// Each input element is scattered into the output across the kernel window,
// the exact adjoint of the Conv2D gather. outPadding adds rows/columns on the
// bottom-right edge only, disambiguating output sizes when stride > 1.
func (cpu *CPUBackend) ConvTranspose2D(input, kernel *tensor.RawTensor, stride, padding, outPadding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv_transpose2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv_transpose2d: kernel must be 4D [C_in,C_out,K_h,K_w], got %dD", len(kernelShape)))
	}

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[1]
	KH := kernelShape[2]
	KW := kernelShape[3]

	if CIn != kernelShape[0] {
		panic(fmt.Sprintf("conv_transpose2d: input channels %d != kernel channels %d", CIn, kernelShape[0]))
	}
	if outPadding >= stride {
		panic(fmt.Sprintf("conv_transpose2d: outPadding %d must be < stride %d", outPadding, stride))
	}

	HOut := (H-1)*stride - 2*padding + KH + outPadding
	WOut := (W-1)*stride - 2*padding + KW + outPadding
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv_transpose2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", HOut, WOut))
	}

	output, err := tensor.NewRaw(tensor.Shape{N, COut, HOut, WOut}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv_transpose2d: failed to create output tensor: %v", err))
	}

	inputData := input.Data()
	kernelData := kernel.Data()
	outputData := output.Data()

	// Scatter: out[n,co,hi*s-p+kh, wi*s-p+kw] += in[n,ci,hi,wi] * k[ci,co,kh,kw].
	for n := 0; n < N; n++ {
		for ci := 0; ci < CIn; ci++ {
			for hi := 0; hi < H; hi++ {
				for wi := 0; wi < W; wi++ {
					x := inputData[n*CIn*H*W+ci*H*W+hi*W+wi]
					if x == 0 {
						continue
					}
					hStart := hi*stride - padding
					wStart := wi*stride - padding
					for co := 0; co < COut; co++ {
						for kh := 0; kh < KH; kh++ {
							ho := hStart + kh
							if ho < 0 || ho >= HOut {
								continue
							}
							for kw := 0; kw < KW; kw++ {
								wo := wStart + kw
								if wo < 0 || wo >= WOut {
									continue
								}
								k := kernelData[ci*COut*KH*KW+co*KH*KW+kh*KW+kw]
								outputData[n*COut*HOut*WOut+co*HOut*WOut+ho*WOut+wo] += x * k
							}
						}
					}
				}
			}
		}
	}

	return output
}

// ConvTranspose2DInputBackward computes the gradient of a transposed
// convolution with respect to its input. Since the forward pass scatters,
// the backward pass gathers: it is an ordinary correlation of the output
// gradient with the kernel.
//
// Result shape: [N, C_in, H, W] (matches the forward input)
func (cpu *CPUBackend) ConvTranspose2DInputBackward(input, kernel, gradOutput *tensor.RawTensor, stride, padding, outPadding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := gradOutput.Shape()

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[1]
	KH := kernelShape[2]
	KW := kernelShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	gradInput, err := tensor.NewRaw(inputShape.Clone(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv_transpose2d input backward: failed to create gradient tensor: %v", err))
	}

	kernelData := kernel.Data()
	gradData := gradOutput.Data()
	gradInputData := gradInput.Data()

	// grad_input[n,ci,hi,wi] = sum over (co,kh,kw) of
	// grad[n,co,hi*s-p+kh, wi*s-p+kw] * k[ci,co,kh,kw].
	for n := 0; n < N; n++ {
		for ci := 0; ci < CIn; ci++ {
			for hi := 0; hi < H; hi++ {
				for wi := 0; wi < W; wi++ {
					hStart := hi*stride - padding
					wStart := wi*stride - padding
					var sum float32
					for co := 0; co < COut; co++ {
						for kh := 0; kh < KH; kh++ {
							ho := hStart + kh
							if ho < 0 || ho >= HOut {
								continue
							}
							for kw := 0; kw < KW; kw++ {
								wo := wStart + kw
								if wo < 0 || wo >= WOut {
									continue
								}
								g := gradData[n*COut*HOut*WOut+co*HOut*WOut+ho*WOut+wo]
								k := kernelData[ci*COut*KH*KW+co*KH*KW+kh*KW+kw]
								sum += g * k
							}
						}
					}
					gradInputData[n*CIn*H*W+ci*H*W+hi*W+wi] = sum
				}
			}
		}
	}

	return gradInput
}

// ConvTranspose2DKernelBackward computes the gradient of a transposed
// convolution with respect to its kernel.
//
// Result shape: [C_in, C_out, K_h, K_w] (matches the forward kernel)
func (cpu *CPUBackend) ConvTranspose2DKernelBackward(input, kernel, gradOutput *tensor.RawTensor, stride, padding, outPadding int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()
	gradShape := gradOutput.Shape()

	N := inputShape[0]
	CIn := inputShape[1]
	H := inputShape[2]
	W := inputShape[3]
	COut := kernelShape[1]
	KH := kernelShape[2]
	KW := kernelShape[3]
	HOut := gradShape[2]
	WOut := gradShape[3]

	gradKernel, err := tensor.NewRaw(kernelShape.Clone(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv_transpose2d kernel backward: failed to create gradient tensor: %v", err))
	}

	inputData := input.Data()
	gradData := gradOutput.Data()
	gradKernelData := gradKernel.Data()

	// grad_k[ci,co,kh,kw] = sum over (n,hi,wi) of
	// in[n,ci,hi,wi] * grad[n,co,hi*s-p+kh, wi*s-p+kw].
	for n := 0; n < N; n++ {
		for ci := 0; ci < CIn; ci++ {
			for hi := 0; hi < H; hi++ {
				for wi := 0; wi < W; wi++ {
					x := inputData[n*CIn*H*W+ci*H*W+hi*W+wi]
					if x == 0 {
						continue
					}
					hStart := hi*stride - padding
					wStart := wi*stride - padding
					for co := 0; co < COut; co++ {
						for kh := 0; kh < KH; kh++ {
							ho := hStart + kh
							if ho < 0 || ho >= HOut {
								continue
							}
							for kw := 0; kw < KW; kw++ {
								wo := wStart + kw
								if wo < 0 || wo >= WOut {
									continue
								}
								g := gradData[n*COut*HOut*WOut+co*HOut*WOut+ho*WOut+wo]
								gradKernelData[ci*COut*KH*KW+co*KH*KW+kh*KW+kw] += x * g
							}
						}
					}
				}
			}
		}
	}

	return gradKernel
}

// Package main provides the vae CLI for training a convolutional
// variational autoencoder on MNIST digits and sampling from its latent
// space.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vae",
		Short:         "Convolutional variational autoencoder for MNIST digits",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTrainCmd(),
		newGenerateCmd(),
	)
	return root
}

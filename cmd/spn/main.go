// Command spn exposes the SPN cipher and its statistical harness.
package main

import (
	"github.com/spf13/cobra"

	"github.com/jedisct1/go-spn/internal/common"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spn",
		Short: "Pedagogical substitution-permutation cipher",
		Long: `spn generates keys, encrypts and decrypts with a small substitution-permutation
network cipher, and measures its statistical properties.

Bit strings are given and printed as sequences of 0 and 1. Spaces and
underscores are ignored on input.

The cipher:
• GEN expands an n bit seed into a 4n bit key with SHA-256 in counter mode
• ENC applies 4 rounds of subkey XOR, 4-bit S-box substitution and a bit permutation
• DEC applies the inverse rounds in reverse order
• Message and key lengths must match and be a multiple of 4

It is a teaching tool, not a secure cipher.`,
		Example: `  # Derive a key from a seed
  spn gen 10110101

  # Encrypt and decrypt with that key
  spn enc 00010100010101011001001110001000 10101010101010101010101010101010
  spn dec 00010100010101011001001110001000 00011111111111110001111110111101

  # Run the full statistical harness
  spn bench -c bench.toml

  # Quality report for a single seed
  spn testbench --seed-bits 0101101001 --runs 4000 --trials 300`,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newGenCommand(),
		newEncCommand(),
		newDecCommand(),
		newBenchCommand(),
		newTestbenchCommand(),
		newHistoryCommand(),
	)
	return cmd
}

func main() {
	common.ExecuteWithFang(newRootCommand())
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jedisct1/go-spn"
)

func parseArg(name, s string) (spn.Bits, error) {
	v, err := spn.ParseBits(s)
	if err != nil {
		return spn.Bits{}, fmt.Errorf("invalid argument %s: %w", name, err)
	}
	return v, nil
}

func newGenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gen <seed>",
		Short: "Derive a key from a seed",
		Long:  "Derive a key of 4*len(seed) bits from the seed and print it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := parseArg("seed", args[0])
			if err != nil {
				return err
			}
			key, err := spn.GenerateKey(seed)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}

func newEncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enc <key> <message>",
		Short: "Encrypt a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCipher(cmd, args, spn.Encrypt)
		},
	}
}

func newDecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dec <key> <ciphertext>",
		Short: "Decrypt a ciphertext",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCipher(cmd, args, spn.Decrypt)
		},
	}
}

func runCipher(cmd *cobra.Command, args []string, fn func(key, data spn.Bits) (spn.Bits, error)) error {
	key, err := parseArg("key", args[0])
	if err != nil {
		return err
	}
	data, err := parseArg("data", args[1])
	if err != nil {
		return err
	}
	out, err := fn(key, data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

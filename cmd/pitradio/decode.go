package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	c "github.com/unkn0wn-root/pitradio/codec"
)

func newDecodeCmd() *cobra.Command {
	var (
		asJSON bool
		keepNL bool
	)
	cmd := &cobra.Command{
		Use:   "decode [buffer]",
		Short: "Decode a buffer back into commands",
		Long:  "Decode a buffer given as the argument, or read from stdin when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cmds []string
				err  error
			)
			if len(args) == 1 {
				cmds, err = c.DecodeBytes([]byte(args[0]))
			} else {
				b, rerr := io.ReadAll(cmd.InOrStdin())
				if rerr != nil {
					return rerr
				}
				cmds, err = decodeStdin(b, keepNL)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				return enc.Encode(cmds)
			}
			for _, s := range cmds {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON array instead of one command per line")
	cmd.Flags().BoolVar(&keepNL, "keep-newline", false,
		"never strip a trailing newline from stdin (by default it is stripped only when the buffer does not decode as read)")
	return cmd
}

// decodeStdin decodes b as read. Unless keepNL is set, a buffer that fails
// is retried without its trailing line ending, so "1:\n" keeps its payload
// while "4:Push\n" from echo still decodes.
func decodeStdin(b []byte, keepNL bool) ([]string, error) {
	cmds, err := c.DecodeBytes(b)
	if err == nil || keepNL {
		return cmds, err
	}
	trimmed := bytes.TrimSuffix(bytes.TrimSuffix(b, []byte("\n")), []byte("\r"))
	if len(trimmed) == len(b) {
		return nil, err
	}
	return c.DecodeBytes(trimmed)
}

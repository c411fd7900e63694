package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	c "github.com/unkn0wn-root/pitradio/codec"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactively encode comma-separated commands and check the round trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runREPL(in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "F1 Radio Codec - Interactive Testing")
	fmt.Fprintln(out, "=====================================")
	fmt.Fprintln(out, "Enter commands separated by commas, or 'quit' to exit")
	fmt.Fprintln(out, "Example: Push,Box,box,Overtake")
	fmt.Fprintln(out)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter commands: ")
		if !sc.Scan() {
			fmt.Fprintln(out, "\nGoodbye!")
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if strings.EqualFold(line, "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if line == "" {
			fmt.Fprintln(out, "Please enter some commands.")
			continue
		}

		parts := strings.Split(line, ",")
		cmds := make([]string, len(parts))
		for i, p := range parts {
			cmds[i] = strings.TrimSpace(p)
		}
		fmt.Fprintf(out, "Original: %q\n", cmds)

		if err := roundTrip(out, cmds); err != nil {
			label := "Error"
			if !errors.Is(err, c.ErrEncoding) && !errors.Is(err, c.ErrDecoding) {
				label = "Unexpected error"
			}
			fmt.Fprintf(out, "%s: %v\n\n", label, err)
			continue
		}
		fmt.Fprintln(out)
	}
}

func roundTrip(out io.Writer, cmds []string) error {
	encoded, err := c.Encode(cmds)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Encoded:  %s\n", encoded)

	decoded, err := c.Decode(encoded)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Decoded:  %q\n", decoded)

	if reflect.DeepEqual(cmds, decoded) {
		fmt.Fprintln(out, "✓ Round trip successful!")
	} else {
		fmt.Fprintln(out, "✗ Round trip failed!")
	}
	return nil
}

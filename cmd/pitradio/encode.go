package main

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	c "github.com/unkn0wn-root/pitradio/codec"
)

func newEncodeCmd() *cobra.Command {
	var (
		jsonDoc  string
		jsonPath string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "encode [command...]",
		Short: "Encode commands into one buffer",
		Example: `  pitradio encode Push "Box,box" Overtake
  pitradio encode --json '["Push","Box,box"]'
  pitradio encode --json '{"lap":12,"radio":["Push"]}' --path radio`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds := args
			if jsonDoc != "" {
				if len(args) > 0 {
					return errors.New("pass commands as arguments or --json, not both")
				}
				var err error
				if cmds, err = commandsFromJSON(jsonDoc, jsonPath); err != nil {
					return err
				}
			}

			lc, err := c.ByName(format)
			if err != nil {
				return err
			}
			b, err := lc.Encode(cmds)
			if err != nil {
				return err
			}
			if format == "frames" {
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&jsonDoc, "json", "", "JSON array of strings to encode")
	cmd.Flags().StringVar(&jsonPath, "path", "", "gjson path to the array inside --json")
	cmd.Flags().StringVarP(&format, "format", "f", "frames", fmt.Sprintf("output format %v; non-frames output is base64", c.Names()))
	return cmd
}

// commandsFromJSON picks the array at path (or the whole document) and checks
// it holds only strings.
func commandsFromJSON(doc, path string) ([]string, error) {
	if !gjson.Valid(doc) {
		return nil, errors.New("--json is not valid JSON")
	}
	res := gjson.Parse(doc)
	if path != "" {
		res = res.Get(path)
		if !res.Exists() {
			return nil, fmt.Errorf("path %q not found in --json", path)
		}
	}
	return c.Commands(res.Value())
}

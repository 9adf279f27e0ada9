package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"handcut/internal/services"
	"handcut/internal/timecode"
)

func newTimecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "timecode <seconds|HH:MM:SS>",
		Short:       "Convert between seconds and HH:MM:SS",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.TrimSpace(args[0])
			out := cmd.OutOrStdout()
			if strings.Contains(value, ":") {
				seconds, err := timecode.Parse(value)
				if err != nil {
					return services.Wrap(services.ErrValidation, "timecode", "parse", value, err)
				}
				fmt.Fprintln(out, strconv.FormatFloat(seconds, 'f', -1, 64))
				return nil
			}
			seconds, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return services.Wrap(services.ErrValidation, "timecode", "parse", value, err)
			}
			fmt.Fprintln(out, timecode.FormatTimestamp(seconds))
			return nil
		},
	}
}

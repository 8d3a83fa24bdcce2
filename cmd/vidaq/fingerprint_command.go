package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vidaq/internal/fingerprint"
)

func newFingerprintCommand() *cobra.Command {
	var pitch string

	cmd := &cobra.Command{
		Use:         "fingerprint FILE",
		Short:       "Print the catalog fingerprint for a file and pitch",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer file.Close()

			fp, err := fingerprint.FromReader(file, fingerprint.ParsePitch(pitch))
			if err != nil {
				return fmt.Errorf("fingerprint %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), fp.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&pitch, "pitch", "1.0", "Pitch factor applied at upload")
	return cmd
}

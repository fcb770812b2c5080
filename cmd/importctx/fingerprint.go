package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrsinham/importctx/internal/scan"
	"github.com/mrsinham/importctx/internal/util"
)

func newFingerprintCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: "Print the scanner fingerprint and patient fields of a DICOM file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := scan.FromFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Manufacturer:  %s\n", info.Fingerprint.ManufacturerName)
			fmt.Fprintf(out, "Model:         %s\n", info.Fingerprint.ModelName)
			fmt.Fprintf(out, "Serial number: %s\n", info.Fingerprint.SerialNumber)
			fmt.Fprintf(out, "Modality:      %s\n", info.Modality)
			fmt.Fprintf(out, "Patient:       %s\n", util.DisplayName(info.PatientName))
			fmt.Fprintf(out, "Date:          %s\n", info.Date())
			for _, name := range tags {
				v, err := info.Tag(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", name, v)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "also print this tag, by name (repeatable)")
	return cmd
}

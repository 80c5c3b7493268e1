package cli

import (
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"
)

// vidocr's licence followed by the notices of bundled tools
//
//go:embed license.txt
var licenseText string

func newLicenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "license",
		Short: "Print license and third-party notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), licenseText)
			return err
		},
	}
}

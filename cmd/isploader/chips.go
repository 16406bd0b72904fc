package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/isploader/cmd/isploader/console"
	"github.com/mklimuk/isploader/config"
)

var chipsCmd = cli.Command{
	Name:  "chips",
	Usage: "list supported chips",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(console.Writer(), 12, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "NAME\tSIGNATURE\tFLASH\tPAGE\tEEPROM\tAPP\tADDRESSABLE\n")
		for _, chip := range config.Chips() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%t\n",
				chip.Name, chip.SignatureString(), chip.FlashSize, chip.PageSize, chip.EEPROMSize, chip.AppSize(), chip.Addressable())
		}
		return w.Flush()
	},
}

// chipBySignature finds the registered chip with the given signature.
func chipBySignature(sig [3]byte) (config.Chip, bool) {
	for _, chip := range config.Chips() {
		if chip.Signature == sig {
			return chip, true
		}
	}
	return config.Chip{}, false
}

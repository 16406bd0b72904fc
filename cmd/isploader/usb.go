package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/gousb"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/isploader/cmd/isploader/console"
	"github.com/mklimuk/isploader/usbtiny"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "inspect the USB bus",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

// listDevices prints the descriptors accepted by match without opening
// any device.
func listDevices(match func(desc *gousb.DeviceDesc) bool) error {
	ctx := gousb.NewContext()
	defer func() {
		_ = ctx.Close()
	}()

	w := tabwriter.NewWriter(console.Writer(), 10, 0, 1, ' ', 0)
	_, _ = fmt.Fprintf(w, "BUS\tADDRESS\tVENDOR\tPRODUCT\tSPEED\n")
	_, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if match(desc) {
			_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", desc.Bus, desc.Address, desc.Vendor, desc.Product, desc.Speed)
		}
		return false
	})
	if err != nil {
		return console.Fail(console.ExitFailure, "usb enumeration", err)
	}
	return w.Flush()
}

var usbLsCmd = cli.Command{
	Name:  "ls",
	Usage: "list all USB devices",
	Action: func(c *cli.Context) error {
		return listDevices(func(*gousb.DeviceDesc) bool { return true })
	},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list USBtinyISP compatible devices",
	Action: func(c *cli.Context) error {
		return listDevices(func(desc *gousb.DeviceDesc) bool {
			return desc.Vendor == gousb.ID(usbtiny.VendorID) && desc.Product == gousb.ID(usbtiny.ProductID)
		})
	},
}

package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/isploader/cmd/isploader/console"
	"github.com/mklimuk/isploader/config"
	"github.com/mklimuk/isploader/host"
	"github.com/mklimuk/isploader/sim"
)

var deviceCmd = cli.Command{
	Name:  "device",
	Usage: "talk to a USBtinyISP bootloader over USB",
	Subcommands: cli.Commands{
		&deviceInfoCmd,
		&deviceReadCmd,
		&deviceWriteCmd,
		&deviceExitCmd,
	},
}

// withDevice opens the device, identifies the chip and runs fn.
func withDevice(c *cli.Context, fn func(client *host.Client, chip config.Chip) error) error {
	dev, err := host.Open()
	if err != nil {
		if errors.Is(err, host.ErrNotFound) {
			return console.Exit(console.ExitNoDevice, "no USBtinyISP device connected")
		}
		return console.Fail(console.ExitNoDevice, "open", err)
	}
	defer func() {
		_ = dev.Close()
	}()
	console.Debugf("opened %s", dev)

	client := host.NewClient(dev, host.WithProgress(progress))
	if err := client.PowerUp(10, true); err != nil {
		return console.Fail(console.ExitFailure, "power up", err)
	}
	if err := client.Enable(); err != nil {
		return console.Fail(console.ExitFailure, "programming enable", err)
	}
	sig, err := client.Signature()
	if err != nil {
		return console.Fail(console.ExitFailure, "signature", err)
	}
	chip, ok := chipBySignature(sig)
	if !ok {
		return console.Exit(console.ExitFailure, "unknown chip signature %s", console.Hex(sig[:]))
	}
	client = host.NewClient(dev, host.WithPageSize(chip.PageSize), host.WithProgress(progress))
	return fn(client, chip)
}

type deviceInfo struct {
	Manufacturer string     `yaml:"manufacturer,omitempty"`
	Product      string     `yaml:"product,omitempty"`
	Chip         string     `yaml:"chip"`
	Signature    string     `yaml:"signature"`
	Flash        int        `yaml:"flash_bytes"`
	Application  int        `yaml:"application_bytes"`
	PageSize     int        `yaml:"page_size"`
	EEPROM       int        `yaml:"eeprom_bytes"`
	Fuses        host.Fuses `yaml:"fuses"`
}

var deviceInfoCmd = cli.Command{
	Name:  "info",
	Usage: "identify the chip behind the bootloader",
	Action: func(c *cli.Context) error {
		return withDevice(c, func(client *host.Client, chip config.Chip) error {
			fuses, err := client.Fuses()
			if err != nil {
				return console.Fail(console.ExitFailure, "fuses", err)
			}
			info := deviceInfo{
				Chip:        chip.Name,
				Signature:   chip.SignatureString(),
				Flash:       chip.FlashSize,
				Application: chip.AppSize(),
				PageSize:    chip.PageSize,
				EEPROM:      chip.EEPROMSize,
				Fuses:       fuses,
			}
			return yaml.NewEncoder(console.Writer()).Encode(info)
		})
	},
}

var deviceReadCmd = cli.Command{
	Name:  "read",
	Usage: "read flash or EEPROM into an Intel HEX file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file", Required: true},
		&cli.BoolFlag{Name: "eeprom", Usage: "read EEPROM instead of flash"},
		&cli.IntFlag{Name: "address", Usage: "start address"},
		&cli.IntFlag{Name: "length", Usage: "bytes to read (defaults to the application section or the whole EEPROM)"},
	},
	Action: func(c *cli.Context) error {
		return withDevice(c, func(client *host.Client, chip config.Chip) error {
			addr := uint32(c.Int("address"))
			read, size := client.ReadFlash, chip.AppSize()
			if c.Bool("eeprom") {
				read, size = client.ReadEEPROM, chip.EEPROMSize
			}
			if c.IsSet("length") {
				size = c.Int("length")
			}
			data, err := read(addr, size)
			if err != nil {
				return console.Fail(console.ExitFailure, "read", err)
			}
			if err := writeImage(c.String("out"), sim.Segment{Address: addr, Data: data}); err != nil {
				return console.Fail(console.ExitFailure, "write", err)
			}
			console.PInfof(console.PictoNotebook, "%d bytes written to %s", len(data), console.White(c.String("out")))
			return nil
		})
	},
}

var deviceWriteCmd = cli.Command{
	Name:  "write",
	Usage: "program an Intel HEX image and start it",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "application image", Required: true},
		&cli.StringFlag{Name: "eeprom", Usage: "EEPROM image"},
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
		&cli.BoolFlag{Name: "stay", Usage: "stay in the bootloader after programming"},
	},
	Action: func(c *cli.Context) error {
		flash, err := readImage(c.String("image"))
		if err != nil {
			return console.Fail(console.ExitFailure, "image", err)
		}
		var eeprom []sim.Segment
		if path := c.String("eeprom"); path != "" {
			if eeprom, err = readImage(path); err != nil {
				return console.Fail(console.ExitFailure, "eeprom image", err)
			}
		}
		ctx := console.SetAssumeYes(c.Context, c.Bool("yes"))
		return withDevice(c, func(client *host.Client, chip config.Chip) error {
			if err := checkFits(flash, chip.AppSize(), "flash"); err != nil {
				return console.Fail(console.ExitFailure, "image", err)
			}
			if err := checkFits(eeprom, chip.EEPROMSize, "eeprom"); err != nil {
				return console.Fail(console.ExitFailure, "eeprom image", err)
			}
			ok, err := console.Confirm(ctx, fmt.Sprintf("%s write %d bytes to %s?", console.PictoBolt, imageSize(flash)+imageSize(eeprom), chip.Name))
			if err != nil {
				return console.Fail(console.ExitAborted, "prompt", err)
			}
			if !ok {
				return console.Exit(console.ExitAborted, "aborted")
			}
			if err := program(client, flash, eeprom); err != nil {
				code := console.ExitFailure
				if errors.Is(err, host.ErrVerify) {
					code = console.ExitVerify
				}
				return console.Fail(code, "programming", err)
			}
			if c.Bool("stay") {
				return nil
			}
			if err := client.PowerDown(); err != nil {
				return console.Fail(console.ExitFailure, "power down", err)
			}
			console.PInfof(console.PictoFinish, "application started")
			return nil
		})
	},
}

var deviceExitCmd = cli.Command{
	Name:  "exit",
	Usage: "leave the bootloader and start the application",
	Action: func(c *cli.Context) error {
		return withDevice(c, func(client *host.Client, chip config.Chip) error {
			if err := client.PowerDown(); err != nil {
				return console.Fail(console.ExitFailure, "power down", err)
			}
			console.PInfof(console.PictoFinish, "%s running its application", chip.Name)
			return nil
		})
	},
}

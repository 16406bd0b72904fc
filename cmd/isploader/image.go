package main

import (
	"fmt"
	"os"

	"github.com/mklimuk/isploader/cmd/isploader/console"
	"github.com/mklimuk/isploader/host"
	"github.com/mklimuk/isploader/sim"
)

func readImage(path string) ([]sim.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image: %w", err)
	}
	defer f.Close()
	return sim.ReadHex(f)
}

func writeImage(path string, segments ...sim.Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	if err := sim.WriteHex(f, segments...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func imageSize(segments []sim.Segment) int {
	n := 0
	for _, s := range segments {
		n += len(s.Data)
	}
	return n
}

// checkFits makes sure no segment reaches past limit.
func checkFits(segments []sim.Segment, limit int, what string) error {
	for _, s := range segments {
		if end := int(s.Address) + len(s.Data); end > limit {
			return fmt.Errorf("%s segment at %#06x ends at %#06x, past %#06x", what, s.Address, end, limit)
		}
	}
	return nil
}

// progress prints transfer progress on one line.
func progress(done, total int) {
	console.Progress("bytes", done, total)
}

// program writes and verifies segments through the client.
func program(client *host.Client, flash, eeprom []sim.Segment) error {
	for _, s := range flash {
		console.Infof("flash %s: %d bytes", console.White(fmt.Sprintf("%#06x", s.Address)), len(s.Data))
		if err := client.WriteFlash(s.Address, s.Data); err != nil {
			return fmt.Errorf("write flash: %w", err)
		}
		if err := client.VerifyFlash(s.Address, s.Data); err != nil {
			return fmt.Errorf("verify flash: %w", err)
		}
	}
	for _, s := range eeprom {
		console.Infof("eeprom %s: %d bytes", console.White(fmt.Sprintf("%#06x", s.Address)), len(s.Data))
		if err := client.WriteEEPROM(s.Address, s.Data); err != nil {
			return fmt.Errorf("write eeprom: %w", err)
		}
		if err := client.VerifyEEPROM(s.Address, s.Data); err != nil {
			return fmt.Errorf("verify eeprom: %w", err)
		}
	}
	return nil
}

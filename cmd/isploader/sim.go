package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/isploader"
	"github.com/mklimuk/isploader/boot"
	"github.com/mklimuk/isploader/cmd/isploader/console"
	"github.com/mklimuk/isploader/config"
	"github.com/mklimuk/isploader/host"
	"github.com/mklimuk/isploader/indicator"
	"github.com/mklimuk/isploader/sim"
)

var simCmd = cli.Command{
	Name:  "sim",
	Usage: "run the bootloader on simulated hardware",
	Subcommands: cli.Commands{
		&simRunCmd,
		&simIdleCmd,
	},
}

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "board configuration file (defaults to a Trinket Pro)",
}

var ledFlag = &cli.StringFlag{
	Name:  "led",
	Usage: "activity LED: gpio:NAME, gpio:!NAME, nanopi:PIN or none",
}

func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// simulation is a bootloader running on a simulated board.
type simulation struct {
	chip   config.Chip
	board  *sim.Board
	loader *boot.Loader
	done   chan error
	start  time.Time
}

func startSimulation(ctx context.Context, cfg config.Config, led isploader.Indicator, boardOpts ...sim.BoardOption) (*simulation, error) {
	chip, err := cfg.ChipInfo()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	board := sim.NewBoard(chip.Profile(), boardOpts...)
	if led == nil {
		led = board.LED
	}
	opts = append(opts,
		boot.WithIndicator(led),
		boot.WithLogger(slog.Default()),
		boot.WithTransitionHook(func(from, to boot.State) {
			console.Debugf("state %s -> %s", from, console.Cyan(to))
		}),
	)
	s := &simulation{
		chip:   chip,
		board:  board,
		loader: boot.New(board.Hardware(), opts...),
		done:   make(chan error, 1),
		start:  time.Now(),
	}
	go func() {
		s.done <- s.loader.Run(ctx)
	}()
	return s, nil
}

func (s *simulation) wait() error {
	err := <-s.done
	if errors.Is(err, context.Canceled) {
		console.Warnf("interrupted, bootloader exited early")
		return nil
	}
	return err
}

func openLED(c *cli.Context, cfg config.Config) (isploader.Indicator, error) {
	spec := cfg.LED
	if c.IsSet("led") {
		spec = c.String("led")
	}
	if spec == "" {
		return nil, nil
	}
	return indicator.Open(spec)
}

type simReport struct {
	Chip       string     `yaml:"chip"`
	Signature  string     `yaml:"signature"`
	Fuses      host.Fuses `yaml:"fuses"`
	Flash      int        `yaml:"flash_bytes"`
	EEPROM     int        `yaml:"eeprom_bytes"`
	Transfers  int        `yaml:"transfers"`
	Erases     int        `yaml:"page_erases"`
	Writes     int        `yaml:"page_writes"`
	ExitReason string     `yaml:"exit_reason"`
	Jumped     bool       `yaml:"jumped_to_app"`
	Duration   string     `yaml:"duration"`
}

var simRunCmd = cli.Command{
	Name:  "run",
	Usage: "program an image into a simulated chip through the bootloader",
	Flags: []cli.Flag{
		configFlag,
		ledFlag,
		&cli.StringFlag{Name: "image", Aliases: []string{"i"}, Usage: "application image (Intel HEX)", Required: true},
		&cli.StringFlag{Name: "eeprom", Usage: "EEPROM image (Intel HEX)"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "dump the resulting flash as Intel HEX"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Fail(console.ExitFailure, "config", err)
		}
		chip, err := cfg.ChipInfo()
		if err != nil {
			return console.Fail(console.ExitFailure, "config", err)
		}
		flash, err := readImage(c.String("image"))
		if err != nil {
			return console.Fail(console.ExitFailure, "image", err)
		}
		if err := checkFits(flash, chip.AppSize(), "flash"); err != nil {
			return console.Fail(console.ExitFailure, "image", err)
		}
		var eeprom []sim.Segment
		if path := c.String("eeprom"); path != "" {
			if eeprom, err = readImage(path); err != nil {
				return console.Fail(console.ExitFailure, "eeprom image", err)
			}
			if err := checkFits(eeprom, chip.EEPROMSize, "eeprom"); err != nil {
				return console.Fail(console.ExitFailure, "eeprom image", err)
			}
		}
		led, err := openLED(c, cfg)
		if err != nil {
			return console.Fail(console.ExitFailure, "led", err)
		}

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
		defer cancel()
		s, err := startSimulation(ctx, cfg, led, sim.WithRealTime(cfg.TicksPerSecond()))
		if err != nil {
			return console.Fail(console.ExitFailure, "simulation", err)
		}
		console.PInfof(console.PictoChip, "simulating %s, bootloader timeout %ds", console.White(chip.Name), cfg.Timeout)

		client := host.NewClient(s.board.USB, host.WithPageSize(chip.PageSize), host.WithProgress(progress))
		report, err := session(client, chip, flash, eeprom)
		if err != nil {
			cancel()
			_ = s.wait()
			code := console.ExitFailure
			if errors.Is(err, host.ErrVerify) {
				code = console.ExitVerify
			}
			return console.Fail(code, "programming", err)
		}
		if err := s.wait(); err != nil {
			return console.Fail(console.ExitFailure, "bootloader", err)
		}

		report.Transfers = s.board.USB.Transfers()
		report.Erases = s.board.Trace.Count(sim.KindErase)
		report.Writes = s.board.Trace.Count(sim.KindWrite)
		report.ExitReason = s.loader.ExitReason().String()
		report.Jumped = s.board.Platform.Jumped()
		report.Duration = time.Since(s.start).Round(time.Millisecond).String()
		if err := yaml.NewEncoder(console.Writer()).Encode(report); err != nil {
			return console.Fail(console.ExitFailure, "report", err)
		}

		if out := c.String("out"); out != "" {
			if err := writeFlashDump(out, s.board.Flash); err != nil {
				return console.Fail(console.ExitFailure, "dump", err)
			}
			console.PInfof(console.PictoNotebook, "flash written to %s", console.White(out))
		}
		console.PInfof(console.PictoFinish, "done")
		return nil
	},
}

// session programs the images and powers the target down.
func session(client *host.Client, chip config.Chip, flash, eeprom []sim.Segment) (simReport, error) {
	report := simReport{
		Chip:   chip.Name,
		Flash:  imageSize(flash),
		EEPROM: imageSize(eeprom),
	}
	if err := client.PowerUp(10, true); err != nil {
		return report, err
	}
	if err := client.Enable(); err != nil {
		return report, err
	}
	sig, err := client.Signature()
	if err != nil {
		return report, err
	}
	report.Signature = fmt.Sprintf("% X", sig)
	if sig != chip.Signature {
		return report, fmt.Errorf("signature %s does not match %s (%s)", report.Signature, chip.Name, chip.SignatureString())
	}
	if report.Fuses, err = client.Fuses(); err != nil {
		return report, err
	}
	if err := program(client, flash, eeprom); err != nil {
		return report, err
	}
	return report, client.PowerDown()
}

func writeFlashDump(path string, flash *sim.Flash) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	if err := flash.DumpHex(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var simIdleCmd = cli.Command{
	Name:  "idle",
	Usage: "run the bootloader with no host attached until it times out",
	Flags: []cli.Flag{
		configFlag,
		ledFlag,
		&cli.BoolFlag{Name: "virtual", Usage: "use a virtual timer instead of wall clock time"},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Fail(console.ExitFailure, "config", err)
		}
		led, err := openLED(c, cfg)
		if err != nil {
			return console.Fail(console.ExitFailure, "led", err)
		}
		boardOpt := sim.WithRealTime(cfg.TicksPerSecond())
		if c.Bool("virtual") {
			boardOpt = sim.WithTimerStep(1)
		}

		ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
		defer cancel()
		console.PInfof(console.PictoHourglass, "waiting %ds for a host that never comes", cfg.Timeout)
		s, err := startSimulation(ctx, cfg, led, boardOpt)
		if err != nil {
			return console.Fail(console.ExitFailure, "simulation", err)
		}
		if err := s.wait(); err != nil {
			return console.Fail(console.ExitFailure, "bootloader", err)
		}
		console.PInfof(console.PictoGhost, "bootloader exited: %s after %s, application started: %t",
			console.White(s.loader.ExitReason()),
			time.Since(s.start).Round(time.Millisecond),
			s.board.Platform.Jumped())
		if console.Trace {
			for _, e := range s.board.Trace.Events() {
				console.Debugf("%s", e)
			}
		}
		return nil
	},
}

// Package sim simulates the hardware a bootloader runs on: flash with a
// self-programming page buffer, EEPROM, the signature row, a free-running
// timer, the interrupt flag and a USB engine that also acts as the host
// end of the control pipe.
//
// Every component records what it is asked to do in a shared Trace, so
// tests can assert the order of hardware operations.
//
//	board := sim.NewBoard(sim.ATmega328P)
//	loader := boot.New(board.Hardware())
//	go loader.Run(ctx)
//	n, err := board.USB.Control(usbtiny.RequestTypeIn, uint8(usbtiny.Echo), 1, 2, buf)
package sim

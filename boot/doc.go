// Package boot is the request core of a USBtinyISP-compatible bootloader.
//
// A Dispatcher interprets vendor control transfers as ISP operations and
// programs the chip's own flash and EEPROM through a PageWriter. A Loader
// owns the bootloader lifecycle: it initialises the hardware, polls the USB
// engine until the host powers the session down or goes silent, then
// restores the interrupt vectors and jumps to the application.
//
// Typical usage:
//
//	l := boot.New(hw, boot.WithTimeout(5), boot.WithPageSize(128))
//	err := l.Run(ctx)
//
// All state lives in a single Session owned by the Loader. Hooks run inside
// USBEngine.Poll on the Loader's goroutine, so nothing here is locked.
package boot

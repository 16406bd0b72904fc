package host

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("host: no USBtinyISP device found")
	ErrProgrammingEnable = errors.New("host: target did not acknowledge programming enable")
	ErrShortTransfer     = errors.New("host: short transfer")
	ErrAddressRange      = errors.New("host: address out of range")
	ErrVerify            = errors.New("host: verification failed")
)

// VerifyError reports the first byte that differs after programming.
type VerifyError struct {
	Addr     uint32
	Expected byte
	Actual   byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("host: verification failed at %#06x: expected %#02x, got %#02x", e.Addr, e.Expected, e.Actual)
}

func (e *VerifyError) Is(target error) bool {
	return target == ErrVerify
}

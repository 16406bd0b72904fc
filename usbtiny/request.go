package usbtiny

// Request is a USBtinyISP vendor request code.
type Request uint8

const (
	Echo        Request = iota // echo test
	Read                       // read byte
	Write                      // write byte
	Clear                      // clear bit
	Set                        // set bit
	PowerUp                    // apply power (wValue: SCK period, wIndex: RESET)
	PowerDown                  // remove power from chip
	SPI                        // issue SPI instruction (wValue: c1c0, wIndex: c3c2)
	PollBytes                  // set poll bytes for write (wValue: p1p2)
	FlashRead                  // read flash (wIndex: address)
	FlashWrite                 // write flash (wIndex: address, wValue: timeout)
	EEPROMRead                 // read eeprom (wIndex: address)
	EEPROMWrite                // write eeprom (wIndex: address, wValue: timeout)
	DDRWrite                   // set port direction
	SPI1                       // single SPI byte
)

var requestNames = [...]string{
	Echo:        "echo",
	Read:        "read",
	Write:       "write",
	Clear:       "clear",
	Set:         "set",
	PowerUp:     "power-up",
	PowerDown:   "power-down",
	SPI:         "spi",
	PollBytes:   "poll-bytes",
	FlashRead:   "flash-read",
	FlashWrite:  "flash-write",
	EEPROMRead:  "eeprom-read",
	EEPROMWrite: "eeprom-write",
	DDRWrite:    "ddr-write",
	SPI1:        "spi1",
}

func (r Request) String() string {
	if int(r) < len(requestNames) {
		return requestNames[r]
	}
	return "unknown"
}

// IsStreamed reports whether the request carries a memory payload that
// spans several packets.
func (r Request) IsStreamed() bool {
	return r >= FlashRead && r <= EEPROMWrite
}

// IsWrite reports whether a streamed request moves data from the host.
func (r Request) IsWrite() bool {
	return r == FlashWrite || r == EEPROMWrite
}

// Request type bytes used by USBtinyISP: vendor type, device recipient.
const (
	RequestTypeIn  uint8 = 0xC0
	RequestTypeOut uint8 = 0x40

	directionIn uint8 = 0x80
)

// USB identifiers of the Adafruit USBtinyISP.
const (
	VendorID  uint16 = 0x1781
	ProductID uint16 = 0x0C9F
)

package boot

// Read produces the next bytes of a flash or EEPROM read. It never
// produces more than the transfer still owes.
func (d *Dispatcher) Read(buf []byte) int {
	s := d.s
	n := s.consume(len(buf))
	for i := 0; i < n; i++ {
		switch s.cmd {
		case CommandEEPROMRead:
			if d.features.EEPROMRead {
				buf[i] = d.eeprom.ReadEEPROM(uint16(s.addr))
			}
		case CommandFlashRead:
			if d.features.FlashRead {
				buf[i] = d.code.ReadCode(s.addr)
			}
		}
		s.addr++
	}
	return n
}

// Write consumes one OUT packet of a flash or EEPROM write and reports
// whether the transfer is complete.
func (d *Dispatcher) Write(data []byte) bool {
	s := d.s
	n := s.consume(len(data))
	last := s.remaining == 0
	data = data[:n]

	switch s.cmd {
	case CommandEEPROMWrite:
		if !d.features.EEPROMWrite {
			s.Advance(n)
			break
		}
		for _, b := range data {
			d.eeprom.WriteEEPROM(uint16(s.addr), b)
			s.addr++
		}
	case CommandFlashWrite:
		if !d.features.FlashWrite {
			s.Advance(n)
			break
		}
		d.writeFlash(data, last)
	}
	return last
}

// writeFlash feeds little-endian words to the page writer. An odd byte at
// the end of a packet waits for the next one; at the end of the transfer
// it is paired with the erased value.
func (d *Dispatcher) writeFlash(data []byte, last bool) {
	s := d.s
	if s.carried && len(data) > 0 {
		d.writeWord(uint16(s.half) | uint16(data[0])<<8)
		s.carried = false
		data = data[1:]
	}
	for len(data) >= 2 {
		d.writeWord(uint16(data[0]) | uint16(data[1])<<8)
		data = data[2:]
	}
	if len(data) == 1 {
		if last {
			d.writeWord(uint16(data[0]) | 0xFF00)
			return
		}
		s.half = data[0]
		s.carried = true
	}
}

func (d *Dispatcher) writeWord(word uint16) {
	s := d.s
	d.pw.WriteWord(s.addr, word)
	s.addr += 2
	if d.pw.Aligned(s.addr) {
		d.pw.Finalize()
	}
}

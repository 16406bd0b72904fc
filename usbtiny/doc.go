// Package usbtiny describes the USBtinyISP vendor request protocol: the
// request catalogue carried in control transfer setup packets and the
// 4-byte serial programming instructions tunneled through the SPI request.
//
// The protocol has no framing of its own. Every operation is one control
// transfer:
//
//	bmRequestType  vendor, device recipient, IN or OUT
//	bRequest       a Request code
//	wValue         request parameter (SPI instruction bytes 0-1)
//	wIndex         address or SPI instruction bytes 2-3
//	wLength        data stage length
package usbtiny

// Package host is the programmer side of the USBtinyISP protocol. A Client
// drives any device able to perform vendor control transfers: a real
// adapter or bootloader opened with Open, or the simulated engine from
// package sim.
package host

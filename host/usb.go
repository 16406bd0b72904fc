package host

import (
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/mklimuk/isploader/usbtiny"
)

// Device is a USBtinyISP compatible device opened through libusb.
type Device struct {
	ctx *gousb.Context
	dev *gousb.Device
}

var _ ControlTransferer = (*Device)(nil)

// DefaultControlTimeout bounds every control transfer to a real device.
const DefaultControlTimeout = 5 * time.Second

// Open opens the first device with the USBtinyISP vendor and product ids.
func Open() (*Device, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(usbtiny.VendorID), gousb.ID(usbtiny.ProductID))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("host: could not open device: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, ErrNotFound
	}
	dev.ControlTimeout = DefaultControlTimeout
	return &Device{ctx: ctx, dev: dev}, nil
}

func (d *Device) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	return d.dev.Control(rType, request, val, idx, data)
}

// Describe returns the manufacturer and product strings.
func (d *Device) Describe() (manufacturer, product string, err error) {
	manufacturer, err = d.dev.Manufacturer()
	if err != nil {
		return "", "", fmt.Errorf("host: could not read manufacturer: %w", err)
	}
	product, err = d.dev.Product()
	if err != nil {
		return "", "", fmt.Errorf("host: could not read product: %w", err)
	}
	return manufacturer, product, nil
}

func (d *Device) String() string {
	return d.dev.String()
}

func (d *Device) Close() error {
	if err := d.dev.Close(); err != nil {
		d.ctx.Close()
		return fmt.Errorf("host: could not close device: %w", err)
	}
	return d.ctx.Close()
}

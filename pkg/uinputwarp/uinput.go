// Package uinputwarp mirrors the virtual cursor onto a kernel pointer
// device created through /dev/uinput. The device reports absolute axes,
// so warps survive multi-display layouts: global desktop coordinates are
// translated into the device's absolute range before emission.
package uinputwarp

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

type uinputConstructor struct {
	path string
	id   inputID
}

var defaultUinputConstructor = uinputConstructor{
	path: "/dev/uinput",
	id: inputID{
		Bustype: busUsb,
		Vendor:  0x1d5f,
		Product: 0x4c0c,
		Version: 1,
	},
}

// Option alters how the uinput device is constructed.
type Option func(*uinputConstructor)

// WithUinputPath sets the location of /dev/uinput.
func WithUinputPath(path string) Option {
	return func(uc *uinputConstructor) {
		uc.path = path
	}
}

// WithVendorProduct sets the vendor and product ID and version of this device.
func WithVendorProduct(vendor, product, version uint16) Option {
	return func(uc *uinputConstructor) {
		uc.id.Vendor = vendor
		uc.id.Product = product
		uc.id.Version = version
	}
}

type uinputDevice struct {
	deviceFile *os.File
}

func createUinputDevice(path string) (uinputDevice, error) {
	deviceFile, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0o660)
	if err != nil {
		return uinputDevice{}, fmt.Errorf("could not open device file: %w", err)
	}
	return uinputDevice{deviceFile}, nil
}

func (dev *uinputDevice) register(code uintptr, events ...uintptr) error {
	for _, ev := range events {
		if err := dev.ioctl(code, ev); err != nil {
			return fmt.Errorf("invalid file handle returned from ioctl: %w", err)
		}
	}
	return nil
}

func toUinputName(uinputName *[uiMaxNameSize]byte, name string) error {
	if name == "" {
		return errors.New("device name may not be empty")
	}
	if len(name) > uiMaxNameSize {
		return fmt.Errorf("device name %s is too long (maximum of %d characters allowed)", name, uiMaxNameSize)
	}
	copy(uinputName[:], name)
	return nil
}

func (dev *uinputDevice) setup(name string, busid inputID) error {
	setup := uinputSetup{id: busid}
	if err := toUinputName(&setup.name, name); err != nil {
		return err
	}
	if err := dev.ioctl(uiDevSetup, uintptr(unsafe.Pointer(&setup))); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (dev *uinputDevice) create() error {
	return dev.ioctl(uiDevCreate, 0)
}

func (dev *uinputDevice) registerAbs(code uint16, min, max, res int32) error {
	s := absSetup{
		code: code,
		absinfo: absInfo{
			minimum:    min,
			maximum:    max,
			resolution: res,
		},
	}
	return dev.ioctl(uiAbsSetup, uintptr(unsafe.Pointer(&s)))
}

func (dev *uinputDevice) emit(typ, code uint16, value int32) error {
	ev := inputEvent{
		Type:  typ,
		Code:  code,
		Value: value,
	}
	buf := (*[unsafe.Sizeof(ev)]byte)(unsafe.Pointer(&ev))[:]
	if _, err := dev.deviceFile.Write(buf); err != nil {
		return fmt.Errorf("writing %v structure to the device file failed: %w", typ, err)
	}
	return nil
}

func (dev *uinputDevice) sync() error {
	return dev.emit(evSyn, synReport, 0)
}

func (dev *uinputDevice) releaseDevice() error {
	return dev.ioctl(uiDevDestroy, 0)
}

func (dev *uinputDevice) ioctl(cmd, ptr uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.deviceFile.Fd(), cmd, ptr)
	if errno == 0 {
		return nil
	}
	return errno
}

// GetSysname returns the internal sysfs name of the device. It lays
// somewhere at /sys/devices/virtual/input/<name>.
func (dev *uinputDevice) GetSysname() (string, error) {
	var path [uiSysnameLen + 1]byte
	err := dev.ioctl(uiGetSysname, uintptr(unsafe.Pointer(&path[0])))
	n := bytes.IndexByte(path[:], 0)
	if n < 0 {
		return string(path[:]), err
	}
	return string(path[:n]), err
}

// Close releases the kernel device and closes the file.
func (dev *uinputDevice) Close() error {
	if err := dev.releaseDevice(); err != nil {
		dev.deviceFile.Close()
		return fmt.Errorf("failed to close device: %w", err)
	}
	return dev.deviceFile.Close()
}

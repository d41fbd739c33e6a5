package uinputwarp

import "golang.org/x/sys/unix"

// ioctl numbers and event codes from linux/uinput.h and linux/input.h,
// spelled out so the package builds without kernel headers.
const (
	uiMaxNameSize = 80

	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiDevSetup   = 0x405c5503 // _IOW('U', 3, struct uinput_setup)
	uiAbsSetup   = 0x401c5504 // _IOW('U', 4, struct uinput_abs_setup)
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
	uiSetAbsBit  = 0x40045567 // _IOW('U', 103, int)

	uiSysnameLen = 64
	uiGetSysname = 0x8040552c // _IOC(_IOC_READ, 'U', 44, 64)

	busUsb = 0x03

	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	absX = 0x00
	absY = 0x01

	btnLeft = 0x110

	synReport = 0
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// translated to go from uinput.h
type uinputSetup struct {
	id           inputID
	name         [uiMaxNameSize]byte
	ffEffectsMax uint32
}

// translated to go from input.h
type absInfo struct {
	value      int32
	minimum    int32
	maximum    int32
	fuzz       int32
	flat       int32
	resolution int32
}

type absSetup struct {
	code    uint16
	absinfo absInfo
}

// translated to go from input.h
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

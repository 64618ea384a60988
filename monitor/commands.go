package monitor

// Command bytes understood by the Freescale AN2548 serial monitor. Only a
// subset is exercised by this toolkit; the rest of the documented set is
// listed for completeness.
const (
	CmdReadByte    byte = 0x00
	CmdReadWord    byte = 0x01
	CmdWriteByte   byte = 0xA2
	CmdWriteWord   byte = 0xA3
	CmdReadBlock   byte = 0xA7
	CmdWriteBlock  byte = 0xA8
	CmdReadNexus   byte = 0xA9
	CmdWriteNexus  byte = 0xAA
	CmdRunFrom     byte = 0xAB
	CmdResetTarget byte = 0xB4
	CmdDeviceInfo  byte = 0xB7
	CmdErasePage   byte = 0xB8
	SMOpen         byte = 0x0D
)

// Reply trailer codes.
const (
	RCNoError       byte = 0xE0
	RCNotRecognised byte = 0xE1

	SCMonitorActive     byte = 0x00
	SCColdResetExecuted byte = 0x08

	Prompt byte = 0x3E
)

// deviceInfoConstant is the first byte DEVICE_INFO always replies with.
const deviceInfoConstant byte = 0xDC

// PPAGERegister is the MCU register that selects the bank mapped into the
// banked flash window.
const PPAGERegister uint16 = 0x0030

package serial

import "time"

// Parity selects the line's parity mode. FreeEMS hardware uses two of these:
// ParityNone for the serial monitor and loader/logger tools, ParityOdd for
// the application protocol used by fucttrigger.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// OpenConfigured opens path and puts it into raw 8-N-1 (or 8-O-1/8-E-1) mode
// at the given baud rate, with the given read timeout. It is the entry point
// every FUCT tool uses instead of Open+MakeRaw+SetAttr2 by hand.
func OpenConfigured(path string, baud uint32, parity Parity, readTimeout time.Duration) (*Port, error) {
	opts := NewOptions().SetReadTimeout(readTimeout)
	p, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	attrs, err := p.GetAttr2()
	if err != nil {
		p.Close()
		return nil, err
	}
	attrs.MakeRaw()
	attrs.SetCustomSpeed(baud)
	attrs.Cflag &= ^CSTOPB

	switch parity {
	case ParityNone:
		attrs.Cflag &= ^(PARENB | PARODD)
	case ParityOdd:
		attrs.Cflag |= PARENB | PARODD
		attrs.Iflag |= INPCK
	case ParityEven:
		attrs.Cflag |= PARENB
		attrs.Cflag &= ^PARODD
		attrs.Iflag |= INPCK
	}

	if err := p.SetAttr2(TCSANOW, attrs); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

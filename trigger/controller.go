// Package trigger implements the interactive decoder trigger-offset
// controller: convert between degrees and the flash-resident raw value,
// and drive the read/adjust/write loop against the running firmware.
package trigger

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/freeems/fuct/appproto"
	"github.com/freeems/fuct/logging"
)

// AngleFactor is the raw-units-per-degree scale: 1 unit = 0.02 degrees.
const AngleFactor = 50.00

// AngleMax is the largest legal absolute trigger angle in degrees.
const AngleMax = 719.98

// ToDegrees converts a raw flash value to degrees.
func ToDegrees(raw uint16) float64 {
	return float64(raw) / AngleFactor
}

// ToRaw converts degrees back to the raw flash value.
func ToRaw(deg float64) uint16 {
	return uint16(deg*AngleFactor + 0.5)
}

var absoluteDegrees = regexp.MustCompile(`^\d{1,3}(\.\d{1,2})?$`)

// stepDown subtracts step from raw, clamping at zero instead of wrapping.
func stepDown(raw, step uint16) uint16 {
	if step > raw {
		return 0
	}
	return raw - step
}

// Requester is the app-protocol call/response interface the controller
// drives its reads and writes through.
type Requester interface {
	Request(payloadID uint16, opts ...appproto.PacketOption) (appproto.Frame, error)
}

// TelemetrySource yields decoded telemetry frame bodies.
type TelemetrySource interface {
	Telemetry() <-chan []byte
}

// Controller runs the interactive trigger-offset prompt loop.
type Controller struct {
	conn      Requester
	telemetry TelemetrySource
	sink      logging.Sink

	raw      uint16
	updating bool
}

// New creates a Controller driving requests through conn and draining
// telemetry from telemetry.
func New(conn Requester, telemetry TelemetrySource, sink logging.Sink) *Controller {
	if sink == nil {
		sink = logging.Discard
	}
	return &Controller{conn: conn, telemetry: telemetry, sink: sink}
}

// Start issues the decoder and initial trigger-read handshake and, when
// initialDeg is non-nil, immediately writes that offset.
func (c *Controller) Start(initialDeg *float64) error {
	if _, err := c.conn.Request(appproto.FECmdDecoder); err != nil {
		return fmt.Errorf("trigger: decoder request: %w", err)
	}

	frame, err := c.conn.Request(appproto.FECmdFlashRead, appproto.WithLocation(appproto.TriggerLocation), appproto.WithSize(2))
	if err != nil {
		return fmt.Errorf("trigger: initial trigger read: %w", err)
	}
	if len(frame.Body) < 2 {
		return fmt.Errorf("trigger: short trigger read reply (%d bytes)", len(frame.Body))
	}
	c.raw = binary.BigEndian.Uint16(frame.Body)
	c.sink.Infof("current trigger offset: %.2f deg (raw %d)", ToDegrees(c.raw), c.raw)

	if initialDeg != nil {
		return c.setDegrees(*initialDeg)
	}
	return nil
}

func (c *Controller) setDegrees(deg float64) error {
	if deg < 0 || deg > AngleMax {
		return fmt.Errorf("trigger: %.2f is outside [0, %.2f]", deg, AngleMax)
	}
	return c.setRaw(ToRaw(deg))
}

func (c *Controller) setRaw(raw uint16) error {
	if raw == c.raw {
		return nil
	}
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, raw)

	c.updating = true
	frame, err := c.conn.Request(appproto.FECmdFlashWrite,
		appproto.WithLocation(appproto.TriggerLocation),
		appproto.WithData(payload),
		appproto.WithLength())
	c.updating = false
	if err != nil {
		return fmt.Errorf("trigger: write offset: %w", err)
	}
	_ = frame
	c.raw = raw
	c.sink.Infof("trigger offset now %.2f deg (raw %d)", ToDegrees(raw), raw)
	return nil
}

// drainTelemetryAdvance pulls up to 50 buffered telemetry frames and
// reports the min/max decoded advance value found in bytes [54:56],
// warning if they differ (unsteady advance).
func (c *Controller) drainTelemetryAdvance() {
	const maxFrames = 50
	var min, max float64
	seen := 0

	for i := 0; i < maxFrames; i++ {
		select {
		case body := <-c.telemetry.Telemetry():
			if len(body) < 56 {
				continue
			}
			advance := float64(binary.BigEndian.Uint16(body[54:56])) / 50.0
			if seen == 0 {
				min, max = advance, advance
			} else {
				if advance < min {
					min = advance
				}
				if advance > max {
					max = advance
				}
			}
			seen++
		default:
			i = maxFrames
		}
	}

	if seen == 0 {
		return
	}
	if min != max {
		c.sink.Warnf("advance unsteady: min=%.2f max=%.2f over %d frames", min, max, seen)
	} else {
		c.sink.Infof("advance steady at %.2f over %d frames", min, seen)
	}
}

// Run reads commands from in until ctx is cancelled or the user types
// "exit"/"quit".
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		c.drainTelemetryAdvance()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()

		switch {
		case line == "exit" || line == "quit":
			return nil
		case line == "":
			c.sink.Infof("advance updating=%v offset=%.2f deg (raw %d)", c.updating, ToDegrees(c.raw), c.raw)
		case line == "a":
			if err := c.setRaw(c.raw + uint16(1.00*AngleFactor)); err != nil {
				c.sink.Errorf("%v", err)
			}
		case line == "z":
			if err := c.setRaw(stepDown(c.raw, uint16(1.00*AngleFactor))); err != nil {
				c.sink.Errorf("%v", err)
			}
		case line == "s":
			if err := c.setRaw(c.raw + uint16(10.00*AngleFactor)); err != nil {
				c.sink.Errorf("%v", err)
			}
		case line == "x":
			if err := c.setRaw(stepDown(c.raw, uint16(10.00*AngleFactor))); err != nil {
				c.sink.Errorf("%v", err)
			}
		case line == "d":
			if err := c.setRaw(c.raw + uint16(0.10*AngleFactor)); err != nil {
				c.sink.Errorf("%v", err)
			}
		case line == "c":
			if err := c.setRaw(stepDown(c.raw, uint16(0.10*AngleFactor))); err != nil {
				c.sink.Errorf("%v", err)
			}
		case absoluteDegrees.MatchString(line):
			deg, err := strconv.ParseFloat(line, 64)
			if err != nil {
				c.sink.Errorf("trigger: %v", err)
				continue
			}
			if err := c.setDegrees(deg); err != nil {
				c.sink.Errorf("%v", err)
			}
		default:
			c.sink.Warnf("unrecognized command %q", line)
		}
	}
}

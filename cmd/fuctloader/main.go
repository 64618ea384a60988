// Command fuctloader checks, loads, rips, and erases FreeEMS firmware
// images over the Freescale serial monitor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/freeems/fuct/firmware"
	"github.com/freeems/fuct/logging"
	"github.com/freeems/fuct/monitor"
	"github.com/freeems/fuct/pages"
	"github.com/freeems/fuct/serial"
	"github.com/freeems/fuct/srecord"
)

const version = "0.1.0"

// command is an explicit enumeration of fuctloader's subcommands; lookup
// is a map, never reflection over method names.
type command string

const (
	cmdCheck    command = "check"
	cmdDevice   command = "device"
	cmdLoad     command = "load"
	cmdFastload command = "fastload"
	cmdRip      command = "rip"
	cmdErase    command = "erase"
)

func main() {
	portFlag := flag.String("s", "", "serial port device (e.g. /dev/ttyUSB0)")
	verbose := flag.Bool("v", false, "show program version")
	debug := flag.Bool("d", false, "show debug information")
	flag.Parse()

	sink := logging.NewConsoleSink(*debug)

	if *verbose {
		fmt.Printf("fuctloader %s\n", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: fuctloader [-s port] [-v] [-d] {check|device|load|fastload|rip|erase} [file]")
		os.Exit(1)
	}

	cmd := command(args[0])
	var file string
	if len(args) > 1 {
		file = args[1]
	}

	var err error
	switch cmd {
	case cmdCheck:
		err = doCheck(file, sink)
	case cmdDevice:
		err = doDevice(*portFlag, sink)
	case cmdLoad:
		err = doLoad(*portFlag, file, true, sink)
	case cmdFastload:
		err = doLoad(*portFlag, file, false, sink)
	case cmdRip:
		err = doRip(*portFlag, sink)
	case cmdErase:
		err = doErase(*portFlag, sink)
	default:
		err = fmt.Errorf("command %q not implemented", cmd)
	}

	if err != nil {
		sink.Errorf("%v", err)
		os.Exit(exitCode(err))
	}
	sink.Infof("Exiting...")
}

// exitCode maps the error kinds that must produce a non-zero exit per the
// CLI contract; everything else still exits non-zero, just without a
// dedicated code.
func exitCode(err error) int {
	var parseErr *srecord.ParseError
	var timeoutErr *monitor.TimeoutError
	var protocolErr *monitor.ProtocolError
	var verifyErr *monitor.VerifyError
	switch {
	case errors.As(err, &parseErr):
		return 2
	case errors.As(err, &timeoutErr):
		return 3
	case errors.As(err, &protocolErr):
		return 4
	case errors.As(err, &verifyErr):
		return 5
	default:
		return 1
	}
}

func doCheck(file string, sink logging.Sink) error {
	if file == "" {
		return fmt.Errorf("no firmware given")
	}
	sink.Infof("Checking firmware...")
	records, err := firmware.ValidateFile(file, sink)
	if err != nil {
		return err
	}
	sink.Infof("Parsed %d records", len(records))
	if len(records) > 0 && records[0].Type == srecord.S0 {
		sink.Infof("Header info: [%s]", string(records[0].Data))
	} else {
		sink.Warnf("No header...")
	}
	sink.Infof("File OK")
	return nil
}

func getDevice(port string, sink logging.Sink) (*monitor.Device, *serial.Port, error) {
	if port == "" {
		return nil, nil, fmt.Errorf("serial port argument cannot be empty")
	}
	sink.Infof("Checking device...")
	dev, serialPort, err := monitor.Open(port, 20*time.Millisecond, sink)
	if err != nil {
		return nil, nil, err
	}
	if err := dev.Reinit(); err != nil {
		serialPort.Close()
		return nil, nil, fmt.Errorf("reinitializing device failed: %w", err)
	}
	return dev, serialPort, nil
}

func doDevice(port string, sink logging.Sink) error {
	dev, serialPort, err := getDevice(port, sink)
	if err != nil {
		return err
	}
	defer serialPort.Close()

	id, err := dev.Identify()
	if err != nil {
		return err
	}
	sink.Infof("Device: major=0x%x minor=0x%x mask=%x.%x -> %s",
		id.MajorFamily, id.MinorFamily, id.MajorMaskRev, id.MinorMaskRev, id.Family)
	return nil
}

func doLoad(port, file string, verify bool, sink logging.Sink) error {
	if port == "" || file == "" {
		return fmt.Errorf("can't load without both a port and a firmware file")
	}
	sink.Infof("Checking firmware file...")
	records, err := firmware.ValidateFile(file, sink)
	if err != nil {
		return err
	}
	sink.Infof("File OK, got %d records", len(records))
	if len(records) < 2 {
		return fmt.Errorf("firmware file has no records to load")
	}

	header := records[0]
	body := records[1 : len(records)-1]

	dev, serialPort, err := getDevice(port, sink)
	if err != nil {
		return err
	}
	defer serialPort.Close()

	sink.Infof("Converting records to memory pages...")
	pageList, total := pages.BuildPages(body, sink)
	sink.Infof("Received %d pages", len(pageList))
	sink.Infof("Loading firmware: '%s'", string(header.Data))

	var lastPage *byte
	loaded := 0
	for _, page := range pageList {
		erase := lastPage == nil || *lastPage != page.Page
		if err := dev.EraseAndWrite(page, erase, verify); err != nil {
			return err
		}
		p := page.Page
		lastPage = &p
		loaded += len(page.Data)
		sink.Infof("progress: %d/%d bytes", loaded, total)
	}
	sink.Infof("Firmware loaded successfully")
	return nil
}

func doRip(port string, sink logging.Sink) error {
	if port == "" {
		return fmt.Errorf("serial port argument cannot be empty")
	}
	dev, serialPort, err := getDevice(port, sink)
	if err != nil {
		return err
	}
	defer serialPort.Close()

	filename := fmt.Sprintf("rip-%s.s19", time.Now().Format("20060102-150405"))
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	sink.Infof("Ripping pages from 0xE0 to 0xFF")
	return dev.RipPages(0xE0, 0xFF, f, func(frac float64) {
		sink.Infof("progress: %.0f%%", frac*100)
	})
}

func doErase(port string, sink logging.Sink) error {
	if port == "" {
		return fmt.Errorf("serial port argument cannot be empty")
	}
	dev, serialPort, err := getDevice(port, sink)
	if err != nil {
		return err
	}
	defer serialPort.Close()

	sink.Infof("Erasing pages from 0xE0 to 0xFF")
	return dev.EraseRange(0xE0, 0xFF, func(frac float64) {
		sink.Infof("progress: %.0f%%", frac*100)
	})
}

// Command fuctlogger dumps the raw byte stream off a FreeEMS serial link
// to a size-rotated file on disk.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/freeems/fuct/logging"
	"github.com/freeems/fuct/rawlog"
	"github.com/freeems/fuct/serial"
)

const version = "0.1.0"

func main() {
	verbose := flag.Bool("v", false, "show program version")
	debug := flag.Bool("d", false, "show debug information")
	path := flag.String("p", "", "path for the logfile (default ./)")
	prefix := flag.String("x", "", "prefix for the logfile name")
	size := flag.String("s", "", "size of single logfile with unit (xxM/xxG) (default 128M)")
	flag.Parse()

	sink := logging.NewConsoleSink(*debug)

	if *verbose {
		fmt.Printf("fuctlogger %s\n", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: fuctlogger [-p path] [-x prefix] [-s size] [-v] [-d] <serial port>")
		os.Exit(1)
	}
	portPath := args[0]

	if err := run(portPath, *path, *prefix, *size, sink); err != nil {
		sink.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(portPath, dir, prefix, sizeSpec string, sink logging.Sink) error {
	sizeLimit := int64(rawlog.DefaultSizeLimit)
	if sizeSpec != "" {
		n, err := rawlog.ParseSizeLimit(sizeSpec)
		if err != nil {
			return err
		}
		sizeLimit = n
	}
	sink.Infof("Setting logfile size to: %d bytes", sizeLimit)

	sink.Infof("Opening port %s", portPath)
	port, err := serial.OpenConfigured(portPath, 115200, serial.ParityNone, 20*time.Millisecond)
	if err != nil {
		return err
	}
	defer port.Close()

	basename := rawlog.Filename(dir, prefix, time.Now())
	sink.Infof("Opening logfile: %s", basename)
	writer, err := rawlog.New(basename, sizeLimit)
	if err != nil {
		return err
	}
	defer writer.Close()

	sink.Infof("Start logging... (Ctrl+C to quit)")
	buf := make([]byte, 1024)
	for {
		n, _ := port.Read(buf)
		if n == 0 {
			continue
		}
		if _, err := writer.Write(buf[:n]); err != nil {
			return err
		}
	}
}

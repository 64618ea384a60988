// Command fucttrigger interactively adjusts the decoder's trigger offset
// over the FreeEMS application protocol.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/freeems/fuct/appproto"
	"github.com/freeems/fuct/logging"
	"github.com/freeems/fuct/rx"
	"github.com/freeems/fuct/serial"
	"github.com/freeems/fuct/trigger"
)

const version = "0.1.0"

func main() {
	verbose := flag.Bool("v", false, "show program version")
	debug := flag.Bool("d", false, "show debug information")
	offsetFlag := flag.String("o", "", "initial trigger offset in degrees")
	flag.Parse()

	sink := logging.NewConsoleSink(*debug)

	if *verbose {
		fmt.Printf("fucttrigger %s\n", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: fucttrigger [-o deg] [-v] [-d] <serial port>")
		os.Exit(1)
	}

	var initialDeg *float64
	if *offsetFlag != "" {
		deg, err := strconv.ParseFloat(*offsetFlag, 64)
		if err != nil {
			sink.Errorf("invalid -o value %q: %v", *offsetFlag, err)
			os.Exit(1)
		}
		initialDeg = &deg
	}

	if err := run(args[0], initialDeg, sink); err != nil && !errors.Is(err, context.Canceled) {
		sink.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(portPath string, initialDeg *float64, sink logging.Sink) error {
	port, err := serial.OpenConfigured(portPath, 115200, serial.ParityOdd, 20*time.Millisecond)
	if err != nil {
		return err
	}
	defer port.Close()

	receiver := rx.New(port, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go receiver.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		sink.Infof("stopping...")
		cancel()
	}()

	conn := appproto.NewConn(port, receiver, 2*time.Second)
	ctrl := trigger.New(conn, receiver, sink)

	if err := ctrl.Start(initialDeg); err != nil {
		return err
	}
	return ctrl.Run(ctx, os.Stdin)
}

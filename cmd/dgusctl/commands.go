package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/OpenPSG/dgus"
	"github.com/OpenPSG/dgus/capture"
	"github.com/OpenPSG/dgus/link"
)

func commands(register bool) (read, write dgus.Command) {
	if register {
		return dgus.CommandReadRegister, dgus.CommandWriteRegister
	}
	return dgus.CommandReadVP, dgus.CommandWriteVP
}

func runRead(args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  dgusctl read [flags] <addr> <words>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts options
	opts.register(fs)
	register := fs.Bool("register", false, "Read the control registers instead of variable memory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("address and word count required")
	}

	addr, err := parseAddress(fs.Arg(0))
	if err != nil {
		return err
	}
	words, err := parseWordCount(fs.Arg(1))
	if err != nil {
		return err
	}
	cfg, err := opts.resolve(fs)
	if err != nil {
		return err
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	cmd, _ := commands(*register)
	wd, err := s.link.Read(ctx, cmd, addr, words)
	if err != nil {
		return err
	}
	fmt.Print(formatWords(wd.Address, wd.Data))
	return nil
}

func runWrite(args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  dgusctl write [flags] <addr> <word>...\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts options
	opts.register(fs)
	register := fs.Bool("register", false, "Write the control registers instead of variable memory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return errors.New("address and at least one word required")
	}

	addr, err := parseAddress(fs.Arg(0))
	if err != nil {
		return err
	}
	words, err := parseWords(fs.Args()[1:])
	if err != nil {
		return err
	}
	cfg, err := opts.resolve(fs)
	if err != nil {
		return err
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	_, cmd := commands(*register)
	if err := s.link.Write(ctx, cmd, addr, wordValues(words)...); err != nil {
		return err
	}
	fmt.Printf("wrote %d word(s) at 0x%04X\n", len(words), addr)
	return nil
}

func runMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  dgusctl monitor [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts options
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := opts.resolve(fs)
	if err != nil {
		return err
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		resp, err := s.link.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		fmt.Println(resp)
	}
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  dgusctl dump [flags] <file.cbor>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	frames := fs.Bool("frames", false, "Reassemble inbound data and print the decoded frames")
	crc := fs.Bool("crc", false, "Frames carry a CRC")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("capture file required")
	}

	rd, err := capture.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer rd.Close()

	return dump(os.Stdout, rd, *frames, *crc)
}

// dump prints every record of rd. With frames set, inbound chunks are run
// through one accumulator per session and the frames they complete are
// printed after the chunk.
func dump(w io.Writer, rd *capture.Reader, frames, crc bool) error {
	accs := make(map[string]*dgus.Accumulator)
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatRecord(rec))

		if !frames || rec.Direction != capture.DirectionIn || len(rec.Data) == 0 {
			continue
		}
		acc, ok := accs[rec.Session]
		if !ok {
			acc, err = dgus.NewAccumulator(dgus.MaxFrameSize, crc)
			if err != nil {
				return err
			}
			accs[rec.Session] = acc
		}
		acc.FeedAll(rec.Data, func(resp dgus.Response, err error) {
			if err != nil {
				fmt.Fprintf(w, "    ! %v\n", err)
				return
			}
			fmt.Fprintf(w, "    = %s\n", resp)
		})
	}
}

func runPorts() error {
	ports, err := link.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

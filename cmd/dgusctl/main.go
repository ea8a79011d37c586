// Command dgusctl reads and writes the variable memory of a DGUS display
// over a serial port.
//
// Usage:
//
//	dgusctl <command> [flags] [args]
//
// Commands:
//
//	read     Read words from an address
//	write    Write words to an address
//	monitor  Print every frame the display sends
//	dump     Print a capture file
//	shell    Interactive read/write prompt
//	ports    List serial ports
//
// Examples:
//
//	dgusctl read -device /dev/ttyUSB0 0x1000 4
//	dgusctl write -crc 0x5000 0x0001 0x00FF
//	dgusctl monitor -capture traffic.cbor
//	dgusctl dump -crc traffic.cbor
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/OpenPSG/dgus/capture"
	"github.com/OpenPSG/dgus/config"
	"github.com/OpenPSG/dgus/internal/logging"
	"github.com/OpenPSG/dgus/link"
	"github.com/rs/zerolog"
)

const usage = `dgusctl - DGUS display serial tool

Usage:
  dgusctl <command> [flags] [args]

Commands:
  read     Read words from an address
  write    Write words to an address
  monitor  Print every frame the display sends
  dump     Print a capture file
  shell    Interactive read/write prompt
  ports    List serial ports

Use "dgusctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "read":
		err = runRead(args)
	case "write":
		err = runWrite(args)
	case "monitor":
		err = runMonitor(args)
	case "dump":
		err = runDump(args)
	case "shell":
		err = runShell(args)
	case "ports":
		err = runPorts()
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the flags shared by every command that talks to a display.
type options struct {
	configPath string
	device     string
	baud       int
	crc        bool
	logLevel   string
	capture    string
	timeout    time.Duration
}

func (o *options) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "Config file (.toml, .yaml)")
	fs.StringVar(&o.device, "device", "", "Serial device (overrides config)")
	fs.IntVar(&o.baud, "baud", 0, "Baud rate (overrides config)")
	fs.BoolVar(&o.crc, "crc", false, "Frames carry a CRC (overrides config)")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.StringVar(&o.capture, "capture", "", "Record traffic to this CBOR file")
	fs.DurationVar(&o.timeout, "timeout", 2*time.Second, "Response timeout")
}

// resolve merges the config file with the flags that were set on fs.
func (o *options) resolve(fs *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Serial.Device = o.device
		case "baud":
			cfg.Serial.Baud = o.baud
		case "crc":
			cfg.Protocol.CRC = o.crc
		case "log-level":
			cfg.Log.Level = o.logLevel
		case "capture":
			cfg.Capture.Path = o.capture
		}
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session is an open link plus what has to be released with it.
type session struct {
	link   *link.Link
	rec    *capture.Recorder
	logger zerolog.Logger
}

func (s *session) Close() {
	if err := s.link.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("close port")
	}
	if s.rec != nil {
		if err := s.rec.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close capture")
		}
	}
}

func openSession(cfg config.Config) (*session, error) {
	logger := logging.New(logging.Options{App: "dgusctl", Level: cfg.Log.Level})

	opts := []link.Option{
		link.WithCRC(cfg.Protocol.CRC),
		link.WithAccumulatorSize(cfg.Protocol.AccumulatorSize),
		link.WithLogger(logger),
	}
	var rec *capture.Recorder
	if cfg.Capture.Path != "" {
		r, err := capture.Create(cfg.Capture.Path)
		if err != nil {
			return nil, err
		}
		rec = r
		opts = append(opts, link.WithRecorder(rec))
	}

	port, err := link.Open(cfg.Serial)
	if err != nil {
		if rec != nil {
			rec.Close()
		}
		return nil, err
	}
	l, err := link.New(port, opts...)
	if err != nil {
		port.Close()
		if rec != nil {
			rec.Close()
		}
		return nil, err
	}
	logger.Info().
		Str("device", cfg.Serial.Device).
		Int("baud", cfg.Serial.Baud).
		Bool("crc", cfg.Protocol.CRC).
		Str("session", l.Session()).
		Msg("link open")
	return &session{link: l, rec: rec, logger: logger}, nil
}

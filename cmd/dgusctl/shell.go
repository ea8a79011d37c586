package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/OpenPSG/dgus/link"
	"github.com/chzyer/readline"
)

const shellHelp = `Commands:
  read  <addr> <words>    Read words from variable memory
  write <addr> <word>...  Write words to variable memory
  send  <hex>             Send a raw frame and print the response
  help                    Show this help
  quit                    Exit
`

func runShell(args []string) error {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  dgusctl shell [flags]\n\nFlags:\n")
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

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dgus> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	sh := &shell{link: s.link, out: rl.Stdout(), timeout: opts.timeout}
	fmt.Fprint(sh.out, shellHelp)
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		if !sh.exec(line) {
			return nil
		}
	}
}

type shell struct {
	link    *link.Link
	out     io.Writer
	timeout time.Duration
}

// exec runs one input line and reports whether the shell should continue.
func (sh *shell) exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "read", "r":
		err = sh.read(args)
	case "write", "w":
		err = sh.write(args)
	case "send", "s":
		err = sh.send(strings.Join(args, ""))
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(sh.out, "Unknown command: %s (type 'help')\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
	}
	return true
}

func (sh *shell) read(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: read <addr> <words>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	words, err := parseWordCount(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
	defer cancel()
	read, _ := commands(false)
	wd, err := sh.link.Read(ctx, read, addr, words)
	if err != nil {
		return err
	}
	fmt.Fprint(sh.out, formatWords(wd.Address, wd.Data))
	return nil
}

func (sh *shell) write(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: write <addr> <word>...")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	words, err := parseWords(args[1:])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
	defer cancel()
	_, write := commands(false)
	if err := sh.link.Write(ctx, write, addr, wordValues(words)...); err != nil {
		return err
	}
	fmt.Fprintln(sh.out, "OK")
	return nil
}

func (sh *shell) send(raw string) error {
	frame, err := parseHex(raw)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
	defer cancel()
	resp, err := sh.link.Exchange(ctx, frame)
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.out, resp)
	return nil
}

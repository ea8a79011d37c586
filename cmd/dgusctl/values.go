package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/dgus"
	"github.com/OpenPSG/dgus/capture"
)

// maxWords is the most words one frame can carry.
const maxWords = dgus.MaxData / 2

// parseAddress accepts decimal, 0x-prefixed hex or 0o/0b forms.
func parseAddress(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint16(v), nil
}

func parseWordCount(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid word count %q: %w", s, err)
	}
	if v == 0 || v > maxWords {
		return 0, fmt.Errorf("word count %d outside [1, %d]", v, maxWords)
	}
	return uint8(v), nil
}

func parseWords(args []string) ([]uint16, error) {
	if len(args) > maxWords {
		return nil, fmt.Errorf("%d words exceed the %d a frame can carry", len(args), maxWords)
	}
	words := make([]uint16, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(strings.TrimSpace(a), 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid word %q: %w", a, err)
		}
		words = append(words, uint16(v))
	}
	return words, nil
}

func wordValues(words []uint16) []any {
	values := make([]any, len(words))
	for i, w := range words {
		values[i] = w
	}
	return values
}

// formatWords prints one "addr: word" line per word of v.
func formatWords(addr uint16, v dgus.View) string {
	var b strings.Builder
	for i := range v.Words() {
		w, _ := v.Word(i)
		fmt.Fprintf(&b, "0x%04X: 0x%04X (%d)\n", addr+uint16(i), w, w)
	}
	return b.String()
}

func formatRecord(rec capture.Record) string {
	ts := rec.Time.Format(time.RFC3339Nano)
	if rec.Err != "" {
		return fmt.Sprintf("%s %-3s %s error: %s", ts, rec.Direction, shortSession(rec.Session), rec.Err)
	}
	return fmt.Sprintf("%s %-3s %s % X", ts, rec.Direction, shortSession(rec.Session), rec.Data)
}

func shortSession(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// parseHex decodes hex typed at the shell, ignoring spaces.
func parseHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// Package link drives a DGUS display over a serial port: it writes built
// frames and reassembles responses from whatever chunks the port delivers.
package link

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/OpenPSG/dgus"
	"github.com/OpenPSG/dgus/capture"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures a Link.
type Option func(*Link)

// WithCRC makes the link append and expect frame checksums.
func WithCRC(crc bool) Option {
	return func(l *Link) { l.crc = crc }
}

// WithAccumulatorSize bounds the largest frame the link can receive.
func WithAccumulatorSize(size int) Option {
	return func(l *Link) { l.accSize = size }
}

// WithLogger sets the logger. The default is the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Link) { l.log = logger }
}

// WithRecorder captures all traffic to rec.
func WithRecorder(rec *capture.Recorder) Option {
	return func(l *Link) { l.rec = rec }
}

// WithDispatcher hands frames that arrive while Read or Write wait for their
// reply, such as touch auto-uploads, to d. Without it they are logged and
// dropped.
func WithDispatcher(d *dgus.Dispatcher) Option {
	return func(l *Link) { l.unsolicited = d }
}

// Link is a session with one display. Send may be called from any
// goroutine; Receive, Exchange, Serve and the Read and Write helpers must be
// used from one goroutine at a time.
type Link struct {
	port    Port
	session string
	crc     bool
	accSize int
	log     zerolog.Logger
	rec     *capture.Recorder

	unsolicited *dgus.Dispatcher

	sendMu sync.Mutex

	acc     *dgus.Accumulator
	rbuf    [dgus.MaxFrameSize]byte
	pending []byte
}

// New returns a link over port.
func New(port Port, opts ...Option) (*Link, error) {
	l := &Link{
		port:    port,
		session: uuid.NewString(),
		accSize: dgus.MaxFrameSize,
		log:     log.Logger,
	}
	for _, opt := range opts {
		opt(l)
	}

	acc, err := dgus.NewAccumulator(l.accSize, l.crc)
	if err != nil {
		return nil, err
	}
	l.acc = acc
	l.log = l.log.With().Str("session", l.session).Logger()
	return l, nil
}

// Session returns the identifier of this link in logs and captures.
func (l *Link) Session() string { return l.session }

// CRC reports whether frames carry checksums.
func (l *Link) CRC() bool { return l.crc }

// Dropped returns the number of noise bytes skipped between frames.
func (l *Link) Dropped() uint64 { return l.acc.Dropped() }

// Close closes the port.
func (l *Link) Close() error {
	return l.port.Close()
}

// Send writes a finalized frame.
func (l *Link) Send(frame []byte) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	for rest := frame; len(rest) > 0; {
		n, err := l.port.Write(rest)
		if err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("write frame: %w", io.ErrShortWrite)
		}
		rest = rest[n:]
	}
	l.log.Debug().Hex("frame", frame).Msg("sent")
	l.record(capture.DirectionOut, frame, nil)
	return nil
}

// Receive returns the next valid response. Corrupt frames are logged and
// skipped. The response borrows the link's buffer and is valid until the
// next call to Receive.
func (l *Link) Receive(ctx context.Context) (dgus.Response, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(l.pending) == 0 {
			n, err := l.port.Read(l.rbuf[:])
			if n > 0 {
				l.record(capture.DirectionIn, l.rbuf[:n], nil)
				l.pending = l.rbuf[:n]
			}
			if err != nil {
				return nil, fmt.Errorf("read port: %w", err)
			}
			if n == 0 {
				continue
			}
		}

		res, rest := l.acc.Feed(l.pending)
		l.pending = rest
		switch res.Status {
		case dgus.FeedFrame:
			l.log.Debug().Hex("frame", l.acc.Frame()).Stringer("response", res.Response).Msg("received")
			return res.Response, nil
		case dgus.FeedError:
			l.log.Warn().Err(res.Err).Msg("discarded frame")
			l.record(capture.DirectionIn, nil, res.Err)
		}
	}
}

// Exchange sends frame and waits for the response to it.
func (l *Link) Exchange(ctx context.Context, frame []byte) (dgus.Response, error) {
	if err := l.Send(frame); err != nil {
		return nil, err
	}
	return l.Receive(ctx)
}

// Read asks for words words starting at addr and returns the reply. Other
// frames arriving first are passed on as with WithDispatcher. The reply is
// valid until the next call to Receive.
func (l *Link) Read(ctx context.Context, cmd dgus.Command, addr uint16, words uint8) (*dgus.WordData, error) {
	req, err := dgus.NewReadRequest(dgus.NewVec(dgus.MaxFrameSize), cmd, addr, words)
	if err != nil {
		return nil, err
	}
	return l.read(ctx, req, func(wd *dgus.WordData) bool {
		return wd.Address == addr
	})
}

// ReadDword is Read for a 32-bit address.
func (l *Link) ReadDword(ctx context.Context, addr uint32, words uint8) (*dgus.WordData, error) {
	req, err := dgus.NewDwordReadRequest(dgus.NewVec(dgus.MaxFrameSize), addr, words)
	if err != nil {
		return nil, err
	}
	return l.read(ctx, req, func(wd *dgus.WordData) bool {
		return wd.Address32 == addr
	})
}

func (l *Link) read(ctx context.Context, req *dgus.Request, at func(*dgus.WordData) bool) (*dgus.WordData, error) {
	frame, err := req.Finalize(l.crc)
	if err != nil {
		return nil, err
	}
	if err := l.Send(frame); err != nil {
		return nil, err
	}
	wlen := frame[dgus.PrefixSize+1+req.Command().AddressWidth()]
	resp, err := l.await(ctx, func(resp dgus.Response) bool {
		wd, ok := resp.(*dgus.WordData)
		return ok && wd.Command == req.Command() && wd.WordLen == wlen && at(wd)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*dgus.WordData), nil
}

// Write stores values at consecutive addresses from addr and waits for the
// display to acknowledge.
func (l *Link) Write(ctx context.Context, cmd dgus.Command, addr uint16, values ...any) error {
	req, err := dgus.NewRequest(dgus.NewVec(dgus.MaxFrameSize), cmd, addr)
	if err != nil {
		return err
	}
	return l.write(ctx, req, values)
}

// WriteDword is Write for a 32-bit address.
func (l *Link) WriteDword(ctx context.Context, addr uint32, values ...any) error {
	req, err := dgus.NewDwordRequest(dgus.NewVec(dgus.MaxFrameSize), addr)
	if err != nil {
		return err
	}
	return l.write(ctx, req, values)
}

// WriteCurve appends samples to curve channel ch.
func (l *Link) WriteCurve(ctx context.Context, ch uint8, samples ...any) error {
	req, err := dgus.NewCurveRequest(dgus.NewVec(dgus.MaxFrameSize), ch)
	if err != nil {
		return err
	}
	return l.write(ctx, req, samples)
}

func (l *Link) write(ctx context.Context, req *dgus.Request, values []any) error {
	for _, v := range values {
		if err := req.Push(v); err != nil {
			return fmt.Errorf("write 0x%04X: %w", req.Address32(), err)
		}
	}
	frame, err := req.Finalize(l.crc)
	if err != nil {
		return err
	}
	if err := l.Send(frame); err != nil {
		return err
	}
	_, err = l.await(ctx, func(resp dgus.Response) bool {
		ack, ok := resp.(*dgus.Ack)
		return ok && ack.Command == req.Command()
	})
	return err
}

// await receives until match accepts a response. Everything else goes to
// the dispatcher set by WithDispatcher.
func (l *Link) await(ctx context.Context, match func(dgus.Response) bool) (dgus.Response, error) {
	for {
		resp, err := l.Receive(ctx)
		if err != nil {
			return nil, err
		}
		if match(resp) {
			return resp, nil
		}
		if l.unsolicited == nil {
			l.log.Debug().Stringer("response", resp).Msg("skipped unsolicited frame")
			continue
		}
		if err := l.unsolicited.Dispatch(resp); err != nil {
			l.log.Warn().Err(err).Msg("dispatch")
		}
	}
}

// Serve hands every received response to d until ctx is done or the port
// fails. Handler errors are logged and do not stop the loop.
func (l *Link) Serve(ctx context.Context, d *dgus.Dispatcher) error {
	for {
		resp, err := l.Receive(ctx)
		if err != nil {
			return err
		}
		if err := d.Dispatch(resp); err != nil {
			l.log.Warn().Err(err).Msg("dispatch")
		}
	}
}

func (l *Link) record(dir capture.Direction, data []byte, ferr error) {
	if l.rec == nil {
		return
	}
	rec := capture.Record{
		Time:      time.Now(),
		Session:   l.session,
		Direction: dir,
		Data:      data,
	}
	if ferr != nil {
		rec.Err = ferr.Error()
	}
	if err := l.rec.Record(rec); err != nil {
		l.log.Error().Err(err).Msg("capture")
	}
}

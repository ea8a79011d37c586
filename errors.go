package dgus

import "errors"

// Codec errors.
var (
	// ErrUnsupportedType indicates a value whose Go type has no fixed wire shape.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrBufferOverflow indicates the destination or frame payload is exhausted.
	ErrBufferOverflow = errors.New("buffer overflow")

	// ErrInsufficientData indicates the source is shorter than the requested type.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidBool indicates a boolean word that was neither 0 nor 1.
	ErrInvalidBool = errors.New("invalid bool")
)

// Request builder errors.
var (
	// ErrBufferTooSmall indicates the storage cannot hold the fixed frame overhead.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrAlreadyFinalized indicates the request was already finalized.
	ErrAlreadyFinalized = errors.New("request already finalized")

	// ErrPayloadNotAllowed indicates a payload push on a read request.
	ErrPayloadNotAllowed = errors.New("read requests carry no payload")

	// ErrPayloadNotEmpty indicates CopyFrom on a request that already holds data.
	ErrPayloadNotEmpty = errors.New("payload is not empty")
)

// Frame errors.
var (
	// ErrFrameTooShort indicates the frame ends before its mandatory fields.
	ErrFrameTooShort = errors.New("frame too short")

	// ErrBadHeader indicates the frame does not start with the header magic.
	ErrBadHeader = errors.New("bad header")

	// ErrLengthMismatch indicates the length byte disagrees with the frame.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrChecksumMismatch indicates the trailing CRC does not match the content.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnknownCommand indicates a command outside the supported set.
	ErrUnknownCommand = errors.New("unknown command")
)

// ErrNoRoute indicates a dispatched response whose address has no handler.
var ErrNoRoute = errors.New("no handler for address")

// Package dgus implements the DGUS serial protocol spoken by DWIN touchscreen
// display controllers.
//
// The display exposes its state through a word-addressed memory map. Every
// request and response travels in the following frame:
//
// | Field    | Size (bytes) | Description                                   |
// |----------|--------------|-----------------------------------------------|
// | Header   | 2            | Frame magic, 0x5A 0xA5                        |
// | Length   | 1            | Bytes from Command through the end of CRC     |
// | Command  | 1            | Command identifier                            |
// | Address  | 1, 2 or 4    | Big-endian word address or curve channel      |
// | WordLen  | 0 or 1       | Number of words to read (read commands only)  |
// | Data     | 0..246       | Payload, big-endian (0..244 for dword frames) |
// | CRC      | 0 or 2       | CRC-16/MODBUS over Command..Data, little-endian |
//
// - One address unit is one 2-byte word.
// - The CRC is optional and must be agreed on by both sides out of band.
// - A successful write is acknowledged by a frame whose payload is the two
//   byte literal "OK".
//
// ## Commands
//
// | Command       | Code | Description                    |
// |---------------|------|--------------------------------|
// | WriteRegister | 0x80 | Writes a control register      |
// | ReadRegister  | 0x81 | Reads control registers        |
// | WriteVP       | 0x82 | Writes variable (VP) memory    |
// | ReadVP        | 0x83 | Reads variable (VP) memory     |
// | WriteCurve    | 0x84 | Appends samples to a curve     |
// | WriteDword    | 0x86 | Writes VP memory, 32-bit addr  |
// | ReadDword     | 0x87 | Reads VP memory, 32-bit addr   |
//
// WriteCurve carries a one byte channel in place of the address. The dword
// commands carry a four byte address, so their payload is two bytes shorter.
//
// ## Data encoding
//
// Payload values are encoded structurally from their Go type with no tags or
// length prefixes, so both sides must agree on the shape of a value:
//
// - Fixed width integers and floats are big-endian.
// - bool is a 16-bit word holding 0 or 1.
// - Arrays and structs are the concatenation of their elements in order.
// - [N]byte is copied verbatim. A single byte is half a word and pairs with
//   the next half word at the same address.
// - Types implementing [Enum] travel as their 16-bit case index.
//
// Strings, slices, maps, pointers, interfaces and platform sized integers are
// rejected with [ErrUnsupportedType].
package dgus

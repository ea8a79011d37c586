package dgus

import "fmt"

// Handler processes word data received for one address.
type Handler interface {
	Handle(data *WordData) error
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(data *WordData) error

func (f HandlerFunc) Handle(data *WordData) error { return f(data) }

// route keys a handler by start address and, for read replies, word count.
// A zero word count matches any length.
type route struct {
	addr  uint16
	words uint8
}

// Dispatcher routes word data to handlers by the address it was read from.
// A route registered with a word count wins over the address-only route for
// read replies of exactly that length. Routes are registered up front;
// Dispatch does not allocate.
type Dispatcher struct {
	routes map[route]Handler
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[route]Handler)}
}

// Handle registers h for addr, replacing any previous handler.
func (d *Dispatcher) Handle(addr uint16, h Handler) {
	d.routes[route{addr: addr}] = h
}

// HandleWords registers h for read replies of exactly words words at addr.
// A zero count is the same as Handle.
func (d *Dispatcher) HandleWords(addr uint16, words uint8, h Handler) {
	d.routes[route{addr: addr, words: words}] = h
}

// HandleFunc registers fn for addr.
func (d *Dispatcher) HandleFunc(addr uint16, fn func(data *WordData) error) {
	d.Handle(addr, HandlerFunc(fn))
}

// Bind registers fn for addr, decoding the payload as a T first.
func Bind[T any](d *Dispatcher, addr uint16, fn func(T) error) error {
	if _, err := SizeOf[T](); err != nil {
		return err
	}
	d.HandleFunc(addr, func(data *WordData) error {
		v, err := As[T](data.Data)
		if err != nil {
			return err
		}
		return fn(v)
	})
	return nil
}

// BindWords is Bind for read replies of the word count of T. T must be a
// whole number of words.
func BindWords[T any](d *Dispatcher, addr uint16, fn func(T) error) error {
	n, err := SizeOf[T]()
	if err != nil {
		return err
	}
	if n == 0 || n%2 != 0 || n/2 > MaxData/2 {
		return fmt.Errorf("%w: %d bytes is not a word count", ErrUnsupportedType, n)
	}
	d.HandleWords(addr, uint8(n/2), HandlerFunc(func(data *WordData) error {
		v, err := As[T](data.Data)
		if err != nil {
			return err
		}
		return fn(v)
	}))
	return nil
}

// Dispatch hands resp to the handler registered for its address. Acks are
// ignored, as are curve and dword frames, which have no 16-bit address.
func (d *Dispatcher) Dispatch(resp Response) error {
	wd, ok := resp.(*WordData)
	if !ok || wd.Command.AddressWidth() != AddressSize {
		return nil
	}
	h, ok := d.lookup(wd)
	if !ok {
		return fmt.Errorf("%w: 0x%04X", ErrNoRoute, wd.Address)
	}
	if err := h.Handle(wd); err != nil {
		return fmt.Errorf("handle 0x%04X: %w", wd.Address, err)
	}
	return nil
}

func (d *Dispatcher) lookup(wd *WordData) (Handler, bool) {
	if wd.HasWordLen && wd.WordLen != 0 {
		if h, ok := d.routes[route{addr: wd.Address, words: wd.WordLen}]; ok {
			return h, true
		}
	}
	h, ok := d.routes[route{addr: wd.Address}]
	return h, ok
}

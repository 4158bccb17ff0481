package protocol

import (
	"encoding/gob"
	"net"
	"sync"
	"time"
)

// writeTimeout keeps a stalled peer from pinning a writer forever. A
// missed snapshot is recovered by the client's resend loop.
const writeTimeout = 5 * time.Second

// Conn frames gob values over a byte stream. gob output is
// self-describing, so both ends agree on payload types without an
// out-of-band schema. Concurrent writers (broadcast fan-out plus a direct
// reply to the same session) are serialized by one lock; the read side
// has a single owner and needs none.
type Conn struct {
	raw net.Conn
	dec *gob.Decoder

	wmu sync.Mutex
	enc *gob.Encoder
}

func NewConn(raw net.Conn) *Conn {
	return &Conn{raw: raw, dec: gob.NewDecoder(raw), enc: gob.NewEncoder(raw)}
}

// ReadEvent blocks for the next client event.
func (c *Conn) ReadEvent() (Event, error) {
	var ev Event
	if err := c.dec.Decode(&ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ReadState blocks for the next server snapshot.
func (c *Conn) ReadState() (ChatState, error) {
	var st ChatState
	err := c.dec.Decode(&st)
	return st, err
}

func (c *Conn) WriteEvent(ev Event) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.raw.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.enc.Encode(&ev)
}

func (c *Conn) WriteState(st ChatState) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.raw.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.enc.Encode(st)
}

func (c *Conn) Close() error {
	return c.raw.Close()
}

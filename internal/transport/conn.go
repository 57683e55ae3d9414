package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/faradayfan/minecraft-monitor/internal/protocol"
)

// MaxLineSize caps the request line; anything longer is rejected.
const MaxLineSize = 8 << 10

var ErrLineTooLong = errors.New("request line too long")

type Conn struct {
	c net.Conn
	r *bufio.Reader
	w *bufio.Writer
}

func NewConn(c net.Conn) *Conn {
	return &Conn{
		c: c,
		r: bufio.NewReaderSize(c, MaxLineSize),
		w: bufio.NewWriter(c),
	}
}

func (c *Conn) Close() error {
	return c.c.Close()
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.c.SetDeadline(t)
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.c.RemoteAddr()
}

// ReadLine reads the first line of the request without its terminator.
// A client that closes after sending a partial line still yields that line.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", ErrLineTooLong
	}
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (c *Conn) Send(resp protocol.Response) error {
	if _, err := resp.WriteTo(c.w); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return c.w.Flush()
}

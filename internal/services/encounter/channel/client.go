package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
)

// Client is the relay side of the channel: one websocket connection to a
// hub. Frames read from the hub go to local subscribers.
type Client struct {
	conn *websocket.Conn
	subs subscriptions
	log  zerolog.Logger

	writeMu sync.Mutex
	encoder *json.Encoder

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the hub at url, a ws:// or wss:// address. origin
// defaults to the http form of url.
func Dial(ctx context.Context, url, origin string, log zerolog.Logger) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("hub url is required")
	}
	if strings.TrimSpace(origin) == "" {
		origin = "http" + strings.TrimPrefix(url, "ws")
	}
	config, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	conn, err := config.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:    conn,
		log:     log,
		encoder: json.NewEncoder(conn),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Send writes payload to the hub on topic.
func (c *Client) Send(ctx context.Context, topic Topic, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := encodeFrame(topic, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.encoder.Encode(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", topic, err)
	}
	return nil
}

// OnReceive subscribes h to frames on topic from the hub.
func (c *Client) OnReceive(topic Topic, h Handler) func() {
	return c.subs.add(topic, h)
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close ends the connection.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer c.closeOnce.Do(func() { close(c.done) })
	decoder := json.NewDecoder(c.conn)
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.Debug().Err(err).Msg("websocket client read ended")
			}
			return
		}
		c.subs.deliver(context.Background(), frame)
	}
}

package transport

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// WSClient is one direct websocket connection to a host.
type WSClient struct {
	log    *zap.Logger
	conn   *websocket.Conn
	inbox  chan []byte
	cancel context.CancelFunc
}

// DialWS connects directly to a host at address:port.
func DialWS(ctx context.Context, log *zap.Logger, address string, port int) (*WSClient, error) {
	url := fmt.Sprintf("ws://%s:%d/ws", address, port)
	return dialWS(ctx, log, url)
}

func dialWS(ctx context.Context, log *zap.Logger, url string) (*WSClient, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &WSClient{
		log:    log,
		conn:   conn,
		inbox:  make(chan []byte, 64),
		cancel: cancel,
	}
	go c.readLoop(readCtx)
	return c, nil
}

func (c *WSClient) readLoop(ctx context.Context) {
	defer close(c.inbox)
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		select {
		case c.inbox <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (c *WSClient) Inbox() <-chan []byte { return c.inbox }

func (c *WSClient) Send(ctx context.Context, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

func (c *WSClient) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

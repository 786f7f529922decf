// Package remote is the websocket client for the world endpoint: read
// queries for the observer, submissions and receipts for the ledger.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelbot.ai/internal/protocol"
)

// CodeError is a request the server answered with an error code.
type CodeError struct {
	Code    string
	Message string
}

func (e *CodeError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

var errClosed = errors.New("connection closed")

type Client struct {
	conn *websocket.Conn
	log  *log.Logger

	entityID string

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan protocol.ResMsg
	waiters  map[string]chan protocol.ReceiptMsg
	receipts map[string]protocol.ReceiptMsg // arrived before anyone awaited

	resSchema     *jsonschema.Schema
	receiptSchema *jsonschema.Schema

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects, performs the HELLO/WELCOME handshake and starts the read
// loop.
func Dial(ctx context.Context, url, agentName, entityID string, logger *log.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       agentName,
		EntityID:        entityID,
	}
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}

	welcomeSchema := protocol.MustCompileSchema("welcome")
	_, raw, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("await WELCOME: %w", err)
	}
	if err := validateFrame(welcomeSchema, raw); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("WELCOME: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(raw, &welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("WELCOME: %w", err)
	}
	logger.Printf("connected session=%s entity=%s", welcome.SessionID, welcome.EntityID)

	c := &Client{
		conn:          conn,
		log:           logger,
		entityID:      welcome.EntityID,
		pending:       map[string]chan protocol.ResMsg{},
		waiters:       map[string]chan protocol.ReceiptMsg{},
		receipts:      map[string]protocol.ReceiptMsg{},
		resSchema:     protocol.MustCompileSchema("res"),
		receiptSchema: protocol.MustCompileSchema("receipt"),
		closed:        make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) EntityID() string { return c.entityID }

func (c *Client) Close() error {
	c.shutdown(errClosed)
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
		_ = c.conn.Close()
	})
}

func validateFrame(s *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

func (c *Client) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("%w: %v", errClosed, err))
			return
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			c.log.Printf("drop undecodable frame: %v", err)
			continue
		}
		switch base.Type {
		case protocol.TypeRes:
			if err := validateFrame(c.resSchema, raw); err != nil {
				c.log.Printf("drop invalid RES: %v", err)
				continue
			}
			var res protocol.ResMsg
			if err := json.Unmarshal(raw, &res); err != nil {
				continue
			}
			c.mu.Lock()
			ch := c.pending[res.ID]
			delete(c.pending, res.ID)
			c.mu.Unlock()
			if ch != nil {
				ch <- res
			}

		case protocol.TypeReceipt:
			if err := validateFrame(c.receiptSchema, raw); err != nil {
				c.log.Printf("drop invalid RECEIPT: %v", err)
				continue
			}
			var rcpt protocol.ReceiptMsg
			if err := json.Unmarshal(raw, &rcpt); err != nil {
				continue
			}
			c.mu.Lock()
			if ch := c.waiters[rcpt.SubmissionID]; ch != nil {
				delete(c.waiters, rcpt.SubmissionID)
				c.mu.Unlock()
				ch <- rcpt
				continue
			}
			c.receipts[rcpt.SubmissionID] = rcpt
			c.mu.Unlock()

		default:
			// Server chatter we don't consume.
		}
	}
}

// call sends one REQ and waits for its RES.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%s params: %w", method, err)
		}
		raw = b
	}
	req := protocol.ReqMsg{
		Type:            protocol.TypeReq,
		ProtocolVersion: protocol.Version,
		ID:              uuid.NewString(),
		Method:          method,
		Params:          raw,
	}

	ch := make(chan protocol.ResMsg, 1)
	c.mu.Lock()
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return fmt.Errorf("%s: %w", method, c.closeErr)
	case res := <-ch:
		if !res.OK {
			if !protocol.IsKnownCode(res.Code) {
				c.log.Printf("unknown error code %q for %s", res.Code, method)
			}
			return &CodeError{Code: res.Code, Message: res.Message}
		}
		if result != nil {
			if err := json.Unmarshal(res.Result, result); err != nil {
				return fmt.Errorf("%s result: %w", method, err)
			}
		}
		return nil
	}
}

// awaitReceipt blocks until the receipt for a submission arrives, consuming
// a stashed one if the push beat the caller here.
func (c *Client) awaitReceipt(ctx context.Context, submissionID string) (protocol.ReceiptMsg, error) {
	c.mu.Lock()
	if rcpt, ok := c.receipts[submissionID]; ok {
		delete(c.receipts, submissionID)
		c.mu.Unlock()
		return rcpt, nil
	}
	ch := make(chan protocol.ReceiptMsg, 1)
	c.waiters[submissionID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiters, submissionID)
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return protocol.ReceiptMsg{}, ctx.Err()
	case <-c.closed:
		return protocol.ReceiptMsg{}, c.closeErr
	case rcpt := <-ch:
		return rcpt, nil
	}
}

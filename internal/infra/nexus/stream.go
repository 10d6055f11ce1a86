package nexus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"cancel_sweep/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	streamReadTimeout  = 60 * time.Second
	streamCloseTimeout = time.Second

	MessageOrder = "order"
	MessageEnd   = "end"
	MessageError = "error"
)

// StreamMessage is one frame of the submissions stream. The server sends one
// "order" frame per submission followed by a single "end" frame.
type StreamMessage struct {
	Type    string        `json:"type"` // order, end, error
	Order   *domain.Order `json:"order,omitempty"`
	Status  int           `json:"status,omitempty"`
	Message string        `json:"message,omitempty"`
}

// QueryOrderSubmissions opens a submissions stream for the account. The query
// is day-granular on the server side.
func (c *Client) QueryOrderSubmissions(ctx context.Context, account domain.Account, begin, end time.Time) (domain.OrderStream, error) {
	const op = "query_order_submissions"
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("account", account.Name)
	query.Set("begin", begin.Format(time.RFC3339Nano))
	query.Set("end", end.Format(time.RFC3339Nano))
	rawQuery := query.Encode()

	header := make(http.Header)
	for k, v := range c.signer.GenerateHeaders(http.MethodGet, submissionsPath, rawQuery, "", c.now()) {
		header.Set(k, v)
	}
	header.Set("User-Agent", DefaultUserAgent)

	conn, resp, err := c.dialer.DialContext(ctx, c.streamURL+submissionsPath+"?"+rawQuery, header)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusNotFound {
				return nil, fmt.Errorf("%s: %w", account.Name, domain.ErrAccountNotFound)
			}
			return nil, &domain.RemoteError{Op: op, Status: resp.StatusCode, Body: err.Error()}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.NewNetworkError(op, fmt.Errorf("dial failed: %w", err))
	}

	s := &submissionStream{conn: conn, client: c, account: account.Name}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	c.streams[s] = struct{}{}
	c.mu.Unlock()

	c.logger.Debug("Submissions stream opened", slog.String("account", account.Name))
	return s, nil
}

// submissionStream reads frames until the end frame. It is used by a single
// goroutine; Close may be called from any goroutine.
type submissionStream struct {
	conn    *websocket.Conn
	client  *Client
	account string
	done    bool

	closeOnce sync.Once
	closeErr  error
}

func (s *submissionStream) Next(ctx context.Context) (domain.Order, error) {
	const op = "query_order_submissions"
	for {
		if s.done {
			return domain.Order{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return domain.Order{}, err
		}

		deadline := time.Now().Add(streamReadTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		s.conn.SetReadDeadline(deadline)

		var msg StreamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.done = true
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Order{}, ctxErr
			}
			return domain.Order{}, domain.NewNetworkError(op, err)
		}

		switch msg.Type {
		case MessageOrder:
			if msg.Order == nil {
				return domain.Order{}, fmt.Errorf("%s: order frame without order", op)
			}
			return *msg.Order, nil
		case MessageEnd:
			s.done = true
			return domain.Order{}, io.EOF
		case MessageError:
			s.done = true
			status := msg.Status
			if status == 0 {
				status = http.StatusInternalServerError
			}
			return domain.Order{}, &domain.RemoteError{Op: op, Status: status, Body: msg.Message}
		default:
			s.client.logger.Debug("Unknown stream frame", slog.String("type", msg.Type), slog.String("account", s.account))
		}
	}
}

// Close sends a close frame and releases the connection.
func (s *submissionStream) Close() error {
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamCloseTimeout))

		s.closeErr = s.conn.Close()

		s.client.mu.Lock()
		delete(s.client.streams, s)
		s.client.mu.Unlock()
	})
	return s.closeErr
}

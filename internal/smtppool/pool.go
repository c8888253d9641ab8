// Package smtppool provides a thread-safe SMTP connection pool that reuses
// TCP connections via the RSET command for mailbox probes.
package smtppool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"sync"
	"time"
)

var (
	// ErrPoolClosed is returned by CheckRCPT after Close.
	ErrPoolClosed = errors.New("smtppool: pool is closed")
	// ErrSenderRejected is returned when the server permanently refuses
	// the MAIL FROM address. The recipient was never asked about.
	ErrSenderRejected = errors.New("smtppool: sender rejected")
)

// Stages of the SMTP dialogue, reported in ReplyError.
const (
	StageBanner   = "banner"
	StageHello    = "EHLO"
	StageReset    = "RSET"
	StageMailFrom = "MAIL FROM"
	StageRcptTo   = "RCPT TO"
)

// ReplyError is an unexpected SMTP reply before the RCPT TO stage.
type ReplyError struct {
	Stage   string
	Code    int
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s rejected: %d %s", e.Stage, e.Code, e.Message)
}

// Temporary reports whether the reply is a 4xx transient failure.
func (e *ReplyError) Temporary() bool {
	return e.Code >= 400 && e.Code < 500
}

// Reply is the server's answer to RCPT TO.
type Reply struct {
	Code    int
	Message string
}

// Config configures the SMTP connection pool.
type Config struct {
	HeloDomain      string
	MailFrom        string
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	Port            string
	MaxConnsPerHost int           // max idle connections per MX host (default: 3)
	MaxUsesPerConn  int           // max RCPT checks per connection before reconnect (default: 100)
	MaxConnAge      time.Duration // max lifetime of a connection (default: 5m)
	// DialContext is injectable for testing. Defaults to a net.Dialer
	// bounded by ConnectTimeout.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)
}

// Pool manages SMTP connections per MX host.
type Pool struct {
	cfg    Config
	mu     sync.Mutex
	hosts  map[string][]*conn
	closed bool
}

type conn struct {
	netConn   net.Conn
	text      *textproto.Reader
	writer    *bufio.Writer
	createdAt time.Time
	uses      int
}

// New creates a new SMTP connection pool.
func New(cfg Config) *Pool {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	if cfg.DialContext == nil {
		d := &net.Dialer{Timeout: cfg.ConnectTimeout}
		cfg.DialContext = d.DialContext
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 3
	}
	if cfg.MaxUsesPerConn <= 0 {
		cfg.MaxUsesPerConn = 100
	}
	if cfg.MaxConnAge <= 0 {
		cfg.MaxConnAge = 5 * time.Minute
	}
	return &Pool{
		cfg:   cfg,
		hosts: make(map[string][]*conn),
	}
}

// CheckRCPT asks mxHost whether it accepts mail for email.
// For new connections: Banner → EHLO → MAIL FROM → RCPT TO
// For reused connections: RSET → MAIL FROM → RCPT TO
// Any reply to RCPT TO is returned as a Reply; errors describe transport
// failures or rejections before that stage (see ErrSenderRejected, ReplyError).
func (p *Pool) CheckRCPT(ctx context.Context, mxHost, email string) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}
	c, isNew, err := p.get(ctx, mxHost)
	if err != nil {
		return Reply{}, err
	}

	// Unblock pending I/O when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = c.netConn.SetDeadline(time.Now())
	})
	reply, err := p.doCheck(c, email, isNew)
	stopped := stop()

	if err != nil || !stopped {
		// Connection state is unknown, discard it
		_ = c.netConn.Close()
		if err == nil {
			err = ctx.Err()
		} else if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return Reply{}, err
	}

	p.put(mxHost, c)
	return reply, nil
}

// Close closes all connections in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for host, conns := range p.hosts {
		for _, c := range conns {
			c.quit()
		}
		delete(p.hosts, host)
	}
	return nil
}

// Idle returns the number of pooled idle connections for mxHost.
func (p *Pool) Idle(mxHost string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hosts[mxHost])
}

// get retrieves an existing connection from the pool or creates a new one.
func (p *Pool) get(ctx context.Context, mxHost string) (*conn, bool, error) {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil, false, ErrPoolClosed
	}

	conns := p.hosts[mxHost]

	// Try to find a reusable connection (LIFO for better locality)
	for i := len(conns) - 1; i >= 0; i-- {
		c := conns[i]
		conns = conns[:i]
		if c.stale(p.cfg.MaxUsesPerConn, p.cfg.MaxConnAge) {
			c.quit()
			continue
		}
		p.hosts[mxHost] = conns
		p.mu.Unlock()
		return c, false, nil
	}
	p.hosts[mxHost] = conns
	p.mu.Unlock()

	// Dial outside the lock so slow hosts do not block others
	c, err := p.dial(ctx, mxHost)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// put returns a connection to the pool for reuse.
func (p *Pool) put(mxHost string, c *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.hosts[mxHost]) >= p.cfg.MaxConnsPerHost {
		c.quit()
		return
	}

	p.hosts[mxHost] = append(p.hosts[mxHost], c)
}

// dial creates a new TCP connection to the MX host.
func (p *Pool) dial(ctx context.Context, mxHost string) (*conn, error) {
	address := net.JoinHostPort(mxHost, p.cfg.Port)
	dctx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	netConn, err := p.cfg.DialContext(dctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}

	return &conn{
		netConn:   netConn,
		text:      textproto.NewReader(bufio.NewReader(netConn)),
		writer:    bufio.NewWriter(netConn),
		createdAt: time.Now(),
	}, nil
}

// doCheck runs one probe transaction on c. New connections are greeted
// first; reused ones are reset.
func (p *Pool) doCheck(c *conn, email string, isNew bool) (Reply, error) {
	if err := c.netConn.SetDeadline(time.Now().Add(p.cfg.CommandTimeout)); err != nil {
		return Reply{}, fmt.Errorf("set deadline: %w", err)
	}

	if isNew {
		if err := p.greet(c); err != nil {
			return Reply{}, err
		}
	} else if err := c.expect(StageReset, "RSET"); err != nil {
		return Reply{}, err
	}

	if err := c.expect(StageMailFrom, "MAIL FROM:<%s>", p.cfg.MailFrom); err != nil {
		var re *ReplyError
		if errors.As(err, &re) && re.Code >= 500 {
			return Reply{}, fmt.Errorf("%w: %w", ErrSenderRejected, err)
		}
		return Reply{}, err
	}

	r, err := c.send("RCPT TO:<%s>", email)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", StageRcptTo, err)
	}
	c.uses++
	return r, nil
}

// greet reads the banner and introduces the client, falling back to HELO
// when EHLO is refused permanently.
func (p *Pool) greet(c *conn) error {
	banner, err := c.read()
	if err != nil {
		return fmt.Errorf("%s: %w", StageBanner, err)
	}
	if banner.Code >= 400 {
		return &ReplyError{Stage: StageBanner, Code: banner.Code, Message: banner.Message}
	}

	r, err := c.send("EHLO %s", p.cfg.HeloDomain)
	if err != nil {
		return fmt.Errorf("%s: %w", StageHello, err)
	}
	if r.Code >= 500 {
		if r, err = c.send("HELO %s", p.cfg.HeloDomain); err != nil {
			return fmt.Errorf("%s: %w", StageHello, err)
		}
	}
	if r.Code >= 400 {
		return &ReplyError{Stage: StageHello, Code: r.Code, Message: r.Message}
	}
	return nil
}

// expect sends a command and turns any 4xx or 5xx reply into a ReplyError
// tagged with stage.
func (c *conn) expect(stage, format string, args ...any) error {
	r, err := c.send(format, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	if r.Code >= 400 {
		return &ReplyError{Stage: stage, Code: r.Code, Message: r.Message}
	}
	return nil
}

func (c *conn) send(format string, args ...any) (Reply, error) {
	if _, err := fmt.Fprintf(c.writer, format+"\r\n", args...); err != nil {
		return Reply{}, err
	}
	if err := c.writer.Flush(); err != nil {
		return Reply{}, err
	}
	return c.read()
}

// read reads a possibly multi-line reply. Error codes are returned as a
// Reply; only transport failures are errors.
func (c *conn) read() (Reply, error) {
	code, msg, err := c.text.ReadResponse(0)
	if err != nil {
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) {
			return Reply{Code: protoErr.Code, Message: protoErr.Msg}, nil
		}
		return Reply{}, fmt.Errorf("read SMTP response: %w", err)
	}
	return Reply{Code: code, Message: msg}, nil
}

// stale reports whether c has served its quota or outlived maxAge.
func (c *conn) stale(maxUses int, maxAge time.Duration) bool {
	return c.uses >= maxUses || time.Since(c.createdAt) > maxAge
}

// quit says goodbye and closes the connection. Errors are ignored.
func (c *conn) quit() {
	_ = c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = c.writer.WriteString("QUIT\r\n")
	_ = c.writer.Flush()
	_ = c.netConn.Close()
}

// Package smtppool maintains SMTP connections per mail-exchange host and
// reuses them across RCPT probes via the RSET command. Every connection is
// either returned to the pool or closed before a probe call returns.
package smtppool

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Config configures the pool.
type Config struct {
	// HeloDomain is the domain announced in EHLO. Required.
	HeloDomain string
	// MailFrom is the sender used in MAIL FROM. An empty string sends the
	// RFC null sender <>, which is what a pure existence probe should use.
	MailFrom string
	// ConnectTimeout bounds the TCP dial. Default: 5s.
	ConnectTimeout time.Duration
	// CommandTimeout bounds each SMTP exchange. Default: 10s.
	CommandTimeout time.Duration
	// Port is the SMTP port. Default: "25".
	Port string
	// MaxConnsPerHost is the idle connection cap per MX host. Default: 3.
	MaxConnsPerHost int
	// MaxUsesPerConn is how many probes a connection serves before being
	// replaced. Default: 100.
	MaxUsesPerConn int
	// MaxConnAge is a connection's maximum lifetime. Default: 5m.
	MaxConnAge time.Duration
	// Dial is injectable for testing. Defaults to net.DialTimeout.
	Dial func(network, address string, timeout time.Duration) (net.Conn, error)
}

// Probe is the raw server answer to a RCPT TO, kept for diagnostics.
type Probe struct {
	Code    int    // RCPT TO reply code
	Message string // reply text
	Banner  string // server greeting from when the connection was opened
}

// Pool manages SMTP connections keyed by MX host.
type Pool struct {
	cfg    Config
	mu     sync.Mutex
	idle   map[string][]*conn
	closed bool
}

type conn struct {
	netConn   net.Conn
	r         *bufio.Reader
	w         *bufio.Writer
	banner    string
	createdAt time.Time
	uses      int
}

// New creates a pool. Zero config fields get defaults.
func New(cfg Config) *Pool {
	if cfg.Dial == nil {
		cfg.Dial = net.DialTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}
	if cfg.Port == "" {
		cfg.Port = "25"
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
		cfg:  cfg,
		idle: make(map[string][]*conn),
	}
}

// Rcpt probes whether mxHost accepts mail for the given address.
// Fresh connections run banner, EHLO, MAIL FROM, RCPT TO; reused ones
// start over with RSET. A transport or protocol error discards the
// connection and is returned to the caller; reply codes are data.
func (p *Pool) Rcpt(mxHost, to string) (Probe, error) {
	c, fresh, err := p.acquire(mxHost)
	if err != nil {
		return Probe{}, err
	}

	probe, err := p.exchange(c, fresh, to)
	if err != nil {
		_ = c.netConn.Close()
		return Probe{}, err
	}

	p.release(mxHost, c)
	return probe, nil
}

// Close QUITs and closes every idle connection. The pool is unusable
// afterwards; Rcpt returns an error.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for host, conns := range p.idle {
		for _, c := range conns {
			quit(c)
			_ = c.netConn.Close()
		}
		delete(p.idle, host)
	}
	return nil
}

func (p *Pool) acquire(mxHost string) (*conn, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, errors.New("smtppool: pool is closed")
	}

	conns := p.idle[mxHost]
	// LIFO: the most recently used connection is least likely to have
	// been dropped by the server.
	for i := len(conns) - 1; i >= 0; i-- {
		c := conns[i]
		if c.uses >= p.cfg.MaxUsesPerConn || time.Since(c.createdAt) > p.cfg.MaxConnAge {
			quit(c)
			_ = c.netConn.Close()
			conns = append(conns[:i], conns[i+1:]...)
			continue
		}
		conns = append(conns[:i], conns[i+1:]...)
		p.idle[mxHost] = conns
		return c, false, nil
	}
	p.idle[mxHost] = conns

	c, err := p.dial(mxHost)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (p *Pool) release(mxHost string, c *conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.idle[mxHost]) >= p.cfg.MaxConnsPerHost {
		quit(c)
		_ = c.netConn.Close()
		return
	}
	p.idle[mxHost] = append(p.idle[mxHost], c)
}

func (p *Pool) dial(mxHost string) (*conn, error) {
	address := net.JoinHostPort(mxHost, p.cfg.Port)
	netConn, err := p.cfg.Dial("tcp", address, p.cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}
	return &conn{
		netConn:   netConn,
		r:         bufio.NewReader(netConn),
		w:         bufio.NewWriter(netConn),
		createdAt: time.Now(),
	}, nil
}

func (p *Pool) exchange(c *conn, fresh bool, to string) (Probe, error) {
	if err := c.netConn.SetDeadline(time.Now().Add(p.cfg.CommandTimeout)); err != nil {
		return Probe{}, fmt.Errorf("set deadline: %w", err)
	}

	if fresh {
		code, msg, err := readReply(c.r)
		if err != nil {
			return Probe{}, fmt.Errorf("read banner: %w", err)
		}
		if code >= 500 {
			return Probe{}, fmt.Errorf("server rejected connection: %d %s", code, msg)
		}
		c.banner = msg

		code, msg, err = command(c, "EHLO "+p.cfg.HeloDomain)
		if err != nil {
			return Probe{}, fmt.Errorf("EHLO: %w", err)
		}
		if code >= 400 {
			return Probe{}, fmt.Errorf("EHLO rejected: %d %s", code, msg)
		}
	} else {
		code, msg, err := command(c, "RSET")
		if err != nil {
			return Probe{}, fmt.Errorf("RSET: %w", err)
		}
		if code >= 400 {
			return Probe{}, fmt.Errorf("RSET rejected: %d %s", code, msg)
		}
	}

	code, msg, err := command(c, "MAIL FROM:<"+p.cfg.MailFrom+">")
	if err != nil {
		return Probe{}, fmt.Errorf("MAIL FROM: %w", err)
	}
	if code >= 400 {
		// The server refused the probe sender, not the mailbox. Only a
		// RCPT reply may judge the address, so this host is a dead end.
		return Probe{}, fmt.Errorf("MAIL FROM rejected: %d %s", code, msg)
	}

	code, msg, err = command(c, "RCPT TO:<"+to+">")
	if err != nil {
		return Probe{}, fmt.Errorf("RCPT TO: %w", err)
	}

	c.uses++
	return Probe{Code: code, Message: msg, Banner: c.banner}, nil
}

func command(c *conn, line string) (int, string, error) {
	if _, err := c.w.WriteString(line + "\r\n"); err != nil {
		return 0, "", err
	}
	if err := c.w.Flush(); err != nil {
		return 0, "", err
	}
	return readReply(c.r)
}

// quit is best-effort; the connection is being discarded anyway.
func quit(c *conn) {
	_ = c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = c.w.WriteString("QUIT\r\n")
	_ = c.w.Flush()
}

// readReply reads one possibly multi-line SMTP reply.
func readReply(r *bufio.Reader) (code int, text string, err error) {
	var lines []string
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil {
			return 0, "", fmt.Errorf("read reply: %w", readErr)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return 0, "", errors.New("smtppool: reply line too short")
		}
		lines = append(lines, line)
		// A '-' after the code marks a continuation line.
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	last := lines[len(lines)-1]
	if _, err := fmt.Sscanf(last[:3], "%d", &code); err != nil {
		return 0, "", fmt.Errorf("smtppool: bad reply code %q: %w", last[:3], err)
	}
	return code, strings.Join(lines, " | "), nil
}

// Package connectivity answers the single question the sync engine gates on:
// can we probably reach the backend right now? The answer is best-effort and
// may be stale; callers must still tolerate remote failures.
package connectivity

import (
	"net"
	"net/url"
	"sync"
	"time"
)

// Oracle reports the current online/offline state. Implementations must be
// synchronous and non-blocking beyond a short probe timeout.
type Oracle interface {
	IsOnline() bool
}

// Static is a fixed-answer oracle, used by tests and the --offline flag.
type Static bool

func (s Static) IsOnline() bool { return bool(s) }

// Prober dials the API host and caches the verdict for a TTL so rapid
// repository operations don't each pay a dial.
type Prober struct {
	host    string // host:port to dial
	timeout time.Duration
	ttl     time.Duration

	mu        sync.Mutex
	lastCheck time.Time
	lastSeen  bool
}

// NewProber builds an oracle for the given API base URL. A URL without an
// explicit port probes 443 for https and 80 otherwise.
func NewProber(baseURL string, timeout, ttl time.Duration) (*Prober, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host = net.JoinHostPort(u.Hostname(), "443")
		} else {
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Prober{host: host, timeout: timeout, ttl: ttl}, nil
}

// IsOnline dials the API host, reusing a cached verdict within the TTL.
func (p *Prober) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastCheck) < p.ttl {
		return p.lastSeen
	}
	conn, err := net.DialTimeout("tcp", p.host, p.timeout)
	if conn != nil {
		conn.Close()
	}
	p.lastCheck = time.Now()
	p.lastSeen = err == nil
	return p.lastSeen
}

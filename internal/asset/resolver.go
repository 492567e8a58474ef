package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"

	"github.com/inamate/keepsake/internal/engine"
)

const (
	// sniffLen is how many leading bytes filetype needs to recognize an image.
	sniffLen = 261
	// maxEntries bounds the cache; settled entries are evicted first.
	maxEntries = 1024
)

var (
	// ErrSourceRefused is returned for sources outside the base origin and
	// the allow-list, and for hosts that resolve to private addresses.
	ErrSourceRefused = fmt.Errorf("%w: image source not allowed", engine.ErrResourceLoad)

	errUnavailable = fmt.Errorf("%w: image unavailable", engine.ErrResourceLoad)
)

// Info describes a resolved image source.
type Info struct {
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type entry struct {
	info    Info
	err     error
	pending bool
}

// Resolver probes image sources in the background so render passes never
// block on the network. Successful probes are cached; failures are reported
// once and probed again on the next pass.
//
// Only the base origin and the allowed hosts are fetched. Hosts other than
// the base that resolve to loopback, private or link-local addresses are
// refused at dial time.
type Resolver struct {
	client  *http.Client
	base    *url.URL
	allowed map[string]bool
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry
}

// NewResolver creates a resolver. Relative sources such as "/assets/x.png"
// are resolved against baseURL. Absolute sources must name the base host or
// one of allowedHosts.
func NewResolver(baseURL string, timeout time.Duration, allowedHosts ...string) (*Resolver, error) {
	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse asset base url: %w", err)
		}
		base = u
	}
	allowed := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = true
		}
	}

	r := &Resolver{
		base:    base,
		allowed: allowed,
		timeout: timeout,
		entries: make(map[string]*entry),
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	direct := &net.Dialer{Timeout: 5 * time.Second}
	guarded := &net.Dialer{Timeout: 5 * time.Second, Control: refusePrivate}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if r.isBase(addr) {
			return direct.DialContext(ctx, network, addr)
		}
		return guarded.DialContext(ctx, network, addr)
	}
	r.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("too many redirects")
			}
			return r.permit(req.URL)
		},
	}
	return r, nil
}

// refusePrivate is a net.Dialer Control hook run after name resolution.
func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrSourceRefused, address)
	}
	return nil
}

func (r *Resolver) isBase(addr string) bool {
	return r.base != nil && strings.EqualFold(addr, hostPort(r.base))
}

// permit checks that u may be fetched.
func (r *Resolver) permit(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrSourceRefused
	}
	if r.base != nil && strings.EqualFold(hostPort(u), hostPort(r.base)) {
		return nil
	}
	if r.allowed[strings.ToLower(u.Hostname())] {
		return nil
	}
	return ErrSourceRefused
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	if u.Scheme == "https" {
		return net.JoinHostPort(u.Hostname(), "443")
	}
	return net.JoinHostPort(u.Hostname(), "80")
}

// Resolve implements engine.ImageResolver.
func (r *Resolver) Resolve(src string) engine.ImageStatus {
	if src == "" {
		return engine.ImageStatus{Err: fmt.Errorf("%w: empty source", engine.ErrResourceLoad)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[src]
	switch {
	case !ok:
		r.start(src, &entry{})
		return engine.ImageStatus{}
	case e.pending:
		return engine.ImageStatus{}
	case errors.Is(e.err, ErrSourceRefused):
		return engine.ImageStatus{Err: ErrSourceRefused}
	case e.err != nil:
		r.start(src, e)
		return engine.ImageStatus{Err: errUnavailable}
	}
	return engine.ImageStatus{Loaded: true, Width: e.info.Width, Height: e.info.Height}
}

// Close stops in-flight probes and waits for them to exit.
func (r *Resolver) Close() {
	r.cancel()
	r.wg.Wait()
}

// start launches a probe. Callers hold r.mu.
func (r *Resolver) start(src string, e *entry) {
	if r.ctx.Err() != nil {
		return
	}
	if _, ok := r.entries[src]; !ok && len(r.entries) >= maxEntries {
		if !r.evict() {
			return
		}
	}
	e.pending = true
	e.err = nil
	r.entries[src] = e

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		info, err := r.probe(src)

		r.mu.Lock()
		defer r.mu.Unlock()
		e.pending = false
		e.info, e.err = info, err
		if err != nil {
			slog.Warn("image source unavailable", "src", src, "error", err)
		}
	}()
}

// evict drops one settled entry, preferring failures. Callers hold r.mu.
func (r *Resolver) evict() bool {
	victim := ""
	for src, e := range r.entries {
		if e.pending {
			continue
		}
		victim = src
		if e.err != nil {
			break
		}
	}
	if victim == "" {
		return false
	}
	delete(r.entries, victim)
	return true
}

func (r *Resolver) probe(src string) (Info, error) {
	target, err := r.locate(src)
	if err != nil {
		return Info{}, err
	}

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", engine.ErrResourceLoad, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrSourceRefused) {
			return Info{}, fmt.Errorf("fetch %s: %w", target, err)
		}
		return Info{}, fmt.Errorf("%w: fetch %s: %v", engine.ErrResourceLoad, target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("%w: fetch %s: status %d", engine.ErrResourceLoad, target, resp.StatusCode)
	}

	return Inspect(resp.Body)
}

func (r *Resolver) locate(src string) (string, error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", engine.ErrResourceLoad, err)
	}
	if !u.IsAbs() {
		if r.base == nil {
			return "", fmt.Errorf("%w: relative source %q without a base url", engine.ErrResourceLoad, src)
		}
		u = r.base.ResolveReference(u)
	}
	if err := r.permit(u); err != nil {
		return "", err
	}
	return u.String(), nil
}

// Inspect sniffs the stream's type and decodes only the image header.
func Inspect(rd io.Reader) (Info, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rd, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Info{}, fmt.Errorf("%w: read: %v", engine.ErrResourceLoad, err)
	}
	head = head[:n]

	if !filetype.IsImage(head) {
		return Info{}, fmt.Errorf("%w: not an image", engine.ErrResourceLoad)
	}
	kind, _ := filetype.Match(head)

	cfg, _, err := image.DecodeConfig(io.MultiReader(bytes.NewReader(head), rd))
	if err != nil {
		return Info{}, fmt.Errorf("%w: decode %s: %v", engine.ErrResourceLoad, kind.MIME.Value, err)
	}
	return Info{MIME: kind.MIME.Value, Width: cfg.Width, Height: cfg.Height}, nil
}

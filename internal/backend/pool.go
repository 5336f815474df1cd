package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Options はバックエンド接続プールの設定です。
type Options struct {
	BaseURL  string
	MaxConns int
	Timeout  time.Duration

	// HTTPClient を指定すると内部のクライアントの代わりに使います（テスト用）。
	HTTPClient *http.Client
}

// Pool はプロセス全体で共有するバックエンド接続プールです。
// 同時に貸し出す接続数を MaxConns に制限します。
type Pool struct {
	baseURL *url.URL
	client  *http.Client
	sem     *semaphore.Weighted
	max     int64
	inUse   atomic.Int64
	logger  *slog.Logger
}

// NewPool は Pool を作成します。
func NewPool(opts Options, logger *slog.Logger) (*Pool, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("backend: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: invalid base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported scheme %q", base.Scheme)
	}
	if opts.MaxConns <= 0 {
		return nil, errors.New("backend: MaxConns must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.MaxConnsPerHost = opts.MaxConns
		transport.MaxIdleConnsPerHost = opts.MaxConns
		client = &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		}
	}

	return &Pool{
		baseURL: base,
		client:  client,
		sem:     semaphore.NewWeighted(int64(opts.MaxConns)),
		max:     int64(opts.MaxConns),
		logger:  logger.With("component", "backend_pool"),
	}, nil
}

// Get は接続を1つ借ります。空きが無い場合は ctx が終わるまで待ちます。
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, &TransportError{Op: "acquire", Err: err}
	}
	p.inUse.Add(1)
	return &Conn{pool: p}, nil
}

// InUse は貸し出し中の接続数を返します。
func (p *Pool) InUse() int64 {
	return p.inUse.Load()
}

// Capacity は同時に貸し出せる接続数の上限を返します。
func (p *Pool) Capacity() int64 {
	return p.max
}

// Login は接続を1つ借りてログインを呼び出し、終了時に返却します。
func (p *Pool) Login(ctx context.Context, nameOrEmail, password, address string) (*Session, error) {
	conn, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()
	return conn.Login(ctx, nameOrEmail, password, address)
}

func (p *Pool) release() {
	p.inUse.Add(-1)
	p.sem.Release(1)
}

// Conn はプールから借りた接続です。使い終わったら Release してください。
type Conn struct {
	pool *Pool
	once sync.Once
}

// Release は接続をプールに返却します。複数回呼んでも1度だけ返却されます。
func (c *Conn) Release() {
	c.once.Do(c.pool.release)
}

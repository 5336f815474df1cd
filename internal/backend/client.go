package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	loginPath        = "/rpc/v0/login"
	maxResponseBytes = 64 << 10
)

type loginRequest struct {
	NameOrEmail   string  `json:"name-or-email"`
	Password      string  `json:"password"`
	RemoteAddress *string `json:"remote-address"`
}

// Login はバックエンドに資格情報を送り、セッションを発行してもらいます。
// address は空の場合に送信しません。
func (c *Conn) Login(ctx context.Context, nameOrEmail, password, address string) (*Session, error) {
	body := loginRequest{
		NameOrEmail: nameOrEmail,
		Password:    password,
	}
	if address != "" {
		body.RemoteAddress = &address
	}

	var session Session
	if err := c.call(ctx, loginPath, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Conn) call(ctx context.Context, path string, in, out any) error {
	p := c.pool
	payload, err := json.Marshal(in)
	if err != nil {
		return &TransportError{Op: "encode", Err: err}
	}

	endpoint := p.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	p.logger.DebugContext(ctx, "calling backend", "path", path)

	resp, err := p.client.Do(req)
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: "read", Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(data, out); err != nil {
			return &TransportError{Op: "decode", Err: err}
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var apiErr Error
		if err := json.Unmarshal(data, &apiErr); err != nil {
			return &TransportError{Op: "decode", Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
		}
		if apiErr.Name == "" {
			return &TransportError{Op: "decode", Err: fmt.Errorf("status %d: error without name", resp.StatusCode)}
		}
		apiErr.Status = resp.StatusCode
		return &apiErr
	default:
		return &TransportError{Op: "status", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

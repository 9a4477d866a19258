package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tiffin-next/internal/config"
	"github.com/tiffin-next/internal/models"
)

const maxCheckoutResponseBytes = 64 << 10

// CheckoutClient 结账方客户端
type CheckoutClient interface {
	Deliver(ctx context.Context, snapshot models.CheckoutSnapshot) error
}

// HTTPCheckoutClient 以 JSON POST 投递结账快照
type HTTPCheckoutClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPCheckoutClient 创建结账方 HTTP 客户端
func NewHTTPCheckoutClient(cfg config.CheckoutConfig) *HTTPCheckoutClient {
	return &HTTPCheckoutClient{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		client:   &http.Client{Timeout: cfg.Timeout()},
	}
}

// Configured 是否配置了结账方地址
func (c *HTTPCheckoutClient) Configured() bool {
	return c != nil && c.endpoint != ""
}

// Deliver 投递结账快照，非 2xx 响应视为拒绝
func (c *HTTPCheckoutClient) Deliver(ctx context.Context, snapshot models.CheckoutSnapshot) error {
	if !c.Configured() {
		return ErrCheckoutNotConfigured
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", snapshot.HandoffNo)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxCheckoutResponseBytes))
		return fmt.Errorf("%w: http status %d after %s: %s",
			ErrCheckoutRejected, resp.StatusCode, time.Since(start).Round(time.Millisecond), strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxCheckoutResponseBytes))
	return nil
}

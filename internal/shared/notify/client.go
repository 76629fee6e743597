// Package notify 发送业务事件通知到外部webhook（邮件/IM网关由下游自行分发）。
// 所有发送都是尽力而为，失败只记录不影响主流程。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Event 通知事件
type Event struct {
	Type       string            `json:"type"` // po_created/po_confirmed/po_rejected/order_status_changed
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	EntityCode string            `json:"entity_code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Client webhook通知客户端
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient 创建通知客户端，webhookURL为空时所有发送直接跳过
func NewClient(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled 是否配置了webhook地址
func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

// Send 发送通知事件
func (c *Client) Send(ctx context.Context, event Event) error {
	if !c.Enabled() {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notify event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notify event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify webhook returned %d", resp.StatusCode)
	}
	return nil
}

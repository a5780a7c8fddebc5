package clients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/netra-io/netra-config/pkg/config"
)

// clickhouseHTTPPort is the HTTP interface port; the native protocol port
// from the resolved config is not usable for a plain HTTP probe.
const clickhouseHTTPPort = 8123

// ClickHousePinger probes the ClickHouse HTTP interface with the resolved
// configuration.
type ClickHousePinger struct {
	client *resty.Client
}

// NewClickHousePinger builds a pinger for the configured host.
func NewClickHousePinger(cfg config.ClickHouseConfig) *ClickHousePinger {
	client := resty.New().
		SetBaseURL(fmt.Sprintf("http://%s:%d", cfg.Host, clickhouseHTTPPort)).
		SetTimeout(5 * time.Second)
	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Password)
	}
	return &ClickHousePinger{client: client}
}

// Ping issues the standard /ping request, which returns "Ok." when the
// server is up.
func (p *ClickHousePinger) Ping(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/ping")
	if err != nil {
		return fmt.Errorf("clickhouse ping failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("clickhouse ping returned %s", resp.Status())
	}
	if !strings.HasPrefix(string(resp.Body()), "Ok") {
		return fmt.Errorf("unexpected clickhouse ping response %q", resp.Body())
	}
	return nil
}

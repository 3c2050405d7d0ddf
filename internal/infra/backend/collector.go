/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"context"
	"fmt"
	"log"

	"github.com/go-resty/resty/v2"
	"github.com/kentakayama/tracker-over-http/internal/config"
	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
)

// CollectorClient posts location samples to the remote collector.
type CollectorClient struct {
	client *resty.Client
	logger *log.Logger
}

func NewCollectorClient(cfg config.BackendConfig) (*CollectorClient, error) {
	client, err := newRestyClient(cfg.CollectorURL, cfg.Timeout, cfg.InsecureTLS)
	if err != nil {
		return nil, fmt.Errorf("collector client: %w", err)
	}
	return &CollectorClient{
		client: client,
		logger: loggerOrDefault(cfg.Logger),
	}, nil
}

// Deliver performs exactly one POST; the caller decides about retries.
func (c *CollectorClient) Deliver(ctx context.Context, record model.DeliveryRecord) error {
	requestID := newRequestID()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, requestID).
		SetBody(record).
		Post("/location")
	if err != nil {
		return fmt.Errorf("%w: perform request: %v", domain.ErrDelivery, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: unexpected status %s: %s", domain.ErrDelivery, resp.Status(), trimBody(resp.Body()))
	}

	c.logger.Printf("collector: delivered fix device=%s captured_at=%d request_id=%s", record.DeviceID, record.Timestamp, requestID)
	return nil
}

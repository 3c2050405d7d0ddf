/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-resty/resty/v2"
	"github.com/kentakayama/tracker-over-http/internal/config"
	"github.com/kentakayama/tracker-over-http/internal/domain"
)

type registerRequest struct {
	Secret string `json:"secret"`
}

type registerResponse struct {
	DeviceID string `json:"deviceID"`
}

// RegistryClient talks to the remote device registry.
type RegistryClient struct {
	client *resty.Client
	logger *log.Logger
}

func NewRegistryClient(cfg config.BackendConfig) (*RegistryClient, error) {
	client, err := newRestyClient(cfg.RegistryURL, cfg.Timeout, cfg.InsecureTLS)
	if err != nil {
		return nil, fmt.Errorf("registry client: %w", err)
	}
	return &RegistryClient{
		client: client,
		logger: loggerOrDefault(cfg.Logger),
	}, nil
}

// Register submits the locally generated secret and returns the device ID
// assigned by the registry. Every failure wraps domain.ErrRegistration.
func (c *RegistryClient) Register(ctx context.Context, secret string) (string, error) {
	requestID := newRequestID()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, requestID).
		SetBody(registerRequest{Secret: secret}).
		Post("/device")
	if err != nil {
		return "", fmt.Errorf("%w: perform request: %v", domain.ErrRegistration, err)
	}

	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: unexpected status %s: %s", domain.ErrRegistration, resp.Status(), trimBody(resp.Body()))
	}

	var out registerResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrRegistration, err)
	}
	if out.DeviceID == "" {
		return "", fmt.Errorf("%w: response carries no deviceID", domain.ErrRegistration)
	}

	c.logger.Printf("registry: device registered id=%s request_id=%s", out.DeviceID, requestID)
	return out.DeviceID, nil
}

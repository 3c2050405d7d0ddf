/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package backend

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultUserAgent  = "trackerd/backend-client"
	maxErrorBodyBytes = 512
	requestIDHeader   = "X-Request-ID"
)

func newRestyClient(baseURL string, timeout time.Duration, insecureTLS bool) (*resty.Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is empty")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", base.Scheme)
	}

	if timeout == 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Accept", "application/json")
	if base.Scheme == "https" {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: insecureTLS})
	}
	return client, nil
}

func newRequestID() string {
	return uuid.NewString()
}

func loggerOrDefault(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Default()
	}
	return l
}

func trimBody(body []byte) []byte {
	body = bytes.TrimSpace(body)
	if len(body) > maxErrorBodyBytes {
		return body[:maxErrorBodyBytes]
	}
	return body
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cuongbtq/property-be/internal/api/router"
	"github.com/cuongbtq/property-be/internal/queue/reporter"
)

// Source provides the snapshots the monitor prints
type Source interface {
	Stats(ctx context.Context, queueName string, detailed bool) (map[string]*reporter.QueueStats, error)
	Health(ctx context.Context) (*reporter.Health, error)
}

// envelope is the success/failure body written by the API
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    T      `json:"data"`
}

// apiResponse reports whether a decoded body describes a failure
type apiResponse interface {
	failure() (bool, string)
}

// apiSource reads snapshots from a running api-service
type apiSource struct {
	client *resty.Client
}

func newAPISource(serverURL, agentID, agentEmail string) *apiSource {
	client := resty.New().
		SetBaseURL(strings.TrimRight(serverURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader(router.AgentIDHeader, agentID).
		SetHeader(router.AgentEmailHeader, agentEmail).
		SetHeader(router.AgentNameHeader, "queue-monitor")

	return &apiSource{client: client}
}

func (s *apiSource) Stats(ctx context.Context, queueName string, detailed bool) (map[string]*reporter.QueueStats, error) {
	var out envelope[map[string]*reporter.QueueStats]
	params := map[string]string{
		"queue":    queueName,
		"detailed": strconv.FormatBool(detailed),
	}

	if err := s.get(ctx, "/api/v1/queue/stats", params, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (s *apiSource) Health(ctx context.Context) (*reporter.Health, error) {
	var out envelope[*reporter.Health]

	if err := s.get(ctx, "/api/v1/queue/health", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("API returned no health data")
	}
	return out.Data, nil
}

func (s *apiSource) get(ctx context.Context, path string, params map[string]string, out apiResponse) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		SetError(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("failed to reach API: %w", err)
	}

	if failed, detail := out.failure(); resp.IsError() || failed {
		return fmt.Errorf("API returned %d: %s", resp.StatusCode(), detail)
	}
	return nil
}

func (e *envelope[T]) failure() (bool, string) {
	if e.Success {
		return false, ""
	}
	if e.Error != "" {
		return true, e.Message + ": " + e.Error
	}
	return true, e.Message
}

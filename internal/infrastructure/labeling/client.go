// Package labeling adapts the Label Studio REST API to ports.LabelingToolClient.
package labeling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"viberate/internal/domain"
	"viberate/internal/infrastructure/httpclient"
	"viberate/internal/infrastructure/resilience"
	"viberate/internal/ports"
)

const (
	service  = "labeling"
	pageSize = 100
	// maxPages bounds task pagination against a misbehaving server.
	maxPages = 1000
)

type Options struct {
	BaseURL         string
	APIToken        string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

type Client struct {
	http *httpclient.Client
}

var _ ports.LabelingToolClient = (*Client)(nil)

func NewClient(opts Options) *Client {
	token := strings.TrimSpace(opts.APIToken)
	c := httpclient.New(opts.BaseURL, opts.Timeout, func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Token "+token)
		}
	})
	c.SetBreaker(resilience.NewBreaker(opts.BreakerFailures, opts.BreakerCooldown))
	return &Client{http: c}
}

// ListProjects accepts both the paginated and the bare list response shapes.
func (c *Client) ListProjects(ctx context.Context) ([]ports.ExternalProject, error) {
	var raw json.RawMessage
	if err := c.http.Do(ctx, http.MethodGet, "/api/projects/?page_size=1000", nil, &raw); err != nil {
		return nil, domain.NewIntegrationError(service, "list projects", err)
	}

	projects, err := decodeList[ports.ExternalProject](raw)
	if err != nil {
		return nil, domain.NewIntegrationError(service, "list projects", err)
	}
	return projects, nil
}

func (c *Client) GetProject(ctx context.Context, id int64) (ports.ExternalProject, error) {
	var project ports.ExternalProject
	if err := c.http.Do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/", id), nil, &project); err != nil {
		return ports.ExternalProject{}, domain.NewIntegrationError(service, "get project", err)
	}
	if project.ID == 0 {
		project.ID = id
	}
	return project, nil
}

// ListProjectTasks walks every page. Label Studio answers 404 past the last
// page, which ends the walk.
func (c *Client) ListProjectTasks(ctx context.Context, id int64) ([]ports.ExternalTask, error) {
	var out []ports.ExternalTask
	for page := 1; page <= maxPages; page++ {
		var raw json.RawMessage
		path := fmt.Sprintf("/api/projects/%d/tasks/?page=%d&page_size=%d", id, page, pageSize)
		if err := c.http.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
			var statusErr *httpclient.StatusError
			if page > 1 && errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
				break
			}
			return nil, domain.NewIntegrationError(service, "list project tasks", err)
		}

		tasks, err := decodeList[ports.ExternalTask](raw)
		if err != nil {
			return nil, domain.NewIntegrationError(service, "list project tasks", err)
		}
		out = append(out, tasks...)
		if len(tasks) < pageSize {
			break
		}
	}
	return out, nil
}

type annotationRequest struct {
	Result      json.RawMessage `json:"result"`
	CompletedBy *int64          `json:"completed_by,omitempty"`
}

// PushAnnotation creates an annotation on the task and returns its id.
// approverExternalID is sent as completed_by only when it is a Label Studio
// user id.
func (c *Client) PushAnnotation(ctx context.Context, taskID int64, result json.RawMessage, approverExternalID string) (int64, error) {
	req := annotationRequest{Result: annotationResult(result)}
	if id, err := strconv.ParseInt(strings.TrimSpace(approverExternalID), 10, 64); err == nil {
		req.CompletedBy = &id
	}

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.http.Do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/annotations/", taskID), req, &resp); err != nil {
		return 0, domain.NewIntegrationError(service, "push annotation", err)
	}
	return resp.ID, nil
}

// annotationResult wraps a single result object in a list, which is the
// shape Label Studio stores.
func annotationResult(result json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(result))
	if strings.HasPrefix(trimmed, "{") {
		return json.RawMessage("[" + trimmed + "]")
	}
	if trimmed == "" {
		return json.RawMessage("[]")
	}
	return json.RawMessage(trimmed)
}

func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}

	var page struct {
		Results []T `json:"results"`
		Tasks   []T `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if page.Results != nil {
		return page.Results, nil
	}
	return page.Tasks, nil
}

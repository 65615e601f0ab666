package packages

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/packtrack/internal/models"
	"github.com/angelmondragon/packtrack/internal/transport"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/enums"
)

const resourcePath = "/Package"

// Requester is the transport surface the resource clients need.
type Requester interface {
	Request(ctx context.Context, endpoint string, opts transport.RequestOptions) (*transport.Payload, error)
}

// Client is a stateless binding of the package endpoints. It neither caches nor retries.
type Client struct {
	transport Requester
}

func NewClient(t Requester) *Client {
	return &Client{transport: t}
}

// List calls GET /Package.
func (c *Client) List(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, resourcePath, nil)
}

// Get calls GET /Package/{id}.
func (c *Client) Get(ctx context.Context, id string) (json.RawMessage, error) {
	escaped, err := requireID(id)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, resourcePath+"/"+escaped, nil)
}

// History calls GET /Package/history/{id}.
func (c *Client) History(ctx context.Context, id string) (json.RawMessage, error) {
	escaped, err := requireID(id)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, resourcePath+"/history/"+escaped, nil)
}

// Create calls POST /Package.
func (c *Client) Create(ctx context.Context, req models.CreatePackageRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, resourcePath, req)
}

// UpdateStatus calls PUT /Package/{id}/status/{code}.
func (c *Client) UpdateStatus(ctx context.Context, id string, status enums.PackageStatus) (json.RawMessage, error) {
	escaped, err := requireID(id)
	if err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid package status %d", status.Code()))
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%s/status/%d", resourcePath, escaped, status.Code()), nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	if c == nil || c.transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "package client not configured")
	}
	payload, err := c.transport.Request(ctx, endpoint, transport.RequestOptions{Method: method, Body: body})
	if err != nil {
		return nil, err
	}
	return payload.Bytes(), nil
}

func requireID(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "package id is required")
	}
	return url.PathEscape(trimmed), nil
}

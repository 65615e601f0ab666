package people

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/angelmondragon/packtrack/internal/models"
	"github.com/angelmondragon/packtrack/internal/transport"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
)

// Role distinguishes the two person resources. They share a payload shape.
type Role struct {
	// Entity is the cache key family.
	Entity string
	// Endpoint is the resource path relative to the API root.
	Endpoint string
	// Label is the capitalized name used in notifications.
	Label string
}

var (
	Sender    = Role{Entity: "sender", Endpoint: "/Sender", Label: "Sender"}
	Recipient = Role{Entity: "recipient", Endpoint: "/Recipient", Label: "Recipient"}
)

// Requester is the transport surface the resource clients need.
type Requester interface {
	Request(ctx context.Context, endpoint string, opts transport.RequestOptions) (*transport.Payload, error)
}

// Client binds the create endpoint of one role.
type Client struct {
	role      Role
	transport Requester
}

func NewClient(role Role, t Requester) *Client {
	return &Client{role: role, transport: t}
}

func NewSenderClient(t Requester) *Client {
	return NewClient(Sender, t)
}

func NewRecipientClient(t Requester) *Client {
	return NewClient(Recipient, t)
}

func (c *Client) Role() Role {
	return c.role
}

// Create calls POST /Sender or POST /Recipient.
func (c *Client) Create(ctx context.Context, req models.CreatePersonRequest) (json.RawMessage, error) {
	if c == nil || c.transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "person client not configured")
	}
	payload, err := c.transport.Request(ctx, c.role.Endpoint, transport.RequestOptions{Method: http.MethodPost, Body: req})
	if err != nil {
		return nil, err
	}
	return payload.Bytes(), nil
}

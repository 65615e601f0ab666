package people

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/packtrack/internal/models"
	"github.com/angelmondragon/packtrack/internal/query"
	"github.com/angelmondragon/packtrack/pkg/logger"
)

type CreateOptions = query.MutateOptions[models.CreatePersonRequest, models.Person]

// Repository runs sender and recipient creation through the mutation coordinator.
type Repository struct {
	senders    *Client
	recipients *Client
	store      *query.Store
	logger     *logger.Logger
}

func NewRepository(senders, recipients *Client, store *query.Store, log *logger.Logger) *Repository {
	return &Repository{senders: senders, recipients: recipients, store: store, logger: log}
}

// Keys returns the cache key family of role.
func Keys(role Role) query.KeyFactory {
	return query.Keys(role.Entity)
}

func (r *Repository) CreateSender(ctx context.Context, req models.CreatePersonRequest, opts CreateOptions) (models.Person, error) {
	return query.Mutate(ctx, r.store, createMutation(r.senders), req.Normalize(), opts)
}

func (r *Repository) CreateRecipient(ctx context.Context, req models.CreatePersonRequest, opts CreateOptions) (models.Person, error) {
	return query.Mutate(ctx, r.store, createMutation(r.recipients), req.Normalize(), opts)
}

func createMutation(c *Client) query.Mutation[models.CreatePersonRequest, models.Person] {
	role := c.Role()
	keys := Keys(role)
	return query.Mutation[models.CreatePersonRequest, models.Person]{
		Name: "create" + role.Label,
		Fn: func(ctx context.Context, req models.CreatePersonRequest) (models.Person, error) {
			if err := req.Validate(); err != nil {
				return models.Person{}, err
			}
			raw, err := c.Create(ctx, req)
			if err != nil {
				return models.Person{}, err
			}
			return models.DecodePerson(raw)
		},
		Apply: func(s *query.Store, _ models.CreatePersonRequest, person models.Person, _ []bool) {
			s.InvalidatePrefix(keys.Lists())
			s.Set(keys.Detail(person.ID), person)
		},
		SuccessMessage: func(_ models.CreatePersonRequest, person models.Person) string {
			return fmt.Sprintf("%s %s created successfully!", role.Label, person.Name)
		},
		ErrorMessage: "Failed to create " + strings.ToLower(role.Label),
	}
}

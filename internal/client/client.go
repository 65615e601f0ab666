package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/angelmondragon/packtrack/internal/models"
	"github.com/angelmondragon/packtrack/internal/notify"
	"github.com/angelmondragon/packtrack/internal/packages"
	"github.com/angelmondragon/packtrack/internal/people"
	"github.com/angelmondragon/packtrack/internal/query"
	"github.com/angelmondragon/packtrack/internal/transport"
	"github.com/angelmondragon/packtrack/pkg/config"
	"github.com/angelmondragon/packtrack/pkg/logger"
	"github.com/angelmondragon/packtrack/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Params are the optional collaborators of a Client.
type Params struct {
	Logger     *logger.Logger
	Notifier   notify.Notifier
	Registerer prometheus.Registerer
	HTTPClient *http.Client
}

// Client wires the transport, the query store and the resource repositories of one session.
type Client struct {
	Transport  *transport.Client
	Store      *query.Store
	Packages   *packages.Repository
	People     *people.Repository
	Senders    *people.Client
	Recipients *people.Client

	cfg    *config.Config
	logger *logger.Logger

	mu      sync.Mutex
	stop    context.CancelFunc
	stopped chan struct{}
}

func New(cfg *config.Config, params Params) (*Client, error) {
	log := params.Logger
	if log == nil {
		log = logger.Nop()
	}
	clientMetrics := metrics.NewClientMetrics(params.Registerer)

	opts := []transport.Option{transport.WithLogger(log), transport.WithMetrics(clientMetrics)}
	if params.HTTPClient != nil {
		opts = append(opts, transport.WithHTTPClient(params.HTTPClient))
	}
	tr, err := transport.New(cfg.API, opts...)
	if err != nil {
		return nil, err
	}

	store := query.NewStore(
		query.WithLogger(log),
		query.WithMetrics(clientMetrics),
		query.WithNotifier(params.Notifier),
		query.WithDefaultPolicy(query.DefaultPolicy(cfg.Cache.StaleTime, cfg.Cache.GCTime)),
		query.WithRetry(cfg.Cache.ReadRetries, cfg.Cache.RetryBaseDelay),
	)

	senders := people.NewSenderClient(tr)
	recipients := people.NewRecipientClient(tr)
	return &Client{
		Transport:  tr,
		Store:      store,
		Packages:   packages.NewRepository(packages.NewClient(tr), store, log),
		People:     people.NewRepository(senders, recipients, store, log),
		Senders:    senders,
		Recipients: recipients,
		cfg:        cfg,
		logger:     log,
	}, nil
}

func (c *Client) SetAuthToken(token string) error {
	return c.Transport.SetAuthToken(token)
}

func (c *Client) RemoveAuthToken() {
	c.Transport.RemoveAuthToken()
}

func (c *Client) CreateSender(ctx context.Context, req models.CreatePersonRequest, opts people.CreateOptions) (models.Person, error) {
	return c.People.CreateSender(ctx, req, opts)
}

func (c *Client) CreateRecipient(ctx context.Context, req models.CreatePersonRequest, opts people.CreateOptions) (models.Person, error) {
	return c.People.CreateRecipient(ctx, req, opts)
}

// Prefetch warms the package list and the given detail entries concurrently.
func (c *Client) Prefetch(ctx context.Context, ids ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.Packages.Packages(gctx)
		return err
	})
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := c.Packages.Package(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// Start runs the cache janitor in the background until Close is called.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	c.stopped = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		c.Store.Run(ctx, c.cfg.Cache.GCInterval)
	}(c.stopped)
	c.logger.Debug(context.Background(), "query cache janitor started")
}

// Close stops the janitor and waits for it to exit.
func (c *Client) Close() {
	c.mu.Lock()
	stop, stopped := c.stop, c.stopped
	c.stop, c.stopped = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-stopped
}

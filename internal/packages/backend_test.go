package packages

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/packtrack/internal/notify"
	"github.com/angelmondragon/packtrack/internal/query"
	"github.com/angelmondragon/packtrack/internal/transport"
	"github.com/angelmondragon/packtrack/pkg/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type wirePerson struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type wirePackage struct {
	ID             string     `json:"id"`
	TrackingNumber string     `json:"trackingNumber"`
	CurrentStatus  int        `json:"currentStatus"`
	CreatedAt      string     `json:"createdAt"`
	Sender         wirePerson `json:"sender"`
	Recipient      wirePerson `json:"recipient"`
}

type wireHistory struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ChangedAt string `json:"changedAt"`
}

// fakeBackend is an in-memory stand-in for the package API.
type fakeBackend struct {
	mu       sync.Mutex
	packages []wirePackage
	history  map[string][]wireHistory
	calls    map[string]int
	// failures maps a route name to the status it should answer with once.
	failures map[string]int
	// raw overrides a route's envelope data once.
	raw map[string]json.RawMessage
	// beforeStatus runs once at the start of the next update-status request, outside the lock.
	beforeStatus func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		packages: []wirePackage{
			newWirePackage("p-1", "TRK-001", 1),
			newWirePackage("p-2", "TRK-002", 0),
		},
		history:  map[string][]wireHistory{},
		calls:    map[string]int{},
		failures: map[string]int{},
		raw:      map[string]json.RawMessage{},
	}
}

func newWirePackage(id, tracking string, status int) wirePackage {
	return wirePackage{
		ID:             id,
		TrackingNumber: tracking,
		CurrentStatus:  status,
		CreatedAt:      "2024-03-01T10:00:00Z",
		Sender:         wirePerson{ID: "s-1", Name: "Ada", Phone: "+15550001", Address: "1 Main St"},
		Recipient:      wirePerson{ID: "r-1", Name: "Bob", Phone: "+15550002", Address: "2 Side St"},
	}
}

func (b *fakeBackend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

func (b *fakeBackend) FailNext(route string, status int) {
	b.mu.Lock()
	b.failures[route] = status
	b.mu.Unlock()
}

func (b *fakeBackend) BeforeStatus(fn func()) {
	b.mu.Lock()
	b.beforeStatus = fn
	b.mu.Unlock()
}

func (b *fakeBackend) RespondNext(route string, data string) {
	b.mu.Lock()
	b.raw[route] = json.RawMessage(data)
	b.mu.Unlock()
}

func (b *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/Package", func(r chi.Router) {
		r.Get("/", b.handle("list", func(*http.Request) (any, int) {
			return b.packages, http.StatusOK
		}))
		r.Post("/", b.handle("create", func(req *http.Request) (any, int) {
			var body struct {
				TrackingNumber string `json:"trackingNumber"`
				SenderID       string `json:"senderId"`
				RecipientID    string `json:"recipientId"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return nil, http.StatusBadRequest
			}
			pkg := newWirePackage(fmt.Sprintf("p-%d", len(b.packages)+1), body.TrackingNumber, 0)
			b.packages = append(b.packages, pkg)
			return pkg, http.StatusOK
		}))
		r.Get("/history/{id}", b.handle("history", func(req *http.Request) (any, int) {
			return b.history[chi.URLParam(req, "id")], http.StatusOK
		}))
		r.Get("/{id}", b.handle("get", func(req *http.Request) (any, int) {
			for _, pkg := range b.packages {
				if pkg.ID == chi.URLParam(req, "id") {
					return pkg, http.StatusOK
				}
			}
			return nil, http.StatusNotFound
		}))
		r.Put("/{id}/status/{status}", b.handle("status", func(req *http.Request) (any, int) {
			code, err := strconv.Atoi(chi.URLParam(req, "status"))
			if err != nil {
				return nil, http.StatusBadRequest
			}
			for i, pkg := range b.packages {
				if pkg.ID == chi.URLParam(req, "id") {
					b.packages[i].CurrentStatus = code
					b.history[pkg.ID] = append(b.history[pkg.ID], wireHistory{
						ID:        fmt.Sprintf("h-%d", len(b.history[pkg.ID])+1),
						Status:    strconv.Itoa(code),
						ChangedAt: "2024-03-02T10:00:00Z",
					})
					return b.packages[i], http.StatusOK
				}
			}
			return nil, http.StatusNotFound
		}))
	})
	return r
}

func (b *fakeBackend) handle(route string, fn func(*http.Request) (any, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if route == "status" {
			b.mu.Lock()
			hook := b.beforeStatus
			b.beforeStatus = nil
			b.mu.Unlock()
			if hook != nil {
				hook()
			}
		}

		b.mu.Lock()
		b.calls[route]++
		status, failing := b.failures[route]
		delete(b.failures, route)
		raw, overridden := b.raw[route]
		delete(b.raw, route)
		var data any
		if !failing && !overridden {
			data, status = fn(req)
		}
		b.mu.Unlock()

		if failing || status >= 400 {
			http.Error(w, fmt.Sprintf("%s failed", route), status)
			return
		}
		if overridden {
			data = raw
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"isSuccessful": true,
			"data":         data,
			"errors":       []string{},
			"errorMessage": nil,
		})
	}
}

type fixture struct {
	backend  *fakeBackend
	store    *query.Store
	repo     *Repository
	notifier *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := newFakeBackend()
	server := httptest.NewServer(backend.router())
	t.Cleanup(server.Close)

	tr, err := transport.New(config.APIConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	recorder := &notify.Recorder{}
	store := query.NewStore(query.WithRetry(0, time.Millisecond), query.WithNotifier(recorder))
	return &fixture{
		backend:  backend,
		store:    store,
		repo:     NewRepository(NewClient(tr), store, nil),
		notifier: recorder,
	}
}

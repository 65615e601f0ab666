package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/packtrack/api"
	"github.com/angelmondragon/packtrack/internal/client"
	"github.com/angelmondragon/packtrack/internal/models"
	"github.com/angelmondragon/packtrack/internal/packages"
	"github.com/angelmondragon/packtrack/internal/people"
	"github.com/angelmondragon/packtrack/internal/query"
	"github.com/angelmondragon/packtrack/pkg/config"
	"github.com/angelmondragon/packtrack/pkg/enums"
	pkgerrors "github.com/angelmondragon/packtrack/pkg/errors"
	"github.com/angelmondragon/packtrack/pkg/logger"
	"github.com/angelmondragon/packtrack/pkg/pagination"
)

var errUsage = errors.New("usage")

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"list":             {"list all packages", runList},
	"get":              {"show one package: get -id ID", runGet},
	"history":          {"show status history: history -id ID", runHistory},
	"search":           {"search by tracking number: search -q TEXT", runSearch},
	"filter":           {"filter by status: filter -status Sent", runFilter},
	"statuses":         {"list status options", runStatuses},
	"create":           {"create a package: create -tracking T -sender ID -recipient ID", runCreate},
	"create-sender":    {"create a sender: create-sender -name N -phone P -address A", runCreatePerson(people.Sender)},
	"create-recipient": {"create a recipient: create-recipient -name N -phone P -address A", runCreatePerson(people.Recipient)},
	"status":           {"change status: status -id ID -to Accepted [-optimistic]", runStatus},
	"watch":            {"poll a package and print changes: watch -id ID [-interval 10s] [-serve :9090]", runWatch},
}

type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	client   *client.Client
	gatherer prometheus.Gatherer
	out      io.Writer
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: packtrack <command> [flags]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-17s %s\n", name, commands[name].summary)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage(a.out)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(a.out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(a.logger.WithField(ctx, "cmd", args[0]), a, args[1:])
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing -%s", name)
	}
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := newFlags("list", a.out)
	refresh := fs.Bool("refresh", false, "bypass the cache")
	limit := fs.Int("limit", 0, "page size; 0 prints everything")
	cursor := fs.String("cursor", "", "cursor from a previous page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	read := a.client.Packages.Packages
	if *refresh {
		read = a.client.Packages.RefreshPackages
	}
	list, err := read(ctx)
	if err != nil {
		return err
	}
	if *limit == 0 && *cursor == "" {
		return a.print(list)
	}
	page, err := pagination.Slice(list, pagination.Params{Limit: *limit, Cursor: *cursor}, func(pkg models.Package) pagination.Cursor {
		return pagination.Cursor{CreatedAt: pkg.CreatedAt, ID: pkg.ID}
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return a.print(page)
}

func runGet(ctx context.Context, a *app, args []string) error {
	fs := newFlags("get", a.out)
	id := fs.String("id", "", "package id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("id", *id); err != nil {
		return err
	}
	detail, err := a.client.Packages.Package(ctx, *id)
	if err != nil {
		return err
	}
	if !detail.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("package %s not found", *id))
	}
	return a.print(struct {
		models.Package
		Allowed []enums.PackageStatus `json:"allowedStatuses"`
	}{detail.Package, packages.AllowedStatuses(detail.Package)})
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlags("history", a.out)
	id := fs.String("id", "", "package id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("id", *id); err != nil {
		return err
	}
	history, err := a.client.Packages.History(ctx, *id)
	if err != nil {
		return err
	}
	return a.print(history)
}

func runSearch(ctx context.Context, a *app, args []string) error {
	fs := newFlags("search", a.out)
	q := fs.String("q", "", "tracking number fragment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	found, err := a.client.Packages.Search(ctx, *q)
	if err != nil {
		return err
	}
	return a.print(found)
}

func runFilter(ctx context.Context, a *app, args []string) error {
	fs := newFlags("filter", a.out)
	raw := fs.String("status", "", "status label or code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	status, err := enums.ParsePackageStatus(*raw)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	found, err := a.client.Packages.FilterByStatus(ctx, status)
	if err != nil {
		return err
	}
	return a.print(found)
}

func runStatuses(_ context.Context, a *app, _ []string) error {
	return a.print(enums.PackageStatusOptions())
}

func runCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("create", a.out)
	var req models.CreatePackageRequest
	fs.StringVar(&req.TrackingNumber, "tracking", "", "tracking number")
	fs.StringVar(&req.SenderID, "sender", "", "sender id")
	fs.StringVar(&req.RecipientID, "recipient", "", "recipient id")
	weight := fs.Float64("weight", 0, "weight")
	description := fs.String("description", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *weight != 0 {
		req.Weight = weight
	}
	if *description != "" {
		req.Description = description
	}
	pkg, err := a.client.Packages.CreatePackage(ctx, req, packages.CreateOptions{})
	if err != nil {
		return err
	}
	return a.print(pkg)
}

func runCreatePerson(role people.Role) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		fs := newFlags("create-"+role.Entity, a.out)
		var req models.CreatePersonRequest
		fs.StringVar(&req.Name, "name", "", "full name")
		fs.StringVar(&req.Phone, "phone", "", "phone number")
		fs.StringVar(&req.Address, "address", "", "postal address")
		email := fs.String("email", "", "email")
		company := fs.String("company", "", "company name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		req.Email = email
		req.CompanyName = company

		create := a.client.CreateSender
		if role == people.Recipient {
			create = a.client.CreateRecipient
		}
		person, err := create(ctx, req, people.CreateOptions{})
		if err != nil {
			return err
		}
		return a.print(person)
	}
}

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := newFlags("status", a.out)
	id := fs.String("id", "", "package id")
	to := fs.String("to", "", "target status label or code")
	optimistic := fs.Bool("optimistic", false, "apply the change to the cache before the server answers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("id", *id); err != nil {
		return err
	}
	target, err := enums.ParsePackageStatus(*to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	detail, err := a.client.Packages.Package(ctx, *id)
	if err != nil {
		return err
	}
	if !detail.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("package %s not found", *id))
	}
	update, err := packages.PlanStatusChange(detail.Package, target)
	if err != nil {
		return err
	}

	mutate := a.client.Packages.UpdateStatus
	if *optimistic {
		mutate = a.client.Packages.UpdateStatusOptimistic
	}
	pkg, err := mutate(ctx, update, packages.UpdateOptions{})
	if err != nil {
		return err
	}
	return a.print(pkg)
}

func runWatch(ctx context.Context, a *app, args []string) error {
	fs := newFlags("watch", a.out)
	id := fs.String("id", "", "package id")
	interval := fs.Duration("interval", 10*time.Second, "poll interval")
	serve := fs.String("serve", "", "address for /healthz and /metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireFlag("id", *id); err != nil {
		return err
	}
	if *interval <= 0 {
		return fmt.Errorf("-interval must be positive")
	}
	addr := *serve
	if addr == "" && a.cfg.Metrics.Enabled {
		addr = a.cfg.Metrics.Addr
	}

	if addr != "" {
		server := &http.Server{
			Addr:              addr,
			Handler:           api.NewHandler(a.cfg, a.logger, a.gatherer, monitorSource{a.client.Packages, a.client.Store}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error(ctx, "monitor server stopped unexpectedly", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		a.logger.Info(a.logger.WithField(ctx, "addr", addr), "monitor server listening")
	}

	key := packages.Keys.Detail(*id)
	var last enums.PackageStatus = enums.PackageStatusUnknown
	changes := make(chan packages.Detail, 1)
	cancel := a.client.Store.Subscribe(key, func(ev query.Event) {
		if ev.Type != query.EventUpdated {
			return
		}
		if detail, ok := query.Lookup[packages.Detail](a.client.Store, key); ok {
			select {
			case changes <- detail:
			default:
			}
		}
	})
	defer cancel()

	poll := func() {
		a.client.Store.Invalidate(key)
		if _, err := a.client.Packages.Package(ctx, *id); err != nil && ctx.Err() == nil {
			a.logger.Warn(a.logger.WithField(ctx, "error", err.Error()), "watch poll failed")
		}
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	go poll()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			go poll()
		case detail := <-changes:
			if !detail.Found {
				fmt.Fprintf(a.out, "%s\tnot found\n", *id)
				continue
			}
			if detail.Package.Status != last {
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", time.Now().UTC().Format(time.RFC3339), detail.Package.TrackingNumber, detail.Package.Status.DisplayName())
				last = detail.Package.Status
			}
		}
	}
}

type monitorSource struct {
	*packages.Repository
	*query.Store
}

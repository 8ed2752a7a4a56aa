package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/port"
)

var ErrSessionNotFound = errors.New("session not found")

const reconcileTimeout = 15 * time.Second

type (
	SessionView struct {
		SessionID       string
		Service         string
		Supervisor      string
		Mode            domain.PolicyMode
		VisibleProducts int
		Warnings        []string
	}

	CartView struct {
		Items   []domain.CartItem
		Total   decimal.Decimal
		Warning string
	}

	ServiceOption struct {
		ID   string
		Name string
	}

	SupervisorView struct {
		Name     string
		Services []ServiceOption
	}
)

// Service drives the cart engine: it opens sessions against the
// external catalog and policy sources and routes ledger operations,
// order finalization and remito delivery.
type Service struct {
	catalog  port.CatalogLoader
	policies port.PolicyLoader
	stock    port.StockSyncer
	mailer   port.RemitoMailer
	storage  port.RemitoStorage
	events   port.OrderEventsProducer
	pageSize int

	mu        sync.RWMutex
	sessions  map[string]*domain.CartSession
	reconcile sync.WaitGroup
}

func New(
	catalog port.CatalogLoader,
	policies port.PolicyLoader,
	stock port.StockSyncer,
	mailer port.RemitoMailer,
	storage port.RemitoStorage,
	events port.OrderEventsProducer,
	pageSize int,
) *Service {
	return &Service{
		catalog:  catalog,
		policies: policies,
		stock:    stock,
		mailer:   mailer,
		storage:  storage,
		events:   events,
		pageSize: pageSize,
		sessions: make(map[string]*domain.CartSession),
	}
}

// OpenSession loads the catalog, compiles the policy for serviceID and
// registers a cart session over the visible products. Source failures
// degrade instead of failing: a broken policy source shows the full
// catalog, a broken catalog source an empty one. Every degradation is
// returned as a warning.
func (s *Service) OpenSession(
	ctx context.Context, serviceID, supervisorName string,
) (SessionView, error) {
	const op = "Service.OpenSession"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return SessionView{}, fmt.Errorf("%s: %w", op, err)
	}

	var warnings []string

	all, err := s.catalog.Load(ctx)
	if err != nil {
		log.Error("failed to load catalog", "err", err)
		warnings = append(warnings, "catalog source unavailable")
		all = nil
	}

	policy := domain.DefaultPolicy()
	doc, err := s.policies.Load(ctx)
	if err != nil {
		log.Error("failed to load policy source", "err", err)
		warnings = append(warnings, "policy source unavailable, showing full catalog")
	} else {
		policy = domain.CompilePolicy(doc, serviceID, supervisorName)
		if serviceID != "" && !policy.Resolved {
			log.Warn("service not found in policy source", "serviceID", serviceID)
			warnings = append(warnings,
				fmt.Sprintf("service %q not found, showing full catalog", serviceID))
		}
	}

	if dangling := policy.DanglingCodes(domain.NewCatalog(all)); len(dangling) != 0 {
		log.Warn("policy lists codes absent from catalog", "codes", dangling)
		warnings = append(warnings,
			fmt.Sprintf("policy codes absent from catalog: %v", dangling))
	}

	var visible []domain.Product
	for _, p := range all {
		if policy.Allows(p) {
			visible = append(visible, p)
		}
	}

	sess := domain.NewCartSession(
		uuid.NewString(), domain.NewCatalog(visible), policy, s.pageSize,
	)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Info("session opened",
		"sessionID", sess.ID, "serviceID", serviceID,
		"total", len(all), "visible", len(visible),
	)

	return SessionView{
		SessionID:       sess.ID,
		Service:         policy.ServiceName,
		Supervisor:      policy.Supervisor,
		Mode:            policy.Mode,
		VisibleProducts: len(visible),
		Warnings:        warnings,
	}, nil
}

// Supervisors lists the policy source's supervisor and service names
// for the service-selection page.
func (s *Service) Supervisors(ctx context.Context) ([]SupervisorView, error) {
	const op = "Service.Supervisors"

	doc, err := s.policies.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	views := make([]SupervisorView, 0, len(doc.Supervisors))
	for _, sup := range doc.Supervisors {
		v := SupervisorView{Name: sup.Name}
		for _, spec := range sup.Services {
			v.Services = append(v.Services, ServiceOption{ID: spec.ID, Name: spec.Name})
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) BrowseCatalog(
	sessionID, category string, page int,
) (domain.CatalogPage, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	return sess.Page(category, page), nil
}

func (s *Service) AddItem(sessionID, code string) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, err
	}
	if _, err := sess.AddOne(code); err != nil {
		return CartView{}, err
	}
	return s.cartView(sess, ""), nil
}

func (s *Service) ChangeQuantity(
	sessionID, code string, quantity int,
) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, err
	}

	it, clamped, err := sess.SetQuantity(code, quantity)
	if err != nil {
		return CartView{}, err
	}

	var warning string
	if clamped {
		warning = fmt.Sprintf(
			"insufficient stock, quantity clamped to %d", it.Quantity,
		)
	}
	return s.cartView(sess, warning), nil
}

func (s *Service) RemoveItem(sessionID, code string) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, err
	}
	if err := sess.Remove(code); err != nil {
		return CartView{}, err
	}
	return s.cartView(sess, ""), nil
}

func (s *Service) Cart(sessionID string) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, err
	}
	return s.cartView(sess, ""), nil
}

// FinalizeOrder snapshots the cart into a remito, persists and
// publishes it, and submits the items to the remote stock endpoint in
// the background. Persistence and delivery failures are logged, never
// surfaced: the locally computed remito is authoritative for the user.
func (s *Service) FinalizeOrder(
	ctx context.Context, sessionID, customer string,
) (domain.Remito, error) {
	const op = "Service.FinalizeOrder"
	log := slog.With("op", op, "sessionID", sessionID)

	sess, err := s.session(sessionID)
	if err != nil {
		return domain.Remito{}, err
	}

	r, err := sess.Finalize(customer, time.Now())
	if err != nil {
		return domain.Remito{}, err
	}

	if err := s.storage.StoreRemito(ctx, r); err != nil {
		log.Error("failed to store remito", "number", r.Number, "err", err)
	}
	if err := s.events.ProduceRemito(ctx, r); err != nil {
		log.Error("failed to produce order event", "number", r.Number, "err", err)
	}

	s.reconcile.Add(1)
	go s.reconcileStock(sess, r)

	log.Info("order finalized", "number", r.Number, "total", r.Total)
	return r, nil
}

// EmailRemito dispatches the session's last issued remito. One shot:
// a delivery failure is reported to the caller, never retried.
func (s *Service) EmailRemito(ctx context.Context, sessionID string) error {
	const op = "Service.EmailRemito"

	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}

	r, ok := sess.LastRemito()
	if !ok {
		return domain.ErrNoRemito
	}

	if err := s.mailer.SendRemito(ctx, r); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AwaitReconcile blocks until every in-flight stock reconciliation has
// settled. Used on shutdown.
func (s *Service) AwaitReconcile() {
	s.reconcile.Wait()
}

// reconcileStock is best effort: a failure leaves the locally
// decremented counters in place; a success overwrites them with the
// remote's authoritative figures.
func (s *Service) reconcileStock(sess *domain.CartSession, r domain.Remito) {
	const op = "Service.reconcileStock"
	log := slog.With("op", op, "sessionID", sess.ID, "number", r.Number)

	defer s.reconcile.Done()
	defer sess.FinalizeSettled()

	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()

	updates, err := s.stock.SyncStock(ctx, r.Items)
	if err != nil {
		log.Warn("remote stock sync failed, local figures kept", "err", err)
		return
	}

	sess.ApplyStockUpdates(updates)
	log.Info("stock reconciled", "updated", len(updates))
}

func (s *Service) session(id string) (*domain.CartSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) cartView(sess *domain.CartSession, warning string) CartView {
	return CartView{
		Items:   sess.Items(),
		Total:   sess.Total(),
		Warning: warning,
	}
}

package inventory

import (
	"context"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/audit"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/validation"
)

// UpdateInput is a single-field inventory change.
type UpdateInput struct {
	Field string      `json:"field" validate:"required,max=64"`
	Value interface{} `json:"value"`
}

// RestoreInput selects the products of a manual restoration check.
type RestoreInput struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,max=500,dive,required,max=64"`
}

// View is a product together with its display data.
type View struct {
	Product models.Product `json:"product"`
	Display DisplayData    `json:"display"`
}

// Service exposes inventory operations to the HTTP layer.
type Service struct {
	store     *Store
	scheduler *Scheduler
	audit     *audit.Log
}

// NewService wires the inventory operations.
func NewService(store *Store, scheduler *Scheduler, auditLog *audit.Log) *Service {
	return &Service{store: store, scheduler: scheduler, audit: auditLog}
}

// Get returns a product the actor owns, or any product for admins.
func (s *Service) Get(ctx context.Context, actor models.Actor, productID string) (View, error) {
	p, err := s.owned(ctx, actor, productID)
	if err != nil {
		return View{}, err
	}
	return View{Product: p, Display: NewModel(p).GetInventoryDisplayData()}, nil
}

// Update validates and applies one field change. Changes made by an admin
// are audited.
func (s *Service) Update(ctx context.Context, actor models.Actor, productID string, in UpdateInput) (View, error) {
	if err := validation.Struct(in); err != nil {
		return View{}, err
	}
	before, err := s.owned(ctx, actor, productID)
	if err != nil {
		return View{}, err
	}

	next, res := NewModel(before).ApplyUpdate(in.Field, in.Value)
	if err := res.Err(); err != nil {
		return View{}, err
	}
	saved, err := s.store.SaveInventory(ctx, next)
	if err != nil {
		return View{}, err
	}

	if actor.IsAdmin() && actor.UserID != before.SellerID {
		s.audit.Record(ctx, actor, audit.ActionUpdateInventory, audit.TargetProduct, productID,
			inventorySnapshot(before), inventorySnapshot(saved), "Updated inventory field "+in.Field)
	}
	return View{Product: saved, Display: NewModel(saved).GetInventoryDisplayData()}, nil
}

// Restore runs an out-of-band restoration check for the listed products.
func (s *Service) Restore(ctx context.Context, actor models.Actor, in RestoreInput) ([]models.Product, error) {
	if !actor.IsAdmin() {
		return nil, &apperr.ForbiddenError{Reason: "only admins can trigger restoration"}
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	products, err := s.store.GetMany(ctx, in.ProductIDs)
	if err != nil {
		return nil, err
	}

	restored := s.scheduler.ManualCheck(ctx, in.ProductIDs, products, nil)

	ids := make([]string, 0, len(restored))
	for _, p := range restored {
		ids = append(ids, p.ID)
	}
	s.audit.Record(ctx, actor, audit.ActionRestoreInventory, audit.TargetProduct, "batch",
		map[string]interface{}{"requested": in.ProductIDs},
		map[string]interface{}{"restored": ids},
		"Manual inventory restoration check")
	return restored, nil
}

func (s *Service) owned(ctx context.Context, actor models.Actor, productID string) (models.Product, error) {
	p, err := s.store.Get(ctx, s.store.db, productID)
	if err != nil {
		return models.Product{}, err
	}
	if !actor.IsAdmin() && p.SellerID != actor.UserID {
		return models.Product{}, &apperr.ForbiddenError{Reason: "product belongs to another seller"}
	}
	return p, nil
}

func inventorySnapshot(p models.Product) map[string]interface{} {
	return map[string]interface{}{
		"stock":             p.Stock,
		"lowStockThreshold": p.LowStockThreshold,
		"totalCapacity":     p.TotalCapacity,
		"remainingCapacity": p.RemainingCapacity,
		"capacityPeriod":    p.CapacityPeriod,
		"availableQuantity": p.AvailableQuantity,
		"nextAvailableDate": p.NextAvailableDate,
	}
}

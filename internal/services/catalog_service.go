package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput signals the caller provided invalid arguments.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the product or variant could not be located.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogForbidden indicates the actor may not perform catalogue writes.
	ErrCatalogForbidden = errors.New("catalog: forbidden")
)

// CatalogServiceDeps bundles the collaborators required to construct a catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Audit   AuditLogService
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	catalog repositories.CatalogRepository
	audit   AuditLogService
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCatalogService wires dependencies into a concrete CatalogService implementation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		catalog: deps.Catalog,
		clock: func() time.Time {
			return clock().UTC()
		},
		audit:  deps.Audit,
		logger: logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (Page[Product], error) {
	page, err := s.catalog.ListProducts(ctx, repositories.ProductListFilter{
		CategoryID: filter.CategoryID,
		Type:       filter.Type,
		ActiveOnly: filter.ActiveOnly,
		Search:     strings.TrimSpace(filter.Search),
		Page:       filter.Page,
		PerPage:    filter.PerPage,
	})
	if err != nil {
		return Page[Product]{}, err
	}
	return page, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID uint64) (Product, error) {
	if productID == 0 {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, s.mapError(err)
	}
	return product, nil
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Product{}, fmt.Errorf("%w: slug is required", ErrCatalogInvalidInput)
	}
	product, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return Product{}, s.mapError(err)
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd SaveProductCommand) (Product, error) {
	if err := requireAdmin(cmd.Actor); err != nil {
		return Product{}, err
	}
	product, err := normaliseProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}
	created, err := s.catalog.InsertProduct(ctx, product)
	if err != nil {
		return Product{}, s.mapError(err)
	}
	s.recordAudit(ctx, cmd.Actor, "catalog.product.create", "products/"+strconv.FormatUint(created.ID, 10))
	return created, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd SaveProductCommand) (Product, error) {
	if err := requireAdmin(cmd.Actor); err != nil {
		return Product{}, err
	}
	if cmd.Product.ID == 0 {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := normaliseProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}
	updated, err := s.catalog.UpdateProduct(ctx, product)
	if err != nil {
		return Product{}, s.mapError(err)
	}
	s.recordAudit(ctx, cmd.Actor, "catalog.product.update", "products/"+strconv.FormatUint(updated.ID, 10))
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID uint64, actor Actor) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if productID == 0 {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := s.catalog.DeleteProduct(ctx, productID); err != nil {
		return s.mapError(err)
	}
	s.recordAudit(ctx, actor, "catalog.product.delete", "products/"+strconv.FormatUint(productID, 10))
	return nil
}

func (s *catalogService) ListVariants(ctx context.Context, productID uint64) ([]ProductVariant, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	return s.catalog.ListVariants(ctx, productID)
}

func (s *catalogService) CreateVariant(ctx context.Context, cmd SaveVariantCommand) (ProductVariant, error) {
	if err := requireAdmin(cmd.Actor); err != nil {
		return ProductVariant{}, err
	}
	variant, err := s.normaliseVariant(ctx, cmd.Variant)
	if err != nil {
		return ProductVariant{}, err
	}
	created, err := s.catalog.InsertVariant(ctx, variant)
	if err != nil {
		return ProductVariant{}, s.mapError(err)
	}
	s.recordAudit(ctx, cmd.Actor, "catalog.variant.create", "variants/"+strconv.FormatUint(created.ID, 10))
	return created, nil
}

func (s *catalogService) UpdateVariant(ctx context.Context, cmd SaveVariantCommand) (ProductVariant, error) {
	if err := requireAdmin(cmd.Actor); err != nil {
		return ProductVariant{}, err
	}
	if cmd.Variant.ID == 0 {
		return ProductVariant{}, fmt.Errorf("%w: variant id is required", ErrCatalogInvalidInput)
	}
	variant, err := s.normaliseVariant(ctx, cmd.Variant)
	if err != nil {
		return ProductVariant{}, err
	}
	updated, err := s.catalog.UpdateVariant(ctx, variant)
	if err != nil {
		return ProductVariant{}, s.mapError(err)
	}
	s.recordAudit(ctx, cmd.Actor, "catalog.variant.update", "variants/"+strconv.FormatUint(updated.ID, 10))
	return updated, nil
}

func (s *catalogService) DeleteVariant(ctx context.Context, variantID uint64, actor Actor) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if variantID == 0 {
		return fmt.Errorf("%w: variant id is required", ErrCatalogInvalidInput)
	}
	if err := s.catalog.DeleteVariant(ctx, variantID); err != nil {
		return s.mapError(err)
	}
	s.recordAudit(ctx, actor, "catalog.variant.delete", "variants/"+strconv.FormatUint(variantID, 10))
	return nil
}

func (s *catalogService) ResolvePurchasable(ctx context.Context, ref PurchasableRef) (Purchasable, error) {
	if ref.IsZero() {
		return Purchasable{}, fmt.Errorf("%w: purchasable ref is required", ErrCatalogInvalidInput)
	}
	purchasable, err := s.catalog.ResolvePurchasable(ctx, ref)
	if err != nil {
		return Purchasable{}, s.mapError(err)
	}
	return purchasable, nil
}

func normaliseProduct(product Product) (Product, error) {
	product.SKU = strings.TrimSpace(product.SKU)
	product.Name = strings.TrimSpace(product.Name)
	product.Slug = strings.TrimSpace(product.Slug)
	if product.SKU == "" || product.Name == "" || product.Slug == "" {
		return Product{}, fmt.Errorf("%w: sku, name, and slug are required", ErrCatalogInvalidInput)
	}
	if product.Type != domain.ProductTypeSimple && product.Type != domain.ProductTypeVariable {
		return Product{}, fmt.Errorf("%w: unknown product type %q", ErrCatalogInvalidInput, product.Type)
	}
	if product.Price < 0 {
		return Product{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}
	currency, err := domain.NormalizeCurrency(product.Currency)
	if err != nil {
		return Product{}, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
	}
	product.Currency = currency
	if product.StockStatus == "" {
		if product.StockQuantity > 0 {
			product.StockStatus = domain.StockStatusInStock
		} else {
			product.StockStatus = domain.StockStatusOutOfStock
		}
	}
	if !domain.ValidStockStatus(product.StockStatus) {
		return Product{}, fmt.Errorf("%w: unknown stock status %q", ErrCatalogInvalidInput, product.StockStatus)
	}
	return product, nil
}

func (s *catalogService) normaliseVariant(ctx context.Context, variant ProductVariant) (ProductVariant, error) {
	variant.SKU = strings.TrimSpace(variant.SKU)
	variant.Name = strings.TrimSpace(variant.Name)
	if variant.SKU == "" || variant.Name == "" {
		return ProductVariant{}, fmt.Errorf("%w: sku and name are required", ErrCatalogInvalidInput)
	}
	if variant.ProductID == 0 {
		return ProductVariant{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	parent, err := s.catalog.GetProduct(ctx, variant.ProductID)
	if err != nil {
		return ProductVariant{}, s.mapError(err)
	}
	if parent.Type != domain.ProductTypeVariable {
		return ProductVariant{}, fmt.Errorf("%w: product %d is not variable", ErrCatalogInvalidInput, variant.ProductID)
	}
	if variant.Price < 0 {
		return ProductVariant{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}
	currency, err := domain.NormalizeCurrency(variant.Currency)
	if err != nil {
		return ProductVariant{}, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, err)
	}
	variant.Currency = currency
	if variant.StockStatus == "" {
		if variant.StockQuantity > 0 {
			variant.StockStatus = domain.StockStatusInStock
		} else {
			variant.StockStatus = domain.StockStatusOutOfStock
		}
	}
	if !domain.ValidStockStatus(variant.StockStatus) {
		return ProductVariant{}, fmt.Errorf("%w: unknown stock status %q", ErrCatalogInvalidInput, variant.StockStatus)
	}
	return variant, nil
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: catalogue writes are a back-office operation", ErrCatalogForbidden)
	}
	return nil
}

func (s *catalogService) recordAudit(ctx context.Context, actor Actor, action, targetRef string) {
	if s.audit == nil {
		return
	}
	label := actor.Label
	if label == "" && actor.UserID != nil {
		label = "user:" + strconv.FormatUint(*actor.UserID, 10)
	}
	s.audit.Record(ctx, AuditLogRecord{
		Actor:     label,
		ActorType: "user",
		Action:    action,
		TargetRef: targetRef,
	})
}

func (s *catalogService) mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
	}
	return err
}

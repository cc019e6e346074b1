package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/platform/database"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

type catalogRepository struct {
	registry *Registry
}

func (r *catalogRepository) ListProducts(ctx context.Context, filter repositories.ProductListFilter) (domain.Page[domain.Product], error) {
	const op = "catalog.list_products"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Page[domain.Product]{}, database.WrapError(op, err)
	}

	query := db.Model(&productModel{})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR sku LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.Page[domain.Product]{}, database.WrapError(op, err)
	}

	limit, offset := pageWindow(filter.Page, filter.PerPage)
	var models []productModel
	if err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return domain.Page[domain.Product]{}, database.WrapError(op, err)
	}

	page := domain.Page[domain.Product]{
		Total:      total,
		PerPage:    limit,
		PageNumber: offset/limit + 1,
	}
	for _, m := range models {
		page.Items = append(page.Items, m.toDomain())
	}
	return page, nil
}

func (r *catalogRepository) GetProduct(ctx context.Context, productID uint64) (domain.Product, error) {
	const op = "catalog.get_product"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	var m productModel
	if err := db.First(&m, "id = ?", productID).Error; err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	const op = "catalog.get_product_by_slug"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	var m productModel
	if err := db.First(&m, "slug = ?", slug).Error; err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) InsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	const op = "catalog.insert_product"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	m := productToModel(product)
	if err := db.Create(&m).Error; err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	const op = "catalog.update_product"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	var existing productModel
	if err := db.First(&existing, "id = ?", product.ID).Error; err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	m := productToModel(product)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Time{}
	if err := db.Save(&m).Error; err != nil {
		return domain.Product{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) DeleteProduct(ctx context.Context, productID uint64) error {
	const op = "catalog.delete_product"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Delete(&productModel{}, "id = ?", productID)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewNotFound(op, fmt.Sprintf("product %d not found", productID))
	}
	return nil
}

func (r *catalogRepository) ListVariants(ctx context.Context, productID uint64) ([]domain.ProductVariant, error) {
	const op = "catalog.list_variants"

	db, err := r.registry.session(ctx)
	if err != nil {
		return nil, database.WrapError(op, err)
	}
	var models []variantModel
	if err := db.Where("product_id = ?", productID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, database.WrapError(op, err)
	}
	variants := make([]domain.ProductVariant, 0, len(models))
	for _, m := range models {
		variants = append(variants, m.toDomain())
	}
	return variants, nil
}

func (r *catalogRepository) GetVariant(ctx context.Context, variantID uint64) (domain.ProductVariant, error) {
	const op = "catalog.get_variant"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.ProductVariant{}, database.WrapError(op, err)
	}
	var m variantModel
	if err := db.First(&m, "id = ?", variantID).Error; err != nil {
		return domain.ProductVariant{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) InsertVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error) {
	const op = "catalog.insert_variant"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.ProductVariant{}, database.WrapError(op, err)
	}
	m := variantToModel(variant)
	if err := db.Create(&m).Error; err != nil {
		return domain.ProductVariant{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) UpdateVariant(ctx context.Context, variant domain.ProductVariant) (domain.ProductVariant, error) {
	const op = "catalog.update_variant"

	db, err := r.registry.session(ctx)
	if err != nil {
		return domain.ProductVariant{}, database.WrapError(op, err)
	}
	var existing variantModel
	if err := db.First(&existing, "id = ?", variant.ID).Error; err != nil {
		return domain.ProductVariant{}, database.WrapError(op, err)
	}
	m := variantToModel(variant)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Time{}
	if err := db.Save(&m).Error; err != nil {
		return domain.ProductVariant{}, database.WrapError(op, err)
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) DeleteVariant(ctx context.Context, variantID uint64) error {
	const op = "catalog.delete_variant"

	db, err := r.registry.session(ctx)
	if err != nil {
		return database.WrapError(op, err)
	}
	result := db.Delete(&variantModel{}, "id = ?", variantID)
	if result.Error != nil {
		return database.WrapError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return database.NewNotFound(op, fmt.Sprintf("variant %d not found", variantID))
	}
	return nil
}

func (r *catalogRepository) ResolvePurchasable(ctx context.Context, ref domain.PurchasableRef) (domain.Purchasable, error) {
	const op = "catalog.resolve_purchasable"

	switch ref.Kind {
	case domain.PurchasableProduct:
		product, err := r.GetProduct(ctx, ref.ID)
		if err != nil {
			return domain.Purchasable{}, err
		}
		return domain.Purchasable{
			Ref:           ref,
			SKU:           product.SKU,
			Name:          product.Name,
			Price:         product.Price,
			Currency:      product.Currency,
			StockQuantity: product.StockQuantity,
			StockStatus:   product.StockStatus,
			IsActive:      product.IsActive,
			ProductType:   product.Type,
		}, nil
	case domain.PurchasableVariant:
		variant, err := r.GetVariant(ctx, ref.ID)
		if err != nil {
			return domain.Purchasable{}, err
		}
		return domain.Purchasable{
			Ref:           ref,
			SKU:           variant.SKU,
			Name:          variant.Name,
			Price:         variant.Price,
			Currency:      variant.Currency,
			StockQuantity: variant.StockQuantity,
			StockStatus:   variant.StockStatus,
			IsActive:      variant.IsActive,
		}, nil
	default:
		return domain.Purchasable{}, database.NewNotFound(op, fmt.Sprintf("unknown purchasable kind %q", ref.Kind))
	}
}

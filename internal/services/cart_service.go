package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/maisonmarche/storefront-api/internal/domain"
	"github.com/maisonmarche/storefront-api/internal/repositories"
)

var (
	// ErrCartInvalidInput signals the caller provided invalid arguments.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartNotFound indicates the cart or cart item could not be located.
	ErrCartNotFound = errors.New("cart: not found")
	// ErrCartInsufficientStock indicates the requested quantity exceeds availability.
	ErrCartInsufficientStock = errors.New("cart: insufficient stock")
	// ErrCartCurrencyMismatch indicates the purchasable is priced in another currency.
	ErrCartCurrencyMismatch = errors.New("cart: currency mismatch")
	// ErrCartPurchasableUnavailable indicates the purchasable cannot be sold.
	ErrCartPurchasableUnavailable = errors.New("cart: purchasable unavailable")
)

// CartServiceDeps bundles the collaborators required to construct a cart service.
type CartServiceDeps struct {
	Carts           repositories.CartRepository
	Catalog         repositories.CatalogRepository
	UnitOfWork      repositories.UnitOfWork
	DefaultCurrency string
	Clock           func() time.Time
	TokenGenerator  func() string
	Logger          func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	carts    repositories.CartRepository
	catalog  repositories.CatalogRepository
	uow      repositories.UnitOfWork
	currency string
	clock    func() time.Time
	newToken func() string
	logger   func(context.Context, string, map[string]any)
}

// NewCartService wires dependencies into a concrete CartService implementation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("cart service: catalog repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("cart service: unit of work is required")
	}

	currency := deps.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	tokenGen := deps.TokenGenerator
	if tokenGen == nil {
		tokenGen = func() string {
			return uuid.NewString()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		carts:    deps.Carts,
		catalog:  deps.Catalog,
		uow:      deps.UnitOfWork,
		currency: currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		newToken: tokenGen,
		logger:   logger,
	}, nil
}

func (s *cartService) GetOrCreateCart(ctx context.Context, identity CartIdentity) (Cart, error) {
	if identity.UserID != nil && identity.GuestToken != "" {
		return s.mergeGuestCart(ctx, *identity.UserID, identity.GuestToken)
	}
	return s.findOrCreate(ctx, identity)
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if cmd.Quantity < 1 {
		return Cart{}, fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}
	if cmd.Ref.IsZero() {
		return Cart{}, fmt.Errorf("%w: purchasable ref is required", ErrCartInvalidInput)
	}

	var cart Cart
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.findOrCreate(ctx, cmd.Identity)
		if err != nil {
			return err
		}

		purchasable, err := s.resolveSellable(ctx, cmd.Ref)
		if err != nil {
			return err
		}

		var existing int64
		var line *CartItem
		for i := range cart.Items {
			if cart.Items[i].Purchasable == cmd.Ref {
				existing = cart.Items[i].Quantity
				line = &cart.Items[i]
				break
			}
		}

		if err := s.checkCurrency(ctx, &cart, purchasable); err != nil {
			return err
		}
		if err := s.checkAvailability(purchasable, existing+cmd.Quantity); err != nil {
			return err
		}

		item := domain.CartItem{
			CartID:      cart.ID,
			Purchasable: cmd.Ref,
			Quantity:    existing + cmd.Quantity,
			UnitPrice:   purchasable.Price,
			Currency:    purchasable.Currency,
		}
		if line != nil {
			item.ID = line.ID
		}
		if _, err := s.carts.UpsertItem(ctx, item); err != nil {
			return s.mapRepositoryError(err)
		}

		cart, err = s.reload(ctx, cart.ID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}

	s.logger(ctx, "cart.item.added", map[string]any{
		"cart_id":     cart.ID,
		"purchasable": cmd.Ref.String(),
		"quantity":    cmd.Quantity,
	})
	return cart, nil
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error) {
	if cmd.Quantity < 0 {
		return Cart{}, fmt.Errorf("%w: quantity must not be negative", ErrCartInvalidInput)
	}
	if cmd.ItemID == 0 {
		return Cart{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}

	var cart Cart
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.findOrCreate(ctx, cmd.Identity)
		if err != nil {
			return err
		}

		line, err := ownedItem(cart, cmd.ItemID)
		if err != nil {
			return err
		}

		if cmd.Quantity == 0 {
			if err := s.carts.DeleteItem(ctx, line.ID); err != nil {
				return s.mapRepositoryError(err)
			}
			cart, err = s.reload(ctx, cart.ID)
			return err
		}

		purchasable, err := s.resolveSellable(ctx, line.Purchasable)
		if err != nil {
			return err
		}
		if err := s.checkCurrency(ctx, &cart, purchasable); err != nil {
			return err
		}
		if err := s.checkAvailability(purchasable, cmd.Quantity); err != nil {
			return err
		}

		item := domain.CartItem{
			ID:          line.ID,
			CartID:      cart.ID,
			Purchasable: line.Purchasable,
			Quantity:    cmd.Quantity,
			UnitPrice:   purchasable.Price,
			Currency:    purchasable.Currency,
		}
		if _, err := s.carts.UpsertItem(ctx, item); err != nil {
			return s.mapRepositoryError(err)
		}

		cart, err = s.reload(ctx, cart.ID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	if cmd.ItemID == 0 {
		return Cart{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}

	var cart Cart
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.findOrCreate(ctx, cmd.Identity)
		if err != nil {
			return err
		}

		line, err := ownedItem(cart, cmd.ItemID)
		if err != nil {
			return err
		}
		if err := s.carts.DeleteItem(ctx, line.ID); err != nil {
			return s.mapRepositoryError(err)
		}

		cart, err = s.reload(ctx, cart.ID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

func (s *cartService) ClearCart(ctx context.Context, identity CartIdentity) (Cart, error) {
	var cart Cart
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cart, err = s.findOrCreate(ctx, identity)
		if err != nil {
			return err
		}
		if err := s.carts.DeleteItems(ctx, cart.ID); err != nil {
			return s.mapRepositoryError(err)
		}
		cart, err = s.reload(ctx, cart.ID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// mergeGuestCart folds the guest cart into the user's active cart line by
// line, then deletes the guest cart. The whole merge runs in one transaction
// so a mid-merge failure leaves both carts untouched.
func (s *cartService) mergeGuestCart(ctx context.Context, userID uint64, guestToken string) (Cart, error) {
	var cart Cart
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		guest, err := s.carts.FindActiveByGuestToken(ctx, guestToken)
		if err != nil {
			if isNotFound(err) {
				cart, err = s.findOrCreate(ctx, CartIdentity{UserID: &userID})
				return err
			}
			return s.mapRepositoryError(err)
		}

		cart, err = s.findOrCreate(ctx, CartIdentity{UserID: &userID})
		if err != nil {
			return err
		}

		guest, err = s.carts.LockCart(ctx, guest.ID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		cart, err = s.carts.LockCart(ctx, cart.ID)
		if err != nil {
			return s.mapRepositoryError(err)
		}

		for _, line := range guest.Items {
			purchasable, err := s.resolveSellable(ctx, line.Purchasable)
			if err != nil {
				return err
			}

			var existing int64
			var target *CartItem
			for i := range cart.Items {
				if cart.Items[i].Purchasable == line.Purchasable {
					existing = cart.Items[i].Quantity
					target = &cart.Items[i]
					break
				}
			}

			if err := s.checkCurrency(ctx, &cart, purchasable); err != nil {
				return err
			}
			if err := s.checkAvailability(purchasable, existing+line.Quantity); err != nil {
				return err
			}

			item := domain.CartItem{
				CartID:      cart.ID,
				Purchasable: line.Purchasable,
				Quantity:    existing + line.Quantity,
				UnitPrice:   purchasable.Price,
				Currency:    purchasable.Currency,
			}
			if target != nil {
				item.ID = target.ID
			}
			saved, err := s.carts.UpsertItem(ctx, item)
			if err != nil {
				return s.mapRepositoryError(err)
			}
			if target != nil {
				*target = saved
			} else {
				cart.Items = append(cart.Items, saved)
			}
		}

		if err := s.carts.Delete(ctx, guest.ID); err != nil {
			return s.mapRepositoryError(err)
		}

		cart, err = s.reload(ctx, cart.ID)
		return err
	})
	if err != nil {
		return Cart{}, err
	}

	s.logger(ctx, "cart.merged", map[string]any{
		"cart_id": cart.ID,
		"user_id": userID,
	})
	return cart, nil
}

func (s *cartService) findOrCreate(ctx context.Context, identity CartIdentity) (Cart, error) {
	switch {
	case identity.UserID != nil:
		cart, err := s.carts.FindActiveByUser(ctx, *identity.UserID)
		if err == nil {
			return cart, nil
		}
		if !isNotFound(err) {
			return Cart{}, s.mapRepositoryError(err)
		}
		return s.create(ctx, domain.Cart{UserID: identity.UserID})
	case identity.GuestToken != "":
		cart, err := s.carts.FindActiveByGuestToken(ctx, identity.GuestToken)
		if err == nil {
			return cart, nil
		}
		if !isNotFound(err) {
			return Cart{}, s.mapRepositoryError(err)
		}
		return s.create(ctx, domain.Cart{GuestToken: identity.GuestToken})
	default:
		// Fresh anonymous session: issue a guest token with the new cart.
		return s.create(ctx, domain.Cart{GuestToken: s.newToken()})
	}
}

func (s *cartService) create(ctx context.Context, cart domain.Cart) (Cart, error) {
	cart.Currency = s.currency
	cart.Status = domain.CartStatusActive
	created, err := s.carts.Insert(ctx, cart)
	if err != nil {
		return Cart{}, s.mapRepositoryError(err)
	}
	return created, nil
}

func (s *cartService) reload(ctx context.Context, cartID uint64) (Cart, error) {
	cart, err := s.carts.GetCart(ctx, cartID)
	if err != nil {
		return Cart{}, s.mapRepositoryError(err)
	}
	return cart, nil
}

func (s *cartService) resolveSellable(ctx context.Context, ref PurchasableRef) (Purchasable, error) {
	purchasable, err := s.catalog.ResolvePurchasable(ctx, ref)
	if err != nil {
		if isNotFound(err) {
			return Purchasable{}, fmt.Errorf("%w: purchasable %s", ErrCartNotFound, ref)
		}
		return Purchasable{}, err
	}
	if !purchasable.IsActive {
		return Purchasable{}, fmt.Errorf("%w: %s is inactive", ErrCartPurchasableUnavailable, ref)
	}
	if ref.Kind == domain.PurchasableProduct && purchasable.ProductType == domain.ProductTypeVariable {
		return Purchasable{}, fmt.Errorf("%w: variable product %d must be purchased through a variant", ErrCartInvalidInput, ref.ID)
	}
	return purchasable, nil
}

// checkCurrency adopts the purchasable currency on an empty cart and rejects a
// mismatch on a cart that already holds lines.
func (s *cartService) checkCurrency(ctx context.Context, cart *Cart, purchasable Purchasable) error {
	if len(cart.Items) == 0 {
		if cart.Currency != purchasable.Currency {
			if err := s.carts.UpdateCurrency(ctx, cart.ID, purchasable.Currency); err != nil {
				return s.mapRepositoryError(err)
			}
			cart.Currency = purchasable.Currency
		}
		return nil
	}
	if cart.Currency != purchasable.Currency {
		return fmt.Errorf("%w: cart is %s, purchasable is %s",
			ErrCartCurrencyMismatch, cart.Currency, purchasable.Currency)
	}
	return nil
}

func (s *cartService) checkAvailability(purchasable Purchasable, quantity int64) error {
	if err := domain.Sellable(purchasable, quantity); err != nil {
		return fmt.Errorf("%w: %s has %d available",
			ErrCartInsufficientStock, purchasable.Ref, purchasable.StockQuantity)
	}
	return nil
}

func ownedItem(cart Cart, itemID uint64) (CartItem, error) {
	for _, line := range cart.Items {
		if line.ID == itemID {
			return line, nil
		}
	}
	return CartItem{}, fmt.Errorf("%w: item %d is not in cart %d", ErrCartNotFound, itemID, cart.ID)
}

func (s *cartService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return fmt.Errorf("%w: %v", ErrCartNotFound, err)
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agamariel/teastore/internal/auth"
	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/storage"
	"github.com/agamariel/teastore/internal/utils"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder        = errors.New("order must contain at least one item")
	ErrInvalidQuantity   = errors.New("item quantity must be positive")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrForbidden         = errors.New("order belongs to another user")
	ErrNumbersExhausted  = errors.New("failed to allocate order number")
)

// maxNumberAttempts ограничивает повторы при гонке за номер заказа.
const maxNumberAttempts = 5

// OrderService определяет интерфейс жизненного цикла заказа.
type OrderService interface {
	Create(ctx context.Context, principal auth.Principal, req models.CreateOrderRequest) (*models.Order, error)
	QuickBuy(ctx context.Context, principal auth.Principal, req models.QuickBuyRequest) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, newStatus string) (*models.Order, error)
	GetByID(ctx context.Context, principal auth.Principal, orderID int64) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error)
}

// OrderServiceImpl реализует OrderService.
type OrderServiceImpl struct {
	pool           TxBeginner
	orderStorage   OrderStorage
	productStorage ProductStorage
	cartStorage    CartStorage
	userStorage    UserStorage
	now            func() time.Time
}

// NewOrderService создаёт новый сервис заказов.
func NewOrderService(pool TxBeginner, orderStorage OrderStorage, productStorage ProductStorage, cartStorage CartStorage, userStorage UserStorage) *OrderServiceImpl {
	return &OrderServiceImpl{
		pool:           pool,
		orderStorage:   orderStorage,
		productStorage: productStorage,
		cartStorage:    cartStorage,
		userStorage:    userStorage,
		now:            time.Now,
	}
}

// Create создаёт заказ с позициями одной транзакцией: выделение номера,
// вставка заказа и позиций, списание остатков, очистка корзины.
// Любая ошибка откатывает всё целиком.
func (s *OrderServiceImpl) Create(ctx context.Context, principal auth.Principal, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		// Запрос без позиций означает оформление сохранённой корзины.
		items, err := s.cartItems(ctx, principal)
		if err != nil {
			return nil, err
		}
		req.Items = items
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	// Выделение номера не атомарно с вставкой: два конкурентных запроса
	// могут выбрать один номер. Арбитром служит уникальный индекс,
	// при конфликте повторяем всю транзакцию.
	var lastErr error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		base := utils.OrderNumberBase(s.now())
		numbers, err := s.orderStorage.GetNumbersLike(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("list order numbers: %w", err)
		}
		number := utils.NextOrderNumber(base, numbers)

		order, err := s.createWithNumber(ctx, principal.UserID, number, req)
		if errors.Is(err, storage.ErrOrderNumberTaken) {
			lastErr = err
			continue
		}
		return order, err
	}

	return nil, fmt.Errorf("%w: %v", ErrNumbersExhausted, lastErr)
}

// createWithNumber выполняет одну попытку создания заказа с заданным номером.
func (s *OrderServiceImpl) createWithNumber(ctx context.Context, userID int64, number string, req models.CreateOrderRequest) (*models.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	total := req.DeliveryCharge
	for _, item := range req.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	order := &models.Order{
		UserID:         userID,
		Number:         number,
		Status:         models.OrderStatusPending,
		TotalAmount:    total,
		Shipping:       req.Shipping,
		PaymentMethod:  req.PaymentMethod,
		DeliverySpeed:  req.DeliverySpeed,
		DeliveryCharge: req.DeliveryCharge,
		Notes:          req.Notes,
	}

	if err := s.orderStorage.CreateTx(ctx, tx, order); err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		// Блокировка строки товара держит остаток неизменным между
		// проверкой наличия и списанием.
		product, err := s.productStorage.LockByIDTx(ctx, tx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.StockQuantity < item.Quantity {
			return nil, fmt.Errorf("%w: product %d has %d left", storage.ErrInsufficientStock, product.ID, product.StockQuantity)
		}

		productID := item.ProductID
		orderItem := &models.OrderItem{
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if err := s.orderStorage.AddItemTx(ctx, tx, orderItem); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, orderItem)

		if err := s.productStorage.DecrementStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.cartStorage.ClearTx(ctx, tx, userID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

// QuickBuy создаёт заказ из одного товара. Цена берётся из каталога:
// оптовая для одобренных оптовиков, розничная для остальных.
func (s *OrderServiceImpl) QuickBuy(ctx context.Context, principal auth.Principal, req models.QuickBuyRequest) (*models.Order, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	price, err := s.priceFor(ctx, principal, req.ProductID)
	if err != nil {
		return nil, err
	}

	return s.Create(ctx, principal, models.CreateOrderRequest{
		Items: []models.OrderItemRequest{
			{ProductID: req.ProductID, Quantity: req.Quantity, Price: price},
		},
		Shipping:       req.Shipping,
		PaymentMethod:  req.PaymentMethod,
		DeliverySpeed:  req.DeliverySpeed,
		DeliveryCharge: req.DeliveryCharge,
		Notes:          req.Notes,
	})
}

// cartItems собирает позиции заказа из сохранённой корзины. Цена
// каждой позиции берётся из каталога по тем же правилам, что и в
// QuickBuy.
func (s *OrderServiceImpl) cartItems(ctx context.Context, principal auth.Principal) ([]models.OrderItemRequest, error) {
	cart, err := s.cartStorage.GetByUserID(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	items := make([]models.OrderItemRequest, 0, len(cart))
	for _, ci := range cart {
		price, err := s.priceFor(ctx, principal, ci.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderItemRequest{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Price:     price,
		})
	}
	return items, nil
}

// priceFor выбирает цену товара для покупателя. Одобрение оптовика
// проверяется по базе, а не по токену: токен переживает отзыв
// одобрения до истечения срока действия.
func (s *OrderServiceImpl) priceFor(ctx context.Context, principal auth.Principal, productID int64) (decimal.Decimal, error) {
	product, err := s.productStorage.GetByID(ctx, productID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if principal.Role == models.RoleWholesale {
		user, err := s.userStorage.GetByID(ctx, principal.UserID)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("load buyer: %w", err)
		}
		if user.WholesaleApproved {
			return product.WholesalePrice, nil
		}
	}

	return product.RetailPrice, nil
}

// UpdateStatus меняет статус заказа. Строка заказа блокируется на время
// транзакции, поэтому два одновременных перевода в cancelled не продублируют
// возврат остатков. Повторная отмена уже отменённого заказа - no-op.
func (s *OrderServiceImpl) UpdateStatus(ctx context.Context, orderID int64, newStatus string) (*models.Order, error) {
	status := models.OrderStatus(newStatus)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := s.orderStorage.LockByIDTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == status {
		// Идемпотентный повтор: побочный эффект уже применён.
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit tx: %w", err)
		}
		return s.orderStorage.GetByID(ctx, orderID)
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	// Единственный переход с побочным эффектом: отмена возвращает
	// остатки по каждой позиции.
	if status == models.OrderStatusCancelled {
		items, err := s.orderStorage.GetItemsTx(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.ProductID == nil {
				// Товар удалён из каталога, возвращать некуда.
				continue
			}
			if err := s.productStorage.IncrementStockTx(ctx, tx, *item.ProductID, item.Quantity); err != nil {
				return nil, err
			}
		}
	}

	if err := s.orderStorage.UpdateStatusTx(ctx, tx, orderID, status); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.orderStorage.GetByID(ctx, orderID)
}

// GetByID возвращает заказ, проверяя права: не-админ видит только свои.
func (s *OrderServiceImpl) GetByID(ctx context.Context, principal auth.Principal, orderID int64) (*models.Order, error) {
	order, err := s.orderStorage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !principal.Role.IsAdmin() && order.UserID != principal.UserID {
		return nil, ErrForbidden
	}

	return order, nil
}

// GetUserOrders возвращает заказы пользователя с позициями.
func (s *OrderServiceImpl) GetUserOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	orders, err := s.orderStorage.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user orders: %w", err)
	}
	return orders, nil
}

// List возвращает заказы по фильтру (админская выборка).
func (s *OrderServiceImpl) List(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, error) {
	orders, err := s.orderStorage.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

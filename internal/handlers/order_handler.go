package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agamariel/teastore/internal/auth"
	"github.com/agamariel/teastore/internal/models"
	"github.com/agamariel/teastore/internal/services"
	"github.com/agamariel/teastore/internal/storage"
	"github.com/labstack/echo/v4"
)

// OrderHandler обрабатывает запросы, связанные с заказами.
type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder обрабатывает POST /api/orders.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	principal, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	order, err := h.orderService.Create(c.Request().Context(), principal, req)
	if err != nil {
		return mapOrderError(err)
	}

	return c.JSON(http.StatusCreated, mapOrderToResponse(order))
}

// QuickBuy обрабатывает POST /api/orders/quick-buy.
func (h *OrderHandler) QuickBuy(c echo.Context) error {
	principal, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	var req models.QuickBuyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	order, err := h.orderService.QuickBuy(c.Request().Context(), principal, req)
	if err != nil {
		return mapOrderError(err)
	}

	return c.JSON(http.StatusCreated, mapOrderToResponse(order))
}

// GetOrders обрабатывает GET /api/orders - заказы текущего пользователя.
func (h *OrderHandler) GetOrders(c echo.Context) error {
	principal, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	orders, err := h.orderService.GetUserOrders(c.Request().Context(), principal.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if len(orders) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	return c.JSON(http.StatusOK, mapOrdersToResponse(orders))
}

// GetOrder обрабатывает GET /api/orders/:id.
func (h *OrderHandler) GetOrder(c echo.Context) error {
	principal, err := auth.GetPrincipal(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.orderService.GetByID(c.Request().Context(), principal, id)
	if err != nil {
		return mapOrderError(err)
	}

	return c.JSON(http.StatusOK, mapOrderToResponse(order))
}

// ListOrders обрабатывает GET /api/admin/orders - админская выборка.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	filter := models.OrderListFilter{
		Status: models.OrderStatus(c.QueryParam("status")),
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown order status")
	}

	orders, err := h.orderService.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, mapOrdersToResponse(orders))
}

// UpdateStatus обрабатывает PUT /api/admin/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	order, err := h.orderService.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return mapOrderError(err)
	}

	return c.JSON(http.StatusOK, mapOrderToResponse(order))
}

// mapOrderError переводит ошибки ядра в HTTP-статусы.
func mapOrderError(err error) error {
	switch {
	case errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrInsufficientStock):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrProductNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}

// mapOrderToResponse преобразует domain модель заказа в DTO для HTTP-ответа.
func mapOrderToResponse(order *models.Order) *models.OrderResponse {
	items := make([]*models.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, &models.OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(2),
			Subtotal:    item.Subtotal.StringFixed(2),
		})
	}

	return &models.OrderResponse{
		ID:             order.ID,
		Number:         order.Number,
		Status:         string(order.Status),
		TotalAmount:    order.TotalAmount.StringFixed(2),
		Shipping:       order.Shipping,
		PaymentMethod:  order.PaymentMethod,
		DeliverySpeed:  order.DeliverySpeed,
		DeliveryCharge: order.DeliveryCharge.StringFixed(2),
		Notes:          order.Notes,
		Items:          items,
		CreatedAt:      order.CreatedAt.Format(time.RFC3339),
	}
}

func mapOrdersToResponse(orders []*models.Order) []*models.OrderResponse {
	response := make([]*models.OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, mapOrderToResponse(order))
	}
	return response
}

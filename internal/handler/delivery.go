package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/issuemail/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DeliveryLister pages through the delivery log.
type DeliveryLister interface {
	List(ctx context.Context, cursor int64, limit int) ([]domain.Delivery, bool, error)
}

// DeliveryHandler exposes the delivery log.
type DeliveryHandler struct {
	deliveries DeliveryLister
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(deliveries DeliveryLister) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

// List returns deliveries newest first. The cursor is the ID of the last
// delivery of the previous page.
func (h *DeliveryHandler) List(c echo.Context) error {
	cursor, err := queryInt(c, "cursor", 0)
	if err != nil || cursor < 0 {
		return &domain.ValidationError{Field: "cursor", Message: "must be a non-negative integer"}
	}
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		return &domain.ValidationError{Field: "limit", Message: "must be between 1 and 100"}
	}

	items, hasNext, err := h.deliveries.List(c.Request().Context(), cursor, int(limit))
	if err != nil {
		return err
	}

	meta := PaginationMeta{HasNext: hasNext}
	if hasNext && len(items) > 0 {
		meta.NextCursor = strconv.FormatInt(items[len(items)-1].ID, 10)
	}
	return JSONList(c, http.StatusOK, items, meta)
}

func queryInt(c echo.Context, name string, def int64) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

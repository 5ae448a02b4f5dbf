package order

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/storefront-cart/modules/catalog"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// OrderPort defines the order operations available to other modules.
type OrderPort interface {
	Place(ctx context.Context, req PlaceRequest) (*Order, error)
	Get(ctx context.Context, code string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, code, status string) (*Order, error)
}

// OrderAdapter implements OrderPort using the service container.
type OrderAdapter struct {
	container mono.ServiceContainer
}

// NewOrderAdapter creates a new OrderAdapter.
func NewOrderAdapter(container mono.ServiceContainer) OrderPort {
	if container == nil {
		panic("order: ServiceContainer is nil")
	}
	return &OrderAdapter{container: container}
}

// Place submits a checkout. Shortages come back as *catalog.ShortageError and
// validation failures wrap ErrInvalidOrder.
func (a *OrderAdapter) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	var resp OrderResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServicePlace,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return orderFromResponse(&resp)
}

// Get returns an order by code.
func (a *OrderAdapter) Get(ctx context.Context, code string) (*Order, error) {
	req := GetRequest{Code: code}
	var resp OrderResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGet,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return orderFromResponse(&resp)
}

// List returns orders matching filter, newest first.
func (a *OrderAdapter) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	req := ListRequest{Filter: filter}
	var resp ListResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceList,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	switch resp.Error {
	case "":
		return resp.Orders, nil
	case CodeInvalid:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, resp.Message)
	default:
		return nil, fmt.Errorf("order: %s", resp.Message)
	}
}

// UpdateStatus changes an order's status. A cancelled order answers ErrOrderCancelled.
func (a *OrderAdapter) UpdateStatus(ctx context.Context, code, status string) (*Order, error) {
	req := UpdateStatusRequest{Code: code, Status: status}
	var resp OrderResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceUpdateStatus,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return orderFromResponse(&resp)
}

func orderFromResponse(resp *OrderResponse) (*Order, error) {
	switch resp.Error {
	case "":
	case CodeInsufficientStock:
		return nil, &catalog.ShortageError{Shortages: resp.Shortages}
	case CodeInvalid:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrder, resp.Message)
	case CodeNotFound:
		return nil, ErrNotFound
	case CodeCancelled:
		return nil, ErrOrderCancelled
	default:
		return nil, fmt.Errorf("order: %s", resp.Message)
	}
	if resp.Order == nil {
		return nil, ErrNotFound
	}
	return resp.Order, nil
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appreceiving "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReceivingService is a mock implementation of ReceivingService
type MockReceivingService struct {
	mock.Mock
}

func (m *MockReceivingService) ListOutstandingOrders(ctx context.Context) ([]appreceiving.OrderSummaryResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appreceiving.OrderSummaryResponse), args.Error(1)
}

func (m *MockReceivingService) GetOrderHeader(ctx context.Context, orderID uuid.UUID) (*appreceiving.OrderHeaderResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreceiving.OrderHeaderResponse), args.Error(1)
}

func (m *MockReceivingService) GetOrderLines(ctx context.Context, orderID uuid.UUID) ([]appreceiving.OrderLineResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appreceiving.OrderLineResponse), args.Error(1)
}

func (m *MockReceivingService) GetOrderLinesFresh(ctx context.Context, orderID uuid.UUID) ([]appreceiving.OrderLineResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appreceiving.OrderLineResponse), args.Error(1)
}

func (m *MockReceivingService) OpenSession(ctx context.Context, orderID uuid.UUID) (*appreceiving.SessionResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreceiving.SessionResponse), args.Error(1)
}

func (m *MockReceivingService) BuildBatch(ctx context.Context, orderID uuid.UUID, in appreceiving.BatchInput) (receiving.Batch, error) {
	args := m.Called(ctx, orderID, in)
	return args.Get(0).(receiving.Batch), args.Error(1)
}

func (m *MockReceivingService) ValidateBatch(ctx context.Context, orderID uuid.UUID, in appreceiving.BatchInput, edit *appreceiving.EditInput) (*appreceiving.ValidateResponse, error) {
	args := m.Called(ctx, orderID, in, edit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreceiving.ValidateResponse), args.Error(1)
}

func (m *MockReceivingService) CommitReceiptBatch(ctx context.Context, cmd appreceiving.CommitCommand) (*appreceiving.CommitResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreceiving.CommitResult), args.Error(1)
}

func (m *MockReceivingService) ForceClose(ctx context.Context, cmd appreceiving.ForceCloseCommand) (*appreceiving.ForceCloseResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appreceiving.ForceCloseResult), args.Error(1)
}

func setupReceivingRouter(svc ReceivingService) *gin.Engine {
	r := gin.New()
	NewReceivingHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ordersPath(id uuid.UUID, suffix string) string {
	return "/api/v1/receiving/orders/" + id.String() + suffix
}

func TestReceivingHandler_ListOutstandingOrders(t *testing.T) {
	svc := new(MockReceivingService)
	orders := []appreceiving.OrderSummaryResponse{
		{OrderID: uuid.New(), OrderNumber: "PO-1002", OrderDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), VendorName: "Acme"},
		{OrderID: uuid.New(), OrderNumber: "PO-1001", OrderDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), VendorName: "Acme"},
	}
	svc.On("ListOutstandingOrders", mock.Anything).Return(orders, nil)

	w := doJSON(t, setupReceivingRouter(svc), http.MethodGet, "/api/v1/receiving/orders", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                                `json:"success"`
		Data    []appreceiving.OrderSummaryResponse `json:"data"`
		Meta    struct{ Total int }                 `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "PO-1002", resp.Data[0].OrderNumber)
	assert.Equal(t, 2, resp.Meta.Total)
	svc.AssertExpectations(t)
}

func TestReceivingHandler_GetOrderHeader(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockReceivingService)
		id := uuid.New()
		svc.On("GetOrderHeader", mock.Anything, id).Return(&appreceiving.OrderHeaderResponse{OrderID: id, OrderNumber: "PO-7"}, nil)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodGet, ordersPath(id, ""), nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"order_number":"PO-7"`)
	})

	t.Run("not visible", func(t *testing.T) {
		svc := new(MockReceivingService)
		id := uuid.New()
		svc.On("GetOrderHeader", mock.Anything, id).Return(nil, shared.NewDomainError("NOT_FOUND", "Purchase order not found"))

		w := doJSON(t, setupReceivingRouter(svc), http.MethodGet, ordersPath(id, ""), nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "ERR_NOT_FOUND", resp.Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockReceivingService)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodGet, "/api/v1/receiving/orders/not-a-uuid", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetOrderHeader", mock.Anything, mock.Anything)
	})
}

func TestReceivingHandler_GetOrderLines(t *testing.T) {
	id := uuid.New()
	lines := []appreceiving.OrderLineResponse{{LineID: uuid.New(), PartCode: "BOLT-10", OrderQty: 10, Outstanding: 6}}

	t.Run("cached by default", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("GetOrderLines", mock.Anything, id).Return(lines, nil)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodGet, ordersPath(id, "/lines"), nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
		svc.AssertNotCalled(t, "GetOrderLinesFresh", mock.Anything, mock.Anything)
	})

	t.Run("fresh", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("GetOrderLinesFresh", mock.Anything, id).Return(lines, nil)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodGet, ordersPath(id, "/lines?fresh=true"), nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"part_code":"BOLT-10"`)
		svc.AssertExpectations(t)
		svc.AssertNotCalled(t, "GetOrderLines", mock.Anything, mock.Anything)
	})
}

func TestReceivingHandler_OpenSession(t *testing.T) {
	svc := new(MockReceivingService)
	id := uuid.New()
	session := &appreceiving.SessionResponse{
		Header: appreceiving.OrderHeaderResponse{OrderID: id},
		Lines:  []appreceiving.OrderLineResponse{{LineID: uuid.New(), Outstanding: 4, OutstandingBase: 4}},
	}
	svc.On("OpenSession", mock.Anything, id).Return(session, nil)

	w := doJSON(t, setupReceivingRouter(svc), http.MethodGet, ordersPath(id, "/session"), nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outstanding_base":4`)
	svc.AssertExpectations(t)
}

func TestReceivingHandler_ValidateBatch(t *testing.T) {
	id := uuid.New()
	lineID := uuid.New()
	partID := uuid.New()

	t.Run("line edit", func(t *testing.T) {
		svc := new(MockReceivingService)
		wantInput := appreceiving.BatchInput{
			Lines:     []appreceiving.LineEditInput{{LineID: lineID, PartID: partID, Received: 2}},
			Unordered: []appreceiving.UnorderedItemInput{},
		}
		wantEdit := &appreceiving.EditInput{LineID: lineID, Field: "returned", Quantity: 1}
		svc.On("ValidateBatch", mock.Anything, id, wantInput, wantEdit).
			Return(&appreceiving.ValidateResponse{OK: false, HasChanges: true}, nil)

		body := map[string]any{
			"lines": []map[string]any{{"line_id": lineID, "part_id": partID, "received": 2}},
			"edit":  map[string]any{"line_id": lineID, "field": "returned", "quantity": 1},
		}
		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/validate"), body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"has_changes":true`)
		svc.AssertExpectations(t)
	})

	t.Run("draft edit has no line", func(t *testing.T) {
		svc := new(MockReceivingService)
		wantEdit := &appreceiving.EditInput{Field: "quantity", Quantity: 3}
		svc.On("ValidateBatch", mock.Anything, id, mock.Anything, wantEdit).
			Return(&appreceiving.ValidateResponse{OK: true}, nil)

		body := map[string]any{"edit": map[string]any{"field": "quantity", "quantity": 3}}
		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/validate"), body, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown edit field", func(t *testing.T) {
		svc := new(MockReceivingService)
		body := map[string]any{"edit": map[string]any{"field": "unit_cost"}}

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/validate"), body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "ERR_VALIDATION", resp.Error.Code)
		svc.AssertNotCalled(t, "ValidateBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed line id", func(t *testing.T) {
		svc := new(MockReceivingService)
		body := map[string]any{"lines": []map[string]any{{"line_id": "line-1"}}}

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/validate"), body, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotEmpty(t, resp.Error.Details)
		assert.Contains(t, resp.Error.Details[0].Field, "lines[0].line_id")
	})
}

func TestReceivingHandler_CommitReceiptBatch(t *testing.T) {
	id := uuid.New()
	lineID := uuid.New()
	batch := receiving.Batch{Lines: []receiving.OrderLine{{LineID: lineID, Received: 4}}}

	body := map[string]any{
		"lines": []map[string]any{{"line_id": lineID, "received": 4}},
	}

	t.Run("created", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("BuildBatch", mock.Anything, id, mock.Anything).Return(batch, nil)
		svc.On("CommitReceiptBatch", mock.Anything, appreceiving.CommitCommand{
			OrderID:        id,
			EmployeeID:     "EMP-7",
			IdempotencyKey: "key-1",
			Batch:          batch,
		}).Return(&appreceiving.CommitResult{OrderID: id, QuantityReceived: 4, AutoClosed: true}, nil)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/receipts"), body, map[string]string{
			logger.EmployeeIDHeader: "EMP-7",
			IdempotencyKeyHeader:    "key-1",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"auto_closed":true`)
		svc.AssertExpectations(t)
	})

	t.Run("no changes", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("BuildBatch", mock.Anything, id, mock.Anything).Return(receiving.Batch{}, nil)
		svc.On("CommitReceiptBatch", mock.Anything, mock.Anything).Return(nil, &receiving.NoChangesError{})

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/receipts"), map[string]any{}, map[string]string{
			logger.EmployeeIDHeader: "EMP-7",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"no_changes":true`)
	})

	t.Run("field errors", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("BuildBatch", mock.Anything, id, mock.Anything).Return(batch, nil)
		svc.On("CommitReceiptBatch", mock.Anything, mock.Anything).Return(nil, &receiving.ValidationError{
			Errors: []receiving.FieldError{{
				Key:     receiving.FieldKey{Subject: "line:" + lineID.String(), Field: receiving.FieldReceived},
				Message: "Cannot receive more than the outstanding quantity",
			}},
		})

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/receipts"), body, map[string]string{
			logger.EmployeeIDHeader: "EMP-7",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "received", resp.Error.Details[0].Field)
	})

	t.Run("closed concurrently", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("BuildBatch", mock.Anything, id, mock.Anything).Return(batch, nil)
		svc.On("CommitReceiptBatch", mock.Anything, mock.Anything).Return(nil, shared.ErrInvalidState)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/receipts"), body, map[string]string{
			logger.EmployeeIDHeader: "EMP-7",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("order gone before build", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("BuildBatch", mock.Anything, id, mock.Anything).Return(receiving.Batch{}, shared.ErrNotFound)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/receipts"), body, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		svc.AssertNotCalled(t, "CommitReceiptBatch", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockReceivingService)
		req := httptest.NewRequest(http.MethodPost, ordersPath(id, "/receipts"), bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		setupReceivingRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "body", resp.Error.Details[0].Field)
	})
}

func TestReceivingHandler_ForceClose(t *testing.T) {
	id := uuid.New()

	t.Run("without staged batch", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("ForceClose", mock.Anything, appreceiving.ForceCloseCommand{
			OrderID:    id,
			EmployeeID: "EMP-7",
			Reason:     "Vendor cancelled",
		}).Return(&appreceiving.ForceCloseResult{OrderID: id, Notes: "Vendor cancelled"}, nil)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/force-close"),
			map[string]any{"reason": "Vendor cancelled"}, map[string]string{logger.EmployeeIDHeader: "EMP-7"})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
		svc.AssertNotCalled(t, "BuildBatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("with staged batch", func(t *testing.T) {
		svc := new(MockReceivingService)
		lineID := uuid.New()
		batch := receiving.Batch{Lines: []receiving.OrderLine{{LineID: lineID, Received: 1}}}
		svc.On("BuildBatch", mock.Anything, id, mock.Anything).Return(batch, nil)
		svc.On("ForceClose", mock.Anything, mock.MatchedBy(func(cmd appreceiving.ForceCloseCommand) bool {
			return cmd.Batch != nil && len(cmd.Batch.Lines) == 1 && cmd.Reason == "Short shipped"
		})).Return(&appreceiving.ForceCloseResult{OrderID: id}, nil)

		body := map[string]any{
			"reason": "Short shipped",
			"batch":  map[string]any{"lines": []map[string]any{{"line_id": lineID, "received": 1}}},
		}
		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/force-close"), body,
			map[string]string{logger.EmployeeIDHeader: "EMP-7"})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("blank reason", func(t *testing.T) {
		svc := new(MockReceivingService)
		svc.On("ForceClose", mock.Anything, mock.Anything).Return(nil, receiving.ErrForceCloseReasonRequired)

		w := doJSON(t, setupReceivingRouter(svc), http.MethodPost, ordersPath(id, "/force-close"),
			map[string]any{"reason": "   "}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, "ERR_INVALID_REASON", resp.Error.Code)
	})
}

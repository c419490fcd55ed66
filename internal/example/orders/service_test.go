package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandezvara/svckit"
)

var (
	reserveStock = regexp.QuoteMeta("UPDATE stock SET available = available - 2 WHERE sku = 'SKU-1' AND available >= 2")
	insertOrder  = regexp.QuoteMeta(`INSERT INTO "orders"`)
	selectOrder  = regexp.QuoteMeta(`FROM "orders" AS "o"`)
	returnStock  = regexp.QuoteMeta("UPDATE stock SET available = available + 2 WHERE sku = 'SKU-1'")
	deleteOrder  = regexp.QuoteMeta(`DELETE FROM "orders"`)
	orderColumns = []string{"id", "customer", "sku", "quantity", "created_at"}
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := svckit.DefaultConfig("postgres://orders@localhost/orders").WithLogger(logger)
	pool, err := svckit.NewFromDB(sqlDB, cfg)
	require.NoError(t, err)

	// The registry is never initialized, so reads skip the cache
	return NewService(pool, svckit.NewCacheRegistry(), logger), mock
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{Customer: "ada", SKU: "SKU-1", Quantity: 2}
}

func TestCreateCommits(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(reserveStock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertOrder).WillReturnRows(
		sqlmock.NewRows(orderColumns).AddRow(7, "ada", "SKU-1", 2, time.Now()))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(7), order.ID)
	assert.Equal(t, "SKU-1", order.SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(reserveStock).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, http.StatusConflict, svckit.ResponseFor(err).StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertFailureRollsBack(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(reserveStock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertOrder).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, http.StatusInternalServerError, svckit.ResponseFor(err).StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateValidation(t *testing.T) {
	svc, mock := newTestService(t)

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{"missing customer", CreateOrderRequest{SKU: "SKU-1", Quantity: 1}},
		{"missing sku", CreateOrderRequest{Customer: "ada", Quantity: 1}},
		{"zero quantity", CreateOrderRequest{Customer: "ada", SKU: "SKU-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
	// Invalid requests never open a transaction
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAcquireFailure(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin().WillReturnError(errors.New("too many clients"))

	_, err := svc.Create(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, svckit.IsAcquire(err))
	assert.Equal(t, http.StatusServiceUnavailable, svckit.ResponseFor(err).StatusCode)
}

func TestRestock(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (sku) DO UPDATE SET available =`)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := svc.Restock(context.Background(), RestockRequest{Items: []Stock{
		{SKU: "SKU-1", Available: 5},
		{SKU: "SKU-2", Available: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRestockValidation(t *testing.T) {
	svc, mock := newTestService(t)

	for _, req := range []RestockRequest{
		{},
		{Items: []Stock{{SKU: "", Available: 1}}},
		{Items: []Stock{{SKU: "SKU-1", Available: 0}}},
	} {
		_, err := svc.Restock(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidOrder)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectOrder).WillReturnRows(
		sqlmock.NewRows(orderColumns).AddRow(7, "ada", "SKU-1", 2, time.Now()))
	mock.ExpectCommit()

	order, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "ada", order.Customer)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectOrder).WillReturnRows(sqlmock.NewRows(orderColumns))
	mock.ExpectRollback()

	_, err := svc.Get(context.Background(), 7)
	require.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, svckit.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	svc, mock := newTestService(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ("o".customer = 'ada') AND ("o"."id" > '5') ORDER BY "o"."id" ASC LIMIT 3`)).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(6, "ada", "SKU-1", 1, now).
			AddRow(9, "ada", "SKU-2", 3, now).
			AddRow(12, "ada", "SKU-1", 2, now))
	mock.ExpectCommit()

	page, err := svc.List(context.Background(), "ada", svckit.EncodeCursor("5"), 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(9), page.Items[1].ID)

	next, err := svckit.DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "9", next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListInvalidCursor(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.List(context.Background(), "", "garbage", 0)
	require.ErrorIs(t, err, ErrInvalidCursor)
	assert.Equal(t, http.StatusBadRequest, svckit.ResponseFor(err).StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectOrder).WillReturnRows(
		sqlmock.NewRows(orderColumns).AddRow(7, "ada", "SKU-1", 2, time.Now()))
	mock.ExpectExec(returnStock).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteOrder).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.Cancel(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want OrderError
	}{
		{"not found", &svckit.Error{Code: svckit.CodeNotFound}, ErrOrderNotFound},
		{"duplicate", &svckit.Error{Code: svckit.CodeDuplicate}, ErrDuplicateOrder},
		{"cursor", &svckit.Error{Code: svckit.CodeInvalidCursor}, ErrInvalidCursor},
		{"timeout", &svckit.Error{Code: svckit.CodeTimeout}, ErrUnavailable},
		{"connection", &svckit.Error{Code: svckit.CodeConnectionFailed}, ErrUnavailable},
		{"other", errors.New("boom"), ErrStorage},
		{"variant", ErrInsufficientStock, ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got OrderError
			require.ErrorAs(t, classify(tt.err), &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

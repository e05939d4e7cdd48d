package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllProducts(t *testing.T) {
	router, _, mock := newTestServer(t)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, name, slug, price, created_at FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "price", "created_at"}).
			AddRow(int64(1), "Coffee Beans", "coffee-beans", "12.50", created).
			AddRow(int64(2), "Filter Paper", "filter-paper", "2.00", created))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "coffee-beans")
	assert.Contains(t, w.Body.String(), "Filter Paper")
}

func TestGetProductNotFound(t *testing.T) {
	router, _, mock := newTestServer(t)

	mock.ExpectQuery("SELECT id, name, slug, price, created_at FROM products WHERE").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "price", "created_at"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/404", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateProductAsAdmin(t *testing.T) {
	router, _, mock := newTestServer(t)

	mock.ExpectQuery("SELECT is_admin FROM users").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(true))
	mock.ExpectExec("INSERT INTO products").
		WithArgs("Coffee Beans", "coffee-beans", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(10, 1))

	body := `{"name": "Coffee Beans", "price": "12.50"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, 1))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "coffee-beans")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductForbiddenForNonAdmins(t *testing.T) {
	router, _, mock := newTestServer(t)

	mock.ExpectQuery("SELECT is_admin FROM users").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(false))

	body := `{"name": "Coffee Beans", "price": "12.50"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, 7))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateProductRejectsNonPositivePrice(t *testing.T) {
	router, _, mock := newTestServer(t)

	mock.ExpectQuery("SELECT is_admin FROM users").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(true))

	body := `{"name": "Coffee Beans", "price": "-1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, 1))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProductPartialFields(t *testing.T) {
	router, _, mock := newTestServer(t)

	mock.ExpectQuery("SELECT is_admin FROM users").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(true))
	mock.ExpectExec("UPDATE products SET price").
		WithArgs(sqlmock.AnyArg(), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"price": "15.00"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/products/10", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerFor(t, 1))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProductNotFound(t *testing.T) {
	router, _, mock := newTestServer(t)

	mock.ExpectQuery("SELECT is_admin FROM users").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(true))
	mock.ExpectExec("DELETE FROM products").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/products/99", nil)
	req.Header.Set("Authorization", bearerFor(t, 1))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

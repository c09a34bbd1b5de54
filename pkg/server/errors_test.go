package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorCarriesRequestID(t *testing.T) {
	err := NewError(ErrorTypeValidation, "bad input", "name missing")
	assert.NotEmpty(t, err.RequestID)
	assert.NotZero(t, err.Timestamp)
	assert.Equal(t, "validation: bad input (name missing)", err.Error())

	// IDs are unique per error.
	other := NewError(ErrorTypeValidation, "bad input", "")
	assert.NotEqual(t, err.RequestID, other.RequestID)
	assert.Equal(t, "validation: bad input", other.Error())
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeDatabase, "x"))

	wrapped := Wrap(errors.New("connection refused"), ErrorTypeDatabase, "query failed")
	assert.Equal(t, ErrorTypeDatabase, wrapped.Type)
	assert.Equal(t, "connection refused", wrapped.Details)
	assert.True(t, IsType(wrapped, ErrorTypeDatabase))
	assert.False(t, IsType(wrapped, ErrorTypeNetwork))
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		errType ErrorType
		status  int
	}{
		{ErrorTypeValidation, http.StatusBadRequest},
		{ErrorTypeAuth, http.StatusUnauthorized},
		{ErrorTypeNotFound, http.StatusNotFound},
		{ErrorTypeConflict, http.StatusConflict},
		{ErrorTypeDatabase, http.StatusInternalServerError},
		{ErrorTypeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, NewError(tt.errType, "boom", ""))

		assert.Equal(t, tt.status, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var decoded ServerError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
		assert.Equal(t, tt.errType, decoded.Type)
		assert.Equal(t, "boom", decoded.Message)
		assert.NotEmpty(t, decoded.RequestID)
	}
}

func TestCORS(t *testing.T) {
	wrapped := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/specs", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight never reaches the wrapped handler.
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/specs", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

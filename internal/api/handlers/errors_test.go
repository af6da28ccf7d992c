package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/items/summary", nil)

	respondError(c, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondError_Statuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"item_name": "required"}}, http.StatusUnprocessableEntity},
		{"not computed", fmt.Errorf("forecast: %w", domain.ErrArtifactNotFound), http.StatusNotFound},
		{"unknown item", fmt.Errorf("append: %w", domain.ErrItemNotFound), http.StatusConflict},
		{"invalid input", fmt.Errorf("%w: bad date", domain.ErrInvalidInput), http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := respond(t, tt.err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRespondError_InternalErrorsStayPrivate(t *testing.T) {
	code, body := respond(t, errors.New(`pq: password authentication failed for user "grocer" at /var/lib/grocery/stock.db`))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, map[string]interface{}{"error": "internal error"}, body)
}

func TestRespondError_NotComputedStatus(t *testing.T) {
	code, body := respond(t, domain.ErrArtifactNotFound)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, StatusNotComputed, body["status"])
}

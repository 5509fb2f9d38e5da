package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/tradedesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feeLine struct {
	PricingMode  string          `json:"pricing_mode" binding:"omitempty,pricing_mode"`
	ShippingCost decimal.Decimal `json:"shipping_cost" binding:"decimal_gte0"`
}

type feeRequest struct {
	Type      string          `json:"type" binding:"required,oneof=sale purchase"`
	OtherFee  decimal.Decimal `json:"other_fee" binding:"decimal_gte0"`
	OrderDate string          `json:"order_date" binding:"omitempty,datetime=2006-01-02"`
	Lines     []feeLine       `json:"lines" binding:"dive"`
}

func bindFeeRequest(t *testing.T, body string) ([]dto.ValidationDetail, error) {
	t.Helper()
	SetupValidator()
	gin.SetMode(gin.TestMode)

	var (
		details []dto.ValidationDetail
		bindErr error
	)
	router := gin.New()
	router.POST("/fees", func(c *gin.Context) {
		var req feeRequest
		bindErr = c.ShouldBindJSON(&req)
		details = ValidationDetails(bindErr)
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodPost, "/fees", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)
	return details, bindErr
}

func TestSetupValidator_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		SetupValidator()
		SetupValidator()
	})
}

func TestValidation_AcceptsValidRequest(t *testing.T) {
	details, err := bindFeeRequest(t, `{"type":"sale","other_fee":"12.50","order_date":"2024-03-01",
		"lines":[{"pricing_mode":"weight","shipping_cost":"0"},{"shipping_cost":3}]}`)
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestValidation_ReportsFieldPaths(t *testing.T) {
	details, err := bindFeeRequest(t, `{"other_fee":"-1","order_date":"01/03/2024",
		"lines":[{"pricing_mode":"pallet","shipping_cost":"-2"}]}`)
	require.Error(t, err)

	byField := make(map[string]string, len(details))
	for _, d := range details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", byField["type"])
	assert.Equal(t, "Must not be negative", byField["other_fee"])
	assert.Equal(t, "Must be a date like 2024-03-01", byField["order_date"])
	assert.Equal(t, "Must be one of: container weight", byField["lines[0].pricing_mode"])
	assert.Equal(t, "Must not be negative", byField["lines[0].shipping_cost"])
}

func TestValidationDetails_NonValidationError(t *testing.T) {
	details, err := bindFeeRequest(t, `{"type":`)
	require.Error(t, err)
	assert.Nil(t, details)
}

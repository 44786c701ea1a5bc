package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

const (
	xenditBaseURL = "https://api.xendit.co"
	apiVersion    = "2024-11-11"
)

type xenditGateway struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewXenditGateway(apiKey string) Gateway {
	if apiKey == "" {
		logger.L().Warn("Xendit API key is empty")
	}

	return &xenditGateway{
		apiKey:  apiKey,
		baseURL: xenditBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type xenditPaymentResponse struct {
	PaymentRequestID string `json:"payment_request_id"`
	ReferenceID      string `json:"reference_id"`
	Status           string `json:"status"`
	FailureCode      string `json:"failure_code"`
	RequestAmount    int64  `json:"request_amount"`
}

type xenditRefundResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	FailureCode string `json:"failure_code"`
}

type xenditErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// do sends body to path. A 4xx answer is a business rejection and is
// returned as apiErr; 5xx and transport failures are errors.
func (x *xenditGateway) do(ctx context.Context, path string, body any, out any) (apiErr *xenditErrorResponse, err error) {
	log := logger.FromCtx(ctx).With(zap.String("gateway", "xendit"), zap.String("path", path))

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return nil, err
	}
	req.SetBasicAuth(x.apiKey, "")
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("api-version", apiVersion)

	resp, err := x.httpClient.Do(req)
	if err != nil {
		log.Error("Xendit request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, fmt.Errorf("failed to read xendit response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		log.Error("Xendit returned server error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, fmt.Errorf("xendit error: %s", string(bodyBytes))
	case resp.StatusCode >= 400:
		var e xenditErrorResponse
		if err := json.Unmarshal(bodyBytes, &e); err != nil || e.ErrorCode == "" {
			e = xenditErrorResponse{ErrorCode: StatusFailed, Message: strings.TrimSpace(string(bodyBytes))}
		}
		log.Warn("Xendit rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("error_code", e.ErrorCode),
		)
		return &e, nil
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		log.Error("Failed decoding Xendit response", zap.Error(err))
		return nil, err
	}
	return nil, nil
}

func (x *xenditGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	method := req.Method
	if method == "" || method == MethodCard {
		method = "CARDS"
	}

	body := map[string]any{
		"reference_id":   req.OrderRef,
		"type":           "PAY",
		"country":        "ID",
		"currency":       "IDR",
		"request_amount": req.Amount,
		"capture_method": "AUTOMATIC",
		"channel_code":   method,
		"metadata": map[string]any{
			"user_id": req.UserID,
		},
	}

	var res xenditPaymentResponse
	apiErr, err := x.do(ctx, "/v3/payment_requests", body, &res)
	if err != nil {
		return nil, err
	}
	if apiErr != nil {
		return &AuthorizeResult{Status: apiErr.ErrorCode, Message: apiErr.Message}, nil
	}

	switch res.Status {
	case "SUCCEEDED", "AUTHORIZED":
		logger.FromCtx(ctx).Info("Xendit payment authorized",
			zap.String("payment_id", res.PaymentRequestID),
			zap.String("reference_id", res.ReferenceID),
		)
		return &AuthorizeResult{
			Success:       true,
			TransactionID: res.PaymentRequestID,
			Status:        StatusSucceeded,
			Message:       "Payment authorized",
		}, nil
	default:
		status := res.FailureCode
		if status == "" {
			status = res.Status
		}
		return &AuthorizeResult{
			TransactionID: res.PaymentRequestID,
			Status:        status,
			Message:       fmt.Sprintf("payment request %s", strings.ToLower(res.Status)),
		}, nil
	}
}

func (x *xenditGateway) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, ErrMissingTxID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	body := map[string]any{
		"payment_request_id": transactionID,
		"amount":             amount,
		"currency":           "IDR",
		"reason":             "REQUESTED_BY_CUSTOMER",
	}

	var res xenditRefundResponse
	apiErr, err := x.do(ctx, "/refunds", body, &res)
	if err != nil {
		return nil, err
	}
	if apiErr != nil {
		return &RefundResult{Status: apiErr.ErrorCode, Message: apiErr.Message}, nil
	}

	if res.Status == "FAILED" {
		status := res.FailureCode
		if status == "" {
			status = StatusFailed
		}
		return &RefundResult{
			TransactionID: res.ID,
			Status:        status,
			Message:       "refund failed",
		}, nil
	}

	logger.FromCtx(ctx).Info("Xendit refund created",
		zap.String("refund_id", res.ID),
		zap.String("status", res.Status),
	)
	return &RefundResult{
		Success:       true,
		TransactionID: res.ID,
		Status:        StatusRefunded,
		Message:       "Refund processed",
	}, nil
}

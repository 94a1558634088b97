package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PayPal REST (v2 Checkout / Payments) クライアント。
// SDKは使わず必要なエンドポイントだけ叩く。
type PayPalGateway struct {
	apiBase      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalGateway(apiBase string, clientID string, clientSecret string) *PayPalGateway {
	return &PayPalGateway{
		apiBase:      strings.TrimRight(apiBase, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// client_credentialsでaccess tokenを取得（期限内はキャッシュ）
func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.apiBase+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.clientID, g.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token: status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	g.accessToken = body.AccessToken
	//期限ギリギリは使わない
	g.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)

	return g.accessToken, nil
}

func (g *PayPalGateway) doJSON(ctx context.Context, method string, path string, in interface{}, out interface{}) (int, error) {
	tok, err := g.token(ctx)
	if err != nil {
		return 0, err
	}

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.apiBase+path, reqBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, err
		}
	}

	return resp.StatusCode, nil
}

// 金額は最小通貨単位で受けてPayPalの"10.00"形式へ
func formatAmount(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (g *PayPalGateway) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	body := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": in.Reference,
				"description":  in.Description,
				"amount": map[string]string{
					"currency_code": in.Currency,
					"value":         formatAmount(in.Amount),
				},
			},
		},
		"application_context": map[string]string{
			"return_url": in.ReturnURL,
			"cancel_url": in.CancelURL,
		},
	}

	var out paypalOrderResponse
	status, err := g.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", body, &out)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return CreateOrderResult{}, fmt.Errorf("paypal create order: status %d", status)
	}

	res := CreateOrderResult{ProviderOrderID: out.ID, Status: out.Status}
	for _, l := range out.Links {
		if l.Rel == "approve" {
			res.ApprovalURL = l.Href
		}
	}
	return res, nil
}

// Captureは先にプロバイダ側の現在状態を照会する。
// 既にCOMPLETEDならそのまま返す＝再試行・二重呼び出しに安全。
func (g *PayPalGateway) Capture(ctx context.Context, providerOrderID string) (CaptureResult, error) {
	var current paypalOrderResponse
	status, err := g.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+providerOrderID, nil, &current)
	if err != nil {
		return CaptureResult{}, err
	}
	if status != http.StatusOK {
		return CaptureResult{}, fmt.Errorf("paypal get order: status %d", status)
	}

	if current.Status == StatusCompleted {
		return toCaptureResult(current), nil
	}

	var out paypalOrderResponse
	status, err = g.doJSON(ctx, http.MethodPost, "/v2/checkout/orders/"+providerOrderID+"/capture",
		map[string]interface{}{}, &out)
	if err != nil {
		return CaptureResult{}, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return CaptureResult{}, fmt.Errorf("paypal capture: status %d", status)
	}

	return toCaptureResult(out), nil
}

func toCaptureResult(o paypalOrderResponse) CaptureResult {
	res := CaptureResult{ProviderOrderID: o.ID, Status: o.Status}
	for _, pu := range o.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			res.CaptureID = c.ID
		}
	}
	return res
}

func (g *PayPalGateway) Refund(ctx context.Context, captureID string, amount int64, currency string, reason string) (RefundResult, error) {
	body := map[string]interface{}{
		"note_to_payer": reason,
	}
	if amount > 0 {
		body["amount"] = map[string]string{
			"currency_code": currency,
			"value":         formatAmount(amount),
		}
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	status, err := g.doJSON(ctx, http.MethodPost, "/v2/payments/captures/"+captureID+"/refund", body, &out)
	if err != nil {
		return RefundResult{}, err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return RefundResult{}, fmt.Errorf("paypal refund: status %d", status)
	}

	return RefundResult{RefundID: out.ID, Status: out.Status}, nil
}

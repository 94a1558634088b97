package payment

import (
	"context"
	"errors"
)

// 決済プロバイダ側のステータス語彙
const (
	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusRefunded  = "REFUNDED"
	StatusFailed    = "FAILED"
)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

type CreateOrderInput struct {
	//最小通貨単位
	Amount      int64
	Currency    string
	Reference   string //自サービス側の注文番号
	ReturnURL   string
	CancelURL   string
	Description string
}

type CreateOrderResult struct {
	ProviderOrderID string
	ApprovalURL     string
	Status          string
}

type CaptureResult struct {
	ProviderOrderID string
	CaptureID       string
	Status          string
}

type RefundResult struct {
	RefundID string
	Status   string
}

// 決済プロバイダの抽象。注文ステートマシンはこの結果だけを見て遷移する。
// Captureはプロバイダ側の状態を再照会してから動くので再試行して安全。
type Gateway interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error)
	Capture(ctx context.Context, providerOrderID string) (CaptureResult, error)
	Refund(ctx context.Context, captureID string, amount int64, currency string, reason string) (RefundResult, error)
}

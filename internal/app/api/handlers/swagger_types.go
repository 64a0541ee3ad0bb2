package handlers

import (
	"github.com/fatflowers/entitlements/pkg/response"
	"github.com/fatflowers/entitlements/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespEntitlement struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    EntitlementResponse      `json:"data"`
}

type RespPurchase struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    PurchaseResponse         `json:"data"`
}

type RespPrices struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.PriceQuote       `json:"data"`
}

type RespPrice struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    types.PriceQuote         `json:"data"`
}

type RespAllowance struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    AllowanceResponse        `json:"data"`
}

type RespSession struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SessionResponse          `json:"data"`
}

// RespListLedgerTransaction wraps ListLedgerTransactionResponse in the standard envelope.
type RespListLedgerTransaction struct {
	Code    response.APIResponseCode      `json:"code"`
	Message string                        `json:"message"`
	Data    ListLedgerTransactionResponse `json:"data"`
}

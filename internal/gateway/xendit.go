package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/farellandr/payrecon/internal/payment"
	"github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

type XenditConfig struct {
	Currency           string
	SuccessRedirectURL string
	FailureRedirectURL string
}

// Xendit opens hosted invoices. The invoice external id is the transaction id, so
// invoice callbacks reconcile through the same key as every other gateway.
type Xendit struct {
	client *xendit.APIClient
	cfg    XenditConfig
}

func NewXendit(client *xendit.APIClient, cfg XenditConfig) *Xendit {
	if cfg.Currency == "" {
		cfg.Currency = "IDR"
	}
	return &Xendit{client: client, cfg: cfg}
}

func (x *Xendit) CreatePayment(ctx context.Context, req payment.GatewayRequest) (*payment.GatewayResponse, error) {
	inv, _, xerr := x.client.InvoiceApi.CreateInvoice(ctx).
		CreateInvoiceRequest(x.invoiceRequest(req)).
		Execute()
	if xerr != nil {
		return nil, fmt.Errorf("create invoice: %s", xerr.Error())
	}
	if inv == nil || inv.InvoiceUrl == "" {
		return nil, fmt.Errorf("create invoice: empty invoice url")
	}
	return &payment.GatewayResponse{GatewayURL: inv.InvoiceUrl}, nil
}

func (x *Xendit) invoiceRequest(req payment.GatewayRequest) invoice.CreateInvoiceRequest {
	r := invoice.NewCreateInvoiceRequest(req.TransactionID, req.Amount.InexactFloat64())
	r.SetCurrency(x.cfg.Currency)
	r.SetDescription(fmt.Sprintf("%s %s", purposeTitle(string(req.Purpose)), req.TransactionID))
	if req.User != nil && strings.TrimSpace(req.User.Email) != "" {
		r.SetPayerEmail(req.User.Email)
	}
	if x.cfg.SuccessRedirectURL != "" {
		r.SetSuccessRedirectUrl(x.cfg.SuccessRedirectURL)
	}
	if x.cfg.FailureRedirectURL != "" {
		r.SetFailureRedirectUrl(x.cfg.FailureRedirectURL)
	}
	return *r
}

// XenditOutcome maps an invoice callback status onto a reconciliation outcome.
func XenditOutcome(status string) payment.Outcome {
	switch strings.ToUpper(status) {
	case "PAID", "SETTLED":
		return payment.OutcomeIPNValid
	case "EXPIRED":
		return payment.OutcomeCancel
	}
	return payment.OutcomeIPNInvalid
}

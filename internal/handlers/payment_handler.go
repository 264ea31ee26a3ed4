package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/farellandr/payrecon/internal/helpers"
	"github.com/farellandr/payrecon/internal/logger"
	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/payment"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// PaymentService is the part of the payment engine the HTTP layer drives.
type PaymentService interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (string, error)
	Reconcile(ctx context.Context, transactionID string, outcome payment.Outcome) error
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	GetPaymentByID(ctx context.Context, id, requesterID uuid.UUID, requesterRole models.Role) (*models.Payment, error)
	GetReceipt(ctx context.Context, id, requesterID uuid.UUID, requesterRole models.Role) (*models.Payment, error)
	ListForUser(ctx context.Context, userID uuid.UUID, q payment.ListQuery) (*payment.PaymentPage, error)
	ListAll(ctx context.Context, requesterRole models.Role, q payment.ListQuery) (*payment.PaymentPage, error)
}

type PaymentHandler struct {
	svc      PaymentService
	receipts *helpers.ReceiptSigner
	logger   *zap.Logger
}

func NewPaymentHandler(svc PaymentService, receipts *helpers.ReceiptSigner, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, receipts: receipts, logger: log}
}

type InitiatePaymentRequest struct {
	Method  string          `json:"method" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Purpose string          `json:"purpose" binding:"required"`
}

func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, _, ok := helpers.RequesterFromContext(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	gatewayURL, err := h.svc.Initiate(c.Request.Context(), payment.InitiateRequest{
		UserID:  userID,
		Method:  models.PaymentMethod(strings.ToUpper(req.Method)),
		Amount:  req.Amount,
		Purpose: models.PaymentPurpose(strings.ToUpper(req.Purpose)),
	})
	if err != nil {
		logger.FromContext(c, h.logger).Warn("Payment initiation failed", zap.String("user_id", userID.String()), zap.Error(err))
		helpers.RespondWithServiceError(c, err)
		return
	}

	helpers.RespondWithSuccess(c, http.StatusOK, "Payment initiated successfully", gin.H{
		"gatewayUrl": gatewayURL,
	})
}

func (h *PaymentHandler) GetInvoice(c *gin.Context) {
	id, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}
	requesterID, role, ok := helpers.RequesterFromContext(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	p, err := h.svc.GetPaymentByID(c.Request.Context(), id, requesterID, role)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	helpers.RespondWithSuccess(c, http.StatusOK, "Invoice retrieved successfully", p)
}

// InvoiceQR renders the signed receipt of a paid invoice as a PNG QR code.
func (h *PaymentHandler) InvoiceQR(c *gin.Context) {
	id, err := helpers.ParseUUIDParam(c, "id")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}
	requesterID, role, ok := helpers.RequesterFromContext(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	p, err := h.svc.GetReceipt(c.Request.Context(), id, requesterID, role)
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	png, err := qrcode.Encode(h.receipts.Sign(p), qrcode.Medium, 256)
	if err != nil {
		logger.FromContext(c, h.logger).Error("Failed to encode receipt QR", zap.String("payment_id", id.String()), zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate receipt QR code.")
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

type VerifyReceiptRequest struct {
	Receipt string `json:"receipt" binding:"required"`
}

// VerifyReceipt checks a scanned invoice QR payload against the signing key.
func (h *PaymentHandler) VerifyReceipt(c *gin.Context) {
	var req VerifyReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Receipt is required.")
		return
	}

	if !h.receipts.Verify(req.Receipt) {
		helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Receipt signature is invalid.")
		return
	}

	fields := strings.Split(req.Receipt, "|")
	helpers.RespondWithSuccess(c, http.StatusOK, "Receipt is valid", gin.H{
		"paymentId":     fields[0],
		"transactionId": fields[1],
		"amount":        fields[2],
		"status":        fields[3],
	})
}

func (h *PaymentHandler) MyPayments(c *gin.Context) {
	userID, _, ok := helpers.RequesterFromContext(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	page, err := h.svc.ListForUser(c.Request.Context(), userID, listQuery(c))
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	helpers.RespondWithPage(c, http.StatusOK, "Payments retrieved successfully", page.Data, page.Meta)
}

func (h *PaymentHandler) AllPayments(c *gin.Context) {
	_, role, ok := helpers.RequesterFromContext(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	page, err := h.svc.ListAll(c.Request.Context(), role, listQuery(c))
	if err != nil {
		helpers.RespondWithServiceError(c, err)
		return
	}

	helpers.RespondWithPage(c, http.StatusOK, "Payments retrieved successfully", page.Data, page.Meta)
}

func listQuery(c *gin.Context) payment.ListQuery {
	return payment.ListQuery{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   helpers.QueryInt(c, "page", 1),
		Limit:  helpers.QueryInt(c, "limit", 10),
	}
}

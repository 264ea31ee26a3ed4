package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/farellandr/payrecon/internal/gateway"
	"github.com/farellandr/payrecon/internal/helpers"
	"github.com/farellandr/payrecon/internal/logger"
	"github.com/farellandr/payrecon/internal/models"
	"github.com/farellandr/payrecon/internal/payment"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

type CallbackConfig struct {
	FrontendURL string
	// StorePassword enables verify_sign checking of SSLCommerz IPNs when set.
	StorePassword string
}

// CallbackHandler receives gateway browser redirects and server-to-server notifications.
// Only the success redirect reports errors; the other routes always answer so the
// gateway does not retry on our failures.
type CallbackHandler struct {
	svc    PaymentService
	cfg    CallbackConfig
	logger *zap.Logger
}

func NewCallbackHandler(svc PaymentService, cfg CallbackConfig, log *zap.Logger) *CallbackHandler {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &CallbackHandler{svc: svc, cfg: cfg, logger: log}
}

type SSLCallback struct {
	TranID string `form:"tran_id" json:"tran_id"`
	Amount string `form:"amount" json:"amount"`
	Status string `form:"status" json:"status"`
	ValID  string `form:"val_id" json:"val_id"`
}

func (h *CallbackHandler) SSLSuccess(c *gin.Context) {
	var cb SSLCallback
	if err := c.ShouldBind(&cb); err != nil || cb.TranID == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Transaction ID is required.")
		return
	}

	ctx := c.Request.Context()
	if err := h.svc.Reconcile(ctx, cb.TranID, payment.OutcomeSuccess); err != nil {
		logger.FromContext(c, h.logger).Warn("Success callback rejected", zap.String("transaction_id", cb.TranID), zap.Error(err))
		helpers.RespondWithServiceError(c, err)
		return
	}

	message := "Payment successful"
	if p, err := h.svc.FindByTransactionID(ctx, cb.TranID); err == nil {
		message = successMessage(p.Purpose)
	} else {
		logger.FromContext(c, h.logger).Warn("Payment not reloaded after success", zap.String("transaction_id", cb.TranID), zap.Error(err))
	}

	q := url.Values{}
	q.Set("tranId", cb.TranID)
	q.Set("amount", cb.Amount)
	q.Set("message", message)
	c.Redirect(http.StatusSeeOther, h.cfg.FrontendURL+"/payment-success.html?"+q.Encode())
}

func successMessage(purpose models.PaymentPurpose) string {
	switch {
	case purpose == models.PurposeMembershipFee:
		return "Payment successful & membership activated"
	case purpose.IsDonation():
		return "Payment successful & fund updated"
	}
	return "Payment successful"
}

func (h *CallbackHandler) SSLFail(c *gin.Context) {
	h.reconcileAndRedirect(c, payment.OutcomeFail, "/payment-fail.html")
}

func (h *CallbackHandler) SSLCancel(c *gin.Context) {
	h.reconcileAndRedirect(c, payment.OutcomeCancel, "/payment-cancel.html")
}

func (h *CallbackHandler) reconcileAndRedirect(c *gin.Context, outcome payment.Outcome, page string) {
	var cb SSLCallback
	_ = c.ShouldBind(&cb)

	if err := h.svc.Reconcile(c.Request.Context(), cb.TranID, outcome); err != nil {
		logger.FromContext(c, h.logger).Warn("Callback not applied",
			zap.String("transaction_id", cb.TranID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}

	target := h.cfg.FrontendURL + page
	if cb.TranID != "" {
		target += "?" + url.Values{"tranId": {cb.TranID}}.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *CallbackHandler) SSLIPN(c *gin.Context) {
	values := ipnValues(c)
	transactionID := values.Get("tran_id")

	outcome := payment.OutcomeIPNInvalid
	if strings.EqualFold(values.Get("status"), "VALID") {
		outcome = payment.OutcomeIPNValid
	}
	if outcome == payment.OutcomeIPNValid && h.cfg.StorePassword != "" &&
		!helpers.VerifySSLCommerzSign(values, h.cfg.StorePassword) {
		logger.FromContext(c, h.logger).Warn("IPN signature mismatch", zap.String("transaction_id", transactionID))
		outcome = payment.OutcomeIPNInvalid
	}

	h.reconcileNotification(c, transactionID, outcome)
}

// ipnValues collects every notification field, whether the gateway posted a form or
// a JSON object, so the signed field set can be rebuilt from either body.
func ipnValues(c *gin.Context) url.Values {
	if c.ContentType() == binding.MIMEJSON {
		var raw map[string]any
		values := url.Values{}
		if err := c.ShouldBindJSON(&raw); err != nil {
			return values
		}
		for k, v := range raw {
			if v != nil {
				values.Set(k, fmt.Sprint(v))
			}
		}
		return values
	}

	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return url.Values{}
	}
	return c.Request.PostForm
}

type XenditCallback struct {
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

func (h *CallbackHandler) XenditInvoice(c *gin.Context) {
	var cb XenditCallback
	_ = c.ShouldBindJSON(&cb)

	h.reconcileNotification(c, cb.ExternalID, gateway.XenditOutcome(cb.Status))
}

func (h *CallbackHandler) reconcileNotification(c *gin.Context, transactionID string, outcome payment.Outcome) {
	log := logger.FromContext(c, h.logger)
	err := h.svc.Reconcile(c.Request.Context(), transactionID, outcome)
	switch {
	case err == nil:
	case errors.Is(err, payment.ErrInvalidCallback):
		log.Warn("Notification without transaction ID", zap.String("outcome", string(outcome)))
	default:
		log.Error("Notification not applied",
			zap.String("transaction_id", transactionID),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification received"})
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/farellandr/payrecon/internal/payment"
)

const sslcommerzSessionPath = "/gwprocess/v4/api.php"

type SSLCommerzConfig struct {
	BaseURL       string
	StoreID       string
	StorePassword string
	Currency      string
	// CallbackBaseURL is this service's public URL; the gateway posts the
	// success, fail, cancel and IPN callbacks under it.
	CallbackBaseURL string
}

// SSLCommerz opens hosted checkout sessions through the SSLCommerz session API.
type SSLCommerz struct {
	cfg    SSLCommerzConfig
	client *http.Client
}

func NewSSLCommerz(cfg SSLCommerzConfig, client *http.Client) *SSLCommerz {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "BDT"
	}
	return &SSLCommerz{cfg: cfg, client: client}
}

type sslcommerzSessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

func (s *SSLCommerz) CreatePayment(ctx context.Context, req payment.GatewayRequest) (*payment.GatewayResponse, error) {
	form := s.sessionForm(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.BaseURL, "/")+sslcommerzSessionPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send session request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read session response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session request returned %d", resp.StatusCode)
	}

	var session sslcommerzSessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("parse session response: %w", err)
	}
	if !strings.EqualFold(session.Status, "SUCCESS") || session.GatewayPageURL == "" {
		return nil, fmt.Errorf("session rejected: %s", session.FailedReason)
	}

	return &payment.GatewayResponse{GatewayURL: session.GatewayPageURL}, nil
}

func (s *SSLCommerz) sessionForm(req payment.GatewayRequest) url.Values {
	callback := strings.TrimRight(s.cfg.CallbackBaseURL, "/") + "/v1/payments/ssl"

	form := url.Values{}
	form.Set("store_id", s.cfg.StoreID)
	form.Set("store_passwd", s.cfg.StorePassword)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", s.cfg.Currency)
	form.Set("tran_id", req.TransactionID)
	form.Set("success_url", callback+"/success")
	form.Set("fail_url", callback+"/fail")
	form.Set("cancel_url", callback+"/cancel")
	form.Set("ipn_url", callback+"/ipn")
	form.Set("shipping_method", "NO")
	form.Set("product_name", purposeTitle(string(req.Purpose)))
	form.Set("product_category", "Donation")
	form.Set("product_profile", "non-physical-goods")
	form.Set("value_a", req.PaymentID.String())
	form.Set("value_b", req.UserID.String())
	form.Set("value_c", string(req.Purpose))

	name, email, phone, address, city := "Customer", "", "", "N/A", "N/A"
	if u := req.User; u != nil {
		name = fallback(u.Name, name)
		email, phone = u.Email, u.Phone
		address = fallback(u.Address, address)
		city = fallback(u.CityState, city)
	}
	form.Set("cus_name", name)
	form.Set("cus_email", email)
	form.Set("cus_phone", phone)
	form.Set("cus_add1", address)
	form.Set("cus_city", city)
	form.Set("cus_country", "Bangladesh")
	return form
}

func purposeTitle(purpose string) string {
	words := strings.Split(strings.ToLower(purpose), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

package helpers

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/farellandr/payrecon/internal/models"
)

// VerifySSLCommerzSign checks an IPN's verify_sign. The signed fields are the ones listed
// in verify_key plus store_passwd, which enters as its own md5 hex digest.
func VerifySSLCommerzSign(values url.Values, storePassword string) bool {
	sign := values.Get("verify_sign")
	keys := values.Get("verify_key")
	if sign == "" || keys == "" {
		return false
	}

	pwd := md5.Sum([]byte(storePassword))
	fields := map[string]string{"store_passwd": hex.EncodeToString(pwd[:])}
	for _, k := range strings.Split(keys, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			fields[k] = values.Get(k)
		}
	}

	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+"="+fields[k])
	}
	sum := md5.Sum([]byte(strings.Join(parts, "&")))
	return hmac.Equal([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(sign)))
}

func NewReceiptSigner(secretKey string) *ReceiptSigner {
	return &ReceiptSigner{SecretKey: secretKey}
}

// ReceiptSigner produces the tamper-evident string encoded in an invoice QR.
type ReceiptSigner struct {
	SecretKey string
}

func (r *ReceiptSigner) Sign(p *models.Payment) string {
	paidAt := ""
	if p.PaidAt != nil {
		paidAt = p.PaidAt.UTC().Format(time.RFC3339)
	}
	payload := strings.Join([]string{
		p.ID.String(),
		p.TransactionID,
		p.Amount.StringFixed(2),
		string(p.Status),
		paidAt,
	}, "|")

	mac := hmac.New(sha256.New, []byte(r.SecretKey))
	mac.Write([]byte(payload))
	return fmt.Sprintf("%s|%s", payload, hex.EncodeToString(mac.Sum(nil)))
}

// Verify reports whether receipt was produced by Sign with the same key.
func (r *ReceiptSigner) Verify(receipt string) bool {
	i := strings.LastIndex(receipt, "|")
	if i < 0 {
		return false
	}
	payload, sig := receipt[:i], receipt[i+1:]

	mac := hmac.New(sha256.New, []byte(r.SecretKey))
	mac.Write([]byte(payload))
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(sig))
}

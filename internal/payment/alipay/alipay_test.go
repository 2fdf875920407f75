package alipay

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dujiao-next/mall/internal/constants"
	"github.com/dujiao-next/mall/internal/payment"
)

func TestValidateConfigDefaults(t *testing.T) {
	cfg := Config{
		AppID:           "2026000000000000",
		PrivateKey:      "k",
		AlipayPublicKey: "p",
		SignType:        "rsa2",
	}
	cfg.normalize()
	if err := ValidateConfig(&cfg); err != nil {
		t.Fatalf("validate config failed: %v", err)
	}
	if cfg.SignType != "RSA2" {
		t.Fatalf("expected sign_type RSA2, got %s", cfg.SignType)
	}
	if cfg.GatewayURL != defaultGatewayURL {
		t.Fatalf("expected default gateway, got %s", cfg.GatewayURL)
	}
	if cfg.Interaction != constants.PaymentInteractionPage {
		t.Fatalf("expected page interaction, got %s", cfg.Interaction)
	}
}

func TestValidateConfigRejectsUnknownInteraction(t *testing.T) {
	cfg := buildTestConfig("https://openapi.alipay.com/gateway.do")
	cfg.Interaction = "app"
	if _, err := New(cfg, nil); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestInitiatePageReturnsRedirect(t *testing.T) {
	gw := mustGateway(t, buildTestConfig("https://openapi.alipay.com/gateway.do"))
	result, err := gw.Initiate(context.Background(), payment.InitiateInput{
		Reference: "M20260101000000123456",
		Amount:    "99.9",
		Subject:   "测试商品",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if result.TargetType != payment.TargetRedirect {
		t.Fatalf("expected redirect target, got %s", result.TargetType)
	}
	parsedURL, err := url.Parse(result.Target)
	if err != nil {
		t.Fatalf("parse pay url failed: %v", err)
	}
	if parsedURL.Query().Get("method") != "alipay.trade.page.pay" {
		t.Fatalf("unexpected method: %s", parsedURL.Query().Get("method"))
	}
	if parsedURL.Query().Get("sign") == "" {
		t.Fatalf("expected sign in pay url")
	}
	var biz map[string]interface{}
	if err := json.Unmarshal([]byte(parsedURL.Query().Get("biz_content")), &biz); err != nil {
		t.Fatalf("decode biz_content failed: %v", err)
	}
	if biz["total_amount"] != "99.90" {
		t.Fatalf("unexpected total_amount: %v", biz["total_amount"])
	}
	if biz["out_trade_no"] != "M20260101000000123456" {
		t.Fatalf("unexpected out_trade_no: %v", biz["out_trade_no"])
	}
}

func TestInitiatePrecreateReturnsQRCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form failed: %v", err)
		}
		if r.Form.Get("method") != "alipay.trade.precreate" {
			t.Errorf("expected precreate method, got %s", r.Form.Get("method"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_precreate_response": map[string]interface{}{
				"code":         "10000",
				"msg":          "Success",
				"out_trade_no": "I1_0",
				"qr_code":      "https://qr.alipay.com/abc",
			},
		})
	}))
	defer server.Close()

	cfg := buildTestConfig(server.URL)
	cfg.Interaction = constants.PaymentInteractionQR
	gw := mustGateway(t, cfg)
	result, err := gw.Initiate(context.Background(), payment.InitiateInput{Reference: "I1_0", Amount: "10.00"})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if result.TargetType != payment.TargetQRCode || result.Target != "https://qr.alipay.com/abc" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestVerifyCallbackSuccess(t *testing.T) {
	cfg := buildTestConfig("https://openapi.alipay.com/gateway.do")
	gw := mustGateway(t, cfg)
	form := signedForm(t, cfg, url.Values{
		"app_id":       {cfg.AppID},
		"notify_id":    {"notify-1"},
		"out_trade_no": {"A100"},
		"trade_no":     {"T1"},
		"trade_status": {"TRADE_SUCCESS"},
		"total_amount": {"88.00"},
		"sign_type":    {"RSA2"},
	})

	verified, err := gw.VerifyCallback(context.Background(), payment.CallbackRequest{Body: []byte(form.Encode())})
	if err != nil {
		t.Fatalf("verify callback failed: %v", err)
	}
	if verified.Reference != "A100" || verified.TransactionID != "T1" {
		t.Fatalf("unexpected verified payment: %+v", verified)
	}
	if verified.Status != constants.PaymentStatusSuccess {
		t.Fatalf("expected success status, got %s", verified.Status)
	}

	// 同一回调可重复验签
	if _, err := gw.VerifyCallback(context.Background(), payment.CallbackRequest{Form: form}); err != nil {
		t.Fatalf("second verify failed: %v", err)
	}
}

func TestVerifyCallbackInvalidSign(t *testing.T) {
	gw := mustGateway(t, buildTestConfig("https://openapi.alipay.com/gateway.do"))
	form := url.Values{
		"out_trade_no": {"A100"},
		"trade_no":     {"T1"},
		"trade_status": {"TRADE_SUCCESS"},
		"sign_type":    {"RSA2"},
		"sign":         {"invalid-sign"},
	}
	_, err := gw.VerifyCallback(context.Background(), payment.CallbackRequest{Form: form})
	if !errors.Is(err, payment.ErrSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestVerifyCallbackTamperedAmount(t *testing.T) {
	cfg := buildTestConfig("https://openapi.alipay.com/gateway.do")
	gw := mustGateway(t, cfg)
	form := signedForm(t, cfg, url.Values{
		"out_trade_no": {"A100"},
		"trade_no":     {"T1"},
		"trade_status": {"TRADE_SUCCESS"},
		"total_amount": {"88.00"},
	})
	form.Set("total_amount", "0.01")
	if _, err := gw.VerifyCallback(context.Background(), payment.CallbackRequest{Form: form}); !errors.Is(err, payment.ErrSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestInitiateRefundSubCodeMarksFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("method") != "alipay.trade.refund" {
			t.Errorf("expected refund method, got %s", r.Form.Get("method"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_refund_response": map[string]interface{}{
				"code":     "40004",
				"msg":      "Business Failed",
				"sub_code": "ACQ.TRADE_HAS_CLOSE",
			},
		})
	}))
	defer server.Close()

	gw := mustGateway(t, buildTestConfig(server.URL))
	result, err := gw.InitiateRefund(context.Background(), payment.RefundInput{
		Reference:       "A100",
		RefundReference: "R1",
		Amount:          "10.00",
	})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if result.Async {
		t.Fatalf("alipay refund should be synchronous")
	}
	if result.Status != constants.RefundStatusFailed || result.FailedCode != "ACQ.TRADE_HAS_CLOSE" {
		t.Fatalf("unexpected refund result: %+v", result)
	}
}

func TestInitiateRefundSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"alipay_trade_refund_response": map[string]interface{}{
				"code":     "10000",
				"msg":      "Success",
				"trade_no": "T1",
			},
		})
	}))
	defer server.Close()

	gw := mustGateway(t, buildTestConfig(server.URL))
	result, err := gw.InitiateRefund(context.Background(), payment.RefundInput{Reference: "A100", RefundReference: "R1", Amount: "10"})
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if result.Status != constants.RefundStatusSuccess {
		t.Fatalf("expected success, got %+v", result)
	}
}

func TestAcknowledgeBodies(t *testing.T) {
	gw := mustGateway(t, buildTestConfig("https://openapi.alipay.com/gateway.do"))
	if got := string(gw.AcknowledgeSuccess().Body); got != "success" {
		t.Fatalf("unexpected success ack: %s", got)
	}
	if got := string(gw.AcknowledgeFailure().Body); got != "fail" {
		t.Fatalf("unexpected failure ack: %s", got)
	}
	if _, err := gw.VerifyRefundCallback(context.Background(), payment.CallbackRequest{}); !errors.Is(err, payment.ErrRefundCallbackUnsupported) {
		t.Fatalf("expected unsupported refund callback, got %v", err)
	}
}

func signedForm(t *testing.T, cfg Config, form url.Values) url.Values {
	t.Helper()
	sign, err := signContent(buildSignContentFromForm(form), cfg.PrivateKey, cfg.SignType)
	if err != nil {
		t.Fatalf("sign callback content failed: %v", err)
	}
	form.Set("sign", sign)
	return form
}

func mustGateway(t *testing.T, cfg Config) *Gateway {
	t.Helper()
	gw, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new gateway failed: %v", err)
	}
	return gw
}

func buildTestConfig(gatewayURL string) Config {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	privateKeyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		panic(err)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateKeyDER})
	publicKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		panic(err)
	}
	publicKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicKeyDER})
	return Config{
		AppID:           "2026000000000000",
		PrivateKey:      string(privateKeyPEM),
		AlipayPublicKey: strings.TrimSpace(string(publicKeyPEM)),
		GatewayURL:      gatewayURL,
		NotifyURL:       "https://example.com/api/v1/payment/alipay/notify",
		ReturnURL:       "https://example.com/pay/return",
		SignType:        "RSA2",
	}
}

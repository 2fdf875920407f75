package public

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dujiao-next/mall/internal/http/handlers/shared"
	"github.com/dujiao-next/mall/internal/http/response"
	"github.com/dujiao-next/mall/internal/payment"

	"github.com/gin-gonic/gin"
)

const maxCallbackBodyBytes = 1 << 20

// PaymentNotify 支付结果回调，订单与分期共用同一对账入口
func (h *Handler) PaymentNotify(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := readCallback(c, method)
		if !ok {
			return
		}
		ack, err := h.PaymentReconciler.HandlePaymentCallback(c.Request.Context(), method, req)
		writeAck(c, method, "payment", ack, err)
	}
}

// RefundNotify 退款结果回调
func (h *Handler) RefundNotify(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := readCallback(c, method)
		if !ok {
			return
		}
		ack, err := h.PaymentReconciler.HandleRefundCallback(c.Request.Context(), method, req)
		writeAck(c, method, "refund", ack, err)
	}
}

func readCallback(c *gin.Context, method string) (payment.CallbackRequest, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBodyBytes))
	if err != nil {
		shared.RequestLog(c).Warnw("payment_callback_body_read_failed", "method", method, "error", err)
		c.String(http.StatusBadRequest, "bad request")
		return payment.CallbackRequest{}, false
	}
	req := payment.CallbackRequest{
		Header: c.Request.Header.Clone(),
		Body:   body,
	}
	if strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			shared.RequestLog(c).Warnw("payment_callback_form_invalid", "method", method, "error", err)
			c.String(http.StatusBadRequest, "bad request")
			return payment.CallbackRequest{}, false
		}
		req.Form = form
	}
	shared.RequestLog(c).Infow("payment_callback_received",
		"method", method,
		"path", c.FullPath(),
		"client_ip", c.ClientIP(),
		"content_type", c.ContentType(),
		"body_size", len(body),
	)
	return req, true
}

func writeAck(c *gin.Context, method, kind string, ack payment.Ack, err error) {
	log := shared.RequestLog(c)
	if errors.Is(err, payment.ErrGatewayNotFound) {
		log.Warnw("payment_callback_gateway_not_found", "method", method, "kind", kind)
		c.String(http.StatusNotFound, "unsupported payment method")
		return
	}
	if err != nil {
		log.Warnw("payment_callback_handle_failed", "method", method, "kind", kind, "error", err)
	}
	response.Raw(c, ack.StatusCode, ack.ContentType, ack.Body)
}

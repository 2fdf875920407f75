package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

var (
	// ErrSignatureInvalid 回调验签失败（各网关错误均包装此错误）
	ErrSignatureInvalid = errors.New("payment callback signature invalid")
	// ErrGatewayNotFound 未注册的支付方式
	ErrGatewayNotFound = errors.New("payment gateway not found")
	// ErrGatewayUnavailable 网关熔断中
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrRefundCallbackUnsupported 网关不提供退款异步通知
	ErrRefundCallbackUnsupported = errors.New("refund callback not supported by gateway")
)

// 发起支付结果类型
const (
	TargetRedirect = "redirect"
	TargetQRCode   = "qr_code"
)

// InitiateInput 发起支付输入
type InitiateInput struct {
	Reference string // 支付单号：orderNo 或 installmentNo_seq
	Amount    string // 金额，2 位小数
	Subject   string
	NotifyURL string
	ReturnURL string
	ClientIP  string
}

// InitiateResult 发起支付结果
type InitiateResult struct {
	TargetType string                 `json:"target_type"`
	Target     string                 `json:"target"`
	Raw        map[string]interface{} `json:"-"`
}

// CallbackRequest 网关回调原始请求
type CallbackRequest struct {
	Header http.Header
	Form   url.Values
	Body   []byte
}

// VerifiedPayment 验签后的支付通知
type VerifiedPayment struct {
	Reference     string
	TransactionID string
	Status        string
	Amount        string
}

// Ack 返回给网关的应答，必须原样输出
type Ack struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// RefundInput 发起退款输入
type RefundInput struct {
	Reference       string // 原支付单号
	TransactionID   string
	RefundReference string // 退款单号：refundNo 或 refundNo_seq
	Amount          string
	TotalAmount     string
	Reason          string
	NotifyURL       string
}

// RefundResult 发起退款结果
type RefundResult struct {
	Async      bool   // 是否需要等待退款通知
	Status     string // constants.RefundStatus*
	RefundID   string
	FailedCode string
}

// VerifiedRefund 验签后的退款通知
type VerifiedRefund struct {
	Reference       string
	RefundReference string
	RefundID        string
	Status          string // 网关原始退款状态
}

// Gateway 支付网关能力集，验签必须无状态，幂等由对账服务负责
type Gateway interface {
	Kind() string
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	VerifyCallback(ctx context.Context, req CallbackRequest) (*VerifiedPayment, error)
	AcknowledgeSuccess() Ack
	AcknowledgeFailure() Ack
	InitiateRefund(ctx context.Context, input RefundInput) (*RefundResult, error)
	VerifyRefundCallback(ctx context.Context, req CallbackRequest) (*VerifiedRefund, error)
}

// Registry 支付方式到网关的映射
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry 创建网关注册表
func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways))}
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		r.gateways[strings.ToLower(gw.Kind())] = gw
	}
	return r
}

// Get 根据支付方式获取网关
func (r *Registry) Get(method string) (Gateway, error) {
	if r != nil {
		if gw, ok := r.gateways[strings.ToLower(strings.TrimSpace(method))]; ok {
			return gw, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrGatewayNotFound, method)
}

// Methods 已注册的支付方式
func (r *Registry) Methods() []string {
	if r == nil {
		return nil
	}
	methods := make([]string, 0, len(r.gateways))
	for method := range r.gateways {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

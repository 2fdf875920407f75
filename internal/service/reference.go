package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dujiao-next/mall/internal/constants"
)

// Reference 支付/退款单号解析结果：no 或 no_sequence
type Reference struct {
	No       string
	Sequence int
	HasStep  bool
}

// ParseReference 解析外部单号，序号必须是无前导零的非负十进制整数
func ParseReference(raw string) (Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", ErrUnresolvedReference)
	}
	parts := strings.Split(raw, constants.PaymentReferenceSeparator)
	switch len(parts) {
	case 1:
		return Reference{No: parts[0]}, nil
	case 2:
		no, step := parts[0], parts[1]
		if no == "" || !isCanonicalSequence(step) {
			return Reference{}, fmt.Errorf("%w: malformed reference %q", ErrUnresolvedReference, raw)
		}
		seq, err := strconv.Atoi(step)
		if err != nil {
			return Reference{}, fmt.Errorf("%w: malformed reference %q", ErrUnresolvedReference, raw)
		}
		return Reference{No: no, Sequence: seq, HasStep: true}, nil
	default:
		return Reference{}, fmt.Errorf("%w: malformed reference %q", ErrUnresolvedReference, raw)
	}
}

// String 还原为外部单号
func (r Reference) String() string {
	if !r.HasStep {
		return r.No
	}
	return StepReference(r.No, r.Sequence)
}

// StepReference 分期还款/退款单号
func StepReference(no string, sequence int) string {
	return no + constants.PaymentReferenceSeparator + strconv.Itoa(sequence)
}

func isCanonicalSequence(raw string) bool {
	if raw == "" || (len(raw) > 1 && raw[0] == '0') {
		return false
	}
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNoAttempts = 5

var errNoExhausted = errors.New("generate unique number failed")

func generateOrderNo(prefix string) string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%s", prefix, now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

// generateRefundNo 退款单号不能包含引用分隔符
func generateRefundNo() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// uniqueNo 生成并检查唯一性，最多重试 maxNoAttempts 次
func uniqueNo(gen func() string, exists func(string) (bool, error)) (string, error) {
	for i := 0; i < maxNoAttempts; i++ {
		no := gen()
		used, err := exists(no)
		if err != nil {
			return "", err
		}
		if !used {
			return no, nil
		}
	}
	return "", errNoExhausted
}

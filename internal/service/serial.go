package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mall-next/internal/constants"

	"github.com/google/uuid"
)

// newSerialNo 生成 YYYYMMDDHHMMSS + 6 位随机数字的流水号
func newSerialNo(now time.Time) string {
	return now.Format("20060102150405") + randNumeric(6)
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

// generateUniqueSerial 生成未被占用的流水号，最多尝试 SerialMaxAttempts 次
func generateUniqueSerial(now time.Time, exists func(string) (bool, error)) (string, error) {
	return generateUnique(func() string { return newSerialNo(now) }, exists)
}

// generateRefundNo 生成未被占用的退款单号（uuid 去掉连字符）
func generateRefundNo(exists func(string) (bool, error)) (string, error) {
	return generateUnique(func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}, exists)
}

func generateUnique(next func() string, exists func(string) (bool, error)) (string, error) {
	for attempt := 0; attempt < constants.SerialMaxAttempts; attempt++ {
		candidate := next()
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrSerialExhausted
}

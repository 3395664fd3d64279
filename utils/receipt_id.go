// Package utils provides utility functions for the application.
package utils

import (
	"crypto/rand"
	"fmt"
)

// receiptIDCharset is a 32-symbol alphabet with ambiguous characters removed
// (no 0/O, 1/I/l) so buyers can transcribe a receipt ID from a screenshot.
const receiptIDCharset = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateReceiptID returns a random receipt identifier of ReceiptIDLength
// characters drawn from receiptIDCharset using crypto/rand.
func GenerateReceiptID() (string, error) {
	return GenerateReceiptIDN(ReceiptIDLength)
}

// GenerateReceiptIDN returns a random receipt identifier of n characters.
func GenerateReceiptIDN(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("receipt id length must be positive, got %d", n)
	}
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	chars := make([]byte, n)
	for i, b := range bytes {
		// 32-symbol charset, low 5 bits map uniformly
		chars[i] = receiptIDCharset[int(b&31)]
	}
	return string(chars), nil
}

// IsReceiptIDChar reports whether c belongs to the receipt ID alphabet.
func IsReceiptIDChar(c byte) bool {
	for i := 0; i < len(receiptIDCharset); i++ {
		if receiptIDCharset[i] == c {
			return true
		}
	}
	return false
}

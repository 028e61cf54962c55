package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// VoucherStatus represents the redemption state of a gift voucher
type VoucherStatus string

const (
	VoucherActive    VoucherStatus = "active"
	VoucherRedeemed  VoucherStatus = "redeemed"
	VoucherExpired   VoucherStatus = "expired"
	VoucherCancelled VoucherStatus = "cancelled"
)

// VoucherPaymentStatus tracks whether the voucher purchase has been paid for
type VoucherPaymentStatus string

const (
	VoucherPaymentPending   VoucherPaymentStatus = "pending"
	VoucherPaymentCompleted VoucherPaymentStatus = "completed"
)

const voucherValidity = 12 * 30 * 24 * time.Hour // 12 months

// Voucher is a purchasable gift voucher. Redemption is a one-way transition
// active → redeemed and must be exclusive: the repository enforces it with a
// conditional update so two concurrent attempts cannot both succeed.
type Voucher struct {
	ID             uuid.UUID
	Code           string
	SenderName     string
	SenderPhone    string
	RecipientName  string
	RecipientEmail string
	Amount         int64
	Branch         string
	Message        string
	Status         VoucherStatus
	PaymentStatus  VoucherPaymentStatus
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewVoucher(senderName, senderPhone, recipientName, recipientEmail string, amount int64, branch, message string) (*Voucher, error) {
	if senderName == "" {
		return nil, NewValidationError("sender name is required")
	}
	if recipientName == "" {
		return nil, NewValidationError("recipient name is required")
	}
	if amount <= 0 {
		return nil, NewValidationError("amount must be positive")
	}
	if branch == "" {
		return nil, NewValidationError("branch is required")
	}
	now := time.Now().UTC()
	return &Voucher{
		ID:             uuid.New(),
		Code:           GenerateVoucherCode(),
		SenderName:     senderName,
		SenderPhone:    senderPhone,
		RecipientName:  recipientName,
		RecipientEmail: recipientEmail,
		Amount:         amount,
		Branch:         branch,
		Message:        message,
		Status:         VoucherActive,
		PaymentStatus:  VoucherPaymentPending,
		ExpiresAt:      now.Add(voucherValidity),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateVoucherCode returns a human-shareable code of the form PRI-XXXXXXXX.
// The alphabet drops easily confused characters (0/O, 1/I).
func GenerateVoucherCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	var sb strings.Builder
	sb.WriteString("PRI-")
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String()
}

// NormalizeVoucherCode canonicalizes user input for lookup.
func NormalizeVoucherCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeemable reports whether the voucher can be converted into a booking at
// the given instant. The error distinguishes an expired voucher from one that
// is missing, unpaid or consumed, because the remediation differs.
func (v *Voucher) Redeemable(now time.Time) error {
	if v.Status != VoucherActive || v.PaymentStatus != VoucherPaymentCompleted {
		return NewVoucherNotFoundError()
	}
	if !v.ExpiresAt.After(now) {
		return NewVoucherExpiredError()
	}
	return nil
}

func (v *Voucher) IsTerminal() bool {
	switch v.Status {
	case VoucherRedeemed, VoucherExpired, VoucherCancelled:
		return true
	default:
		return false
	}
}

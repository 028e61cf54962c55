package domain

import "time"

// STKPushRequest is what the service asks the gateway to do: prompt the given
// phone for the given amount, tagged with our account reference.
type STKPushRequest struct {
	Phone            string
	Amount           int64
	AccountReference string
	Description      string
}

// STKPushResult is the gateway's synchronous acknowledgment of an initiation.
// The checkout and merchant request ids correlate the later callback.
type STKPushResult struct {
	MerchantRequestID   string
	CheckoutRequestID   string
	ResponseDescription string
	CustomerMessage     string
}

// STKQueryResult is the gateway's answer to an explicit status query, used by
// the reconciler when a callback never arrived.
type STKQueryResult struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
}

// GatewayCallback is the normalized form of the gateway's asynchronous result
// push. Metadata fields are only populated on success (ResultCode == 0).
type GatewayCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string

	Amount          int64
	ReceiptNumber   string
	Phone           string
	TransactionDate *time.Time
}

// Success reports whether the gateway considered the payment completed.
func (c *GatewayCallback) Success() bool {
	return c.ResultCode == 0
}

// Nairobi has no DST; a fixed offset avoids a tzdata dependency at runtime.
var eat = time.FixedZone("EAT", 3*60*60)

// ParseGatewayTimestamp normalizes the gateway's proprietary YYYYMMDDHHmmss
// date encoding (East Africa Time) into an instant.
func ParseGatewayTimestamp(raw string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102150405", raw, eat)
	if err != nil {
		return time.Time{}, NewValidationError("malformed gateway timestamp: " + raw)
	}
	return t.UTC(), nil
}

// FormatGatewayTimestamp renders an instant the way the gateway's password
// algorithm expects it.
func FormatGatewayTimestamp(t time.Time) string {
	return t.In(eat).Format("20060102150405")
}

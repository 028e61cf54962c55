package daraja

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/prive-wellness/payments-service/internal/core/domain"
)

// ParseCallback decodes the gateway's callback envelope into the normalized
// domain form. Metadata is optional and only present on success.
func ParseCallback(body []byte) (*domain.GatewayCallback, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed callback envelope: %w", err)
	}

	stk := env.Body.StkCallback
	cb := &domain.GatewayCallback{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
	}

	if stk.CallbackMetadata == nil {
		return cb, nil
	}

	for _, item := range stk.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			cb.Amount = int64(rawNumber(item.Value))
		case "MpesaReceiptNumber":
			cb.ReceiptNumber = rawString(item.Value)
		case "PhoneNumber":
			// arrives as a number; render it back to digits
			cb.Phone = strconv.FormatInt(int64(rawNumber(item.Value)), 10)
		case "TransactionDate":
			ts := strconv.FormatInt(int64(rawNumber(item.Value)), 10)
			if t, err := domain.ParseGatewayTimestamp(ts); err == nil {
				cb.TransactionDate = &t
			}
		}
	}

	return cb, nil
}

// rawNumber coerces a metadata value that may be encoded as a JSON number or
// a quoted string into a float.
func rawNumber(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return strings.Trim(string(raw), `"`)
	}
	return s
}

package daraja

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abanremit/mpesa-relay/internal/domain"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the gateway's synchronous answer to a push request.
// ResponseCode "0" means the prompt was queued to the handset; the payment
// outcome arrives later on the callback URL.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ResultCode tolerates the gateway emitting either a JSON number or a
// numeric string; both forms appear in the wild.
type ResultCode int

func (c *ResultCode) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("result code missing")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("result code %q is not numeric: %w", s, err)
	}
	*c = ResultCode(n)
	return nil
}

// CallbackEnvelope is the nested payload the gateway POSTs to the
// callback URL.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes a callback delivery, rejecting envelopes that lack
// the fields reconciliation cannot proceed without.
func ParseCallback(body []byte) (*STKCallback, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("ParseCallback: %w: %w", domain.ErrMalformedCallback, err)
	}

	cb := env.Body.STKCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("ParseCallback: %w: missing CheckoutRequestID", domain.ErrMalformedCallback)
	}
	return &cb, nil
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        ResultCode        `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Items []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// item looks a metadata entry up by name. The item list is unordered and
// may carry fields we never read.
func (c *STKCallback) item(name string) (any, bool) {
	if c.CallbackMetadata == nil {
		return nil, false
	}
	for _, it := range c.CallbackMetadata.Items {
		if it.Name == name {
			return it.Value, true
		}
	}
	return nil, false
}

// ReceiptNumber returns the MpesaReceiptNumber metadata item, if present.
func (c *STKCallback) ReceiptNumber() (string, bool) {
	v, ok := c.item("MpesaReceiptNumber")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// AmountConfirmed returns the Amount metadata item, if present.
func (c *STKCallback) AmountConfirmed() (decimal.Decimal, bool) {
	v, ok := c.item("Amount")
	if !ok {
		return decimal.Decimal{}, false
	}
	switch a := v.(type) {
	case float64:
		return decimal.NewFromFloat(a), true
	case string:
		d, err := decimal.NewFromString(a)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

// TransactionDate returns the completion timestamp metadata item, encoded
// by the gateway as YYYYMMDDHHmmss in Nairobi time.
func (c *STKCallback) TransactionDate() (time.Time, bool) {
	v, ok := c.item("TransactionDate")
	if !ok {
		return time.Time{}, false
	}

	var raw string
	switch d := v.(type) {
	case float64:
		raw = strconv.FormatInt(int64(d), 10)
	case json.Number:
		raw = d.String()
	case string:
		raw = d
	default:
		return time.Time{}, false
	}

	t, err := time.ParseInLocation("20060102150405", raw, nairobi)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

var nairobi = time.FixedZone("EAT", 3*60*60)

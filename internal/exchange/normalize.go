package exchange

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderEcho is the one order shape every adapter normalizes into, whatever
// field names the exchange uses on the wire.
type OrderEcho struct {
	Symbol    string `json:"symbol"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Side      string `json:"side,omitempty"`
	Size      string `json:"size"`
	Filled    string `json:"filled"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// statusTable maps exchange-native order states to the canonical set.
var statusTable = map[string]string{
	"canceled":         "CANCELED",
	"cancelled":        "CANCELED",
	"partially_filled": "PARTIALLY_FILLED",
	"filled":           "FILLED",
	"new":              "NEW",
	"live":             "NEW",
	"open":             "NEW",
	"resting":          "NEW",
}

// NormalizeStatus maps an exchange order status through the fixed table.
// Unknown inputs pass through upper-cased; empty input becomes UNKNOWN.
func NormalizeStatus(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "UNKNOWN"
	}
	if mapped, ok := statusTable[strings.ToLower(s)]; ok {
		return mapped
	}
	return strings.ToUpper(s)
}

// CoerceDecimal renders any raw numeric field as a fixed-precision decimal
// string with 8 fractional digits. Non-numeric, nil and missing inputs coerce
// to "0" rather than raising.
func CoerceDecimal(v interface{}) string {
	var d decimal.Decimal
	switch t := v.(type) {
	case nil:
		return zeroAmount()
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return zeroAmount()
		}
		d = parsed
	case float64:
		d = decimal.NewFromFloat(t)
	case float32:
		d = decimal.NewFromFloat32(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case json.Number:
		parsed, err := decimal.NewFromString(t.String())
		if err != nil {
			return zeroAmount()
		}
		d = parsed
	default:
		return zeroAmount()
	}
	return d.StringFixed(8)
}

func zeroAmount() string {
	return decimal.Zero.StringFixed(8)
}

// NormalizeOrder unifies heterogeneous raw order payloads into an OrderEcho.
// Recognized aliases: instId/symbol/coin, ordId/orderId/oid, sz/origQty,
// fillSz/executedQty/totalSz, px/price/limitPx, and millisecond timestamps
// under ts/time/updateTime/statusTimestamp.
func NormalizeOrder(raw map[string]interface{}) *OrderEcho {
	if raw == nil {
		return nil
	}
	return &OrderEcho{
		Symbol:    firstString(raw, "instId", "symbol", "coin"),
		OrderID:   firstString(raw, "ordId", "orderId", "oid"),
		Status:    NormalizeStatus(firstString(raw, "state", "status")),
		Side:      strings.ToUpper(firstString(raw, "side")),
		Size:      CoerceDecimal(firstValue(raw, "sz", "origQty", "size")),
		Filled:    CoerceDecimal(firstValue(raw, "fillSz", "executedQty", "totalSz", "filled")),
		Price:     CoerceDecimal(firstValue(raw, "px", "price", "limitPx")),
		Timestamp: coerceMillis(firstValue(raw, "ts", "time", "updateTime", "statusTimestamp")),
	}
}

// firstString returns the first present, non-empty string value among keys.
func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			case json.Number:
				return t.String()
			}
		}
	}
	return ""
}

// firstValue returns the first present value among keys.
func firstValue(raw map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// coerceMillis parses a millisecond timestamp in any of the wire encodings.
func coerceMillis(v interface{}) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		ms, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return ms
	case float64:
		return int64(t)
	case int64:
		return t
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return 0
		}
		return ms
	}
	return 0
}

// nowMillis returns the current time as a millisecond string for request signing.
func nowMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

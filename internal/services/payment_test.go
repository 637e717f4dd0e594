package services

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/schoolpay/backend/internal/models"
)

func TestNewOrderIDFormat(t *testing.T) {
	id := newOrderID()
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != "ORD" {
		t.Fatalf("unexpected order id format: %q", id)
	}
	if len(parts[2]) != 10 {
		t.Errorf("suffix length = %d, want 10: %q", len(parts[2]), id)
	}
}

func TestNewOrderIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newOrderID()
		if seen[id] {
			t.Fatalf("duplicate order id %q", id)
		}
		seen[id] = true
	}
}

func TestBuildWebhookUpdate(t *testing.T) {
	orderInfo := map[string]interface{}{
		"order_id":           "64f000000000000000000001",
		"status":             "SUCCESS",
		"transaction_amount": 2200.0,
		"order_amount":       2000.0,
		"payment_mode":       "upi",
		"bank_reference":     "YESBNK222",
		"Payment_message":    "payment success",
		"payment_time":       "2026-04-23T08:14:21Z",
		"payemnt_details":    "bank_ref: YESBNK222",
	}

	set := buildWebhookUpdate(orderInfo)

	if set["status"] != "SUCCESS" {
		t.Errorf("status = %v", set["status"])
	}
	if set["transaction_amount"] != 2200.0 {
		t.Errorf("transaction_amount = %v", set["transaction_amount"])
	}
	if set["order_amount"] != 2000.0 {
		t.Errorf("order_amount = %v", set["order_amount"])
	}
	if set["payment_mode"] != "upi" {
		t.Errorf("payment_mode = %v", set["payment_mode"])
	}
	if set["bank_reference"] != "YESBNK222" {
		t.Errorf("bank_reference = %v", set["bank_reference"])
	}
	if set["payment_message"] != "payment success" {
		t.Errorf("payment_message = %v", set["payment_message"])
	}

	paymentTime, ok := set["payment_time"].(time.Time)
	if !ok {
		t.Fatalf("payment_time is %T", set["payment_time"])
	}
	want := time.Date(2026, 4, 23, 8, 14, 21, 0, time.UTC)
	if !paymentTime.Equal(want) {
		t.Errorf("payment_time = %v, want %v", paymentTime, want)
	}

	details, ok := set["payment_details"].(map[string]interface{})
	if !ok {
		t.Fatalf("payment_details is %T", set["payment_details"])
	}
	if details["raw"] != "bank_ref: YESBNK222" {
		t.Errorf("payment_details = %v", details)
	}
}

func TestBuildWebhookUpdateMissingFields(t *testing.T) {
	set := buildWebhookUpdate(map[string]interface{}{"order_id": "abc"})

	for _, key := range []string{"status", "transaction_amount", "payment_mode", "bank_reference", "payment_message", "error_message", "order_amount", "payment_details"} {
		if _, ok := set[key]; ok {
			t.Errorf("unexpected key %q in update for empty payload", key)
		}
	}
	// payment_time always lands, defaulting to now.
	if _, ok := set["payment_time"].(time.Time); !ok {
		t.Error("payment_time missing from update")
	}
	if _, ok := set["updated_at"].(time.Time); !ok {
		t.Error("updated_at missing from update")
	}
}

func TestBuildWebhookUpdateBadPaymentTime(t *testing.T) {
	before := time.Now()
	set := buildWebhookUpdate(map[string]interface{}{"payment_time": "yesterday-ish"})
	paymentTime, ok := set["payment_time"].(time.Time)
	if !ok {
		t.Fatalf("payment_time is %T", set["payment_time"])
	}
	if paymentTime.Before(before.Add(-time.Second)) {
		t.Errorf("unparseable payment_time should default to now, got %v", paymentTime)
	}
}

func TestBuildWebhookUpdatePaymentDetailsFallbackSpelling(t *testing.T) {
	set := buildWebhookUpdate(map[string]interface{}{
		"payment_details": map[string]interface{}{"upi_id": "alice@upi"},
	})
	details, ok := set["payment_details"].(map[string]interface{})
	if !ok {
		t.Fatalf("payment_details is %T", set["payment_details"])
	}
	if details["upi_id"] != "alice@upi" {
		t.Errorf("payment_details = %v", details)
	}
}

func TestNormalizePaymentDetails(t *testing.T) {
	m := normalizePaymentDetails(map[string]interface{}{"k": "v"})
	if m["k"] != "v" {
		t.Errorf("map input not preserved: %v", m)
	}

	m = normalizePaymentDetails(`{"upi_id":"bob@upi"}`)
	if m["upi_id"] != "bob@upi" {
		t.Errorf("JSON string not parsed: %v", m)
	}

	m = normalizePaymentDetails("plain text")
	if m["raw"] != "plain text" {
		t.Errorf("non-JSON string not wrapped: %v", m)
	}

	m = normalizePaymentDetails(42)
	if m["raw"] != "42" {
		t.Errorf("scalar not wrapped: %v", m)
	}
}

func TestAbandonedFilter(t *testing.T) {
	cutoff := time.Now().Add(-30 * time.Minute)
	filter := abandonedFilter(cutoff)

	if filter["status"] != models.StatusPending {
		t.Errorf("status filter = %v", filter["status"])
	}

	cb, ok := filter["callback_received"].(bson.M)
	if !ok || cb["$ne"] != true {
		t.Errorf("callback_received filter = %v", filter["callback_received"])
	}

	created, ok := filter["created_at"].(bson.M)
	if !ok {
		t.Fatalf("created_at filter = %v", filter["created_at"])
	}
	if created["$lt"] != cutoff {
		t.Errorf("created_at cutoff = %v, want %v", created["$lt"], cutoff)
	}
}

func TestFloatField(t *testing.T) {
	m := map[string]interface{}{
		"f": 12.5,
		"i": 7,
		"s": "99.9",
		"x": "not a number",
	}

	if v, ok := floatField(m, "f"); !ok || v != 12.5 {
		t.Errorf("float64 field: %v %v", v, ok)
	}
	if v, ok := floatField(m, "i"); !ok || v != 7 {
		t.Errorf("int field: %v %v", v, ok)
	}
	if v, ok := floatField(m, "s"); !ok || v != 99.9 {
		t.Errorf("numeric string field: %v %v", v, ok)
	}
	if _, ok := floatField(m, "x"); ok {
		t.Error("non-numeric string should not parse")
	}
	if _, ok := floatField(m, "missing"); ok {
		t.Error("missing key should not parse")
	}
	if _, ok := floatField(nil, "f"); ok {
		t.Error("nil map should not parse")
	}
}

func TestStringField(t *testing.T) {
	m := map[string]interface{}{"a": "x", "b": "", "c": 3}
	if v, ok := stringField(m, "a"); !ok || v != "x" {
		t.Errorf("stringField(a) = %v %v", v, ok)
	}
	if _, ok := stringField(m, "b"); ok {
		t.Error("empty string should report absent")
	}
	if _, ok := stringField(m, "c"); ok {
		t.Error("non-string should report absent")
	}
	if _, ok := stringField(nil, "a"); ok {
		t.Error("nil map should report absent")
	}
}

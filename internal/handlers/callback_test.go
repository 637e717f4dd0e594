package handlers

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestResolveCallbackAmount(t *testing.T) {
	cases := []struct {
		name     string
		query    string
		fallback float64
		want     float64
	}{
		{"amount wins", "amount=150&transaction_amount=999", 0, 150},
		{"transaction_amount second", "transaction_amount=200&order_amount=999", 0, 200},
		{"order_amount third", "order_amount=300&total_amount=999", 0, 300},
		{"total_amount last", "total_amount=400", 0, 400},
		{"fallback when absent", "", 55, 55},
		{"fallback on unparseable", "amount=abc", 60, 60},
		{"zero amount skipped", "amount=0&transaction_amount=75", 0, 75},
		{"negative amount skipped", "amount=-5", 80, 80},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("bad query: %v", err)
			}
			if got := resolveCallbackAmount(q, tc.fallback); got != tc.want {
				t.Errorf("resolveCallbackAmount(%q, %v) = %v, want %v", tc.query, tc.fallback, got, tc.want)
			}
		})
	}
}

func TestRedirectURL(t *testing.T) {
	got := redirectURL("http://localhost:5173", "Payment completed successfully", "cr_1", "SUCCESS")
	want := "http://localhost:5173/?message=Payment+completed+successfully&collect_id=cr_1&status=SUCCESS"
	if got != want {
		t.Errorf("redirectURL = %q, want %q", got, want)
	}
}

func TestRedirectURLEscapesValues(t *testing.T) {
	got := redirectURL("http://localhost:5173", "a&b=c", "id with space", "X?Y")
	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("redirect URL does not parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("message") != "a&b=c" {
		t.Errorf("message round-trip = %q", q.Get("message"))
	}
	if q.Get("collect_id") != "id with space" {
		t.Errorf("collect_id round-trip = %q", q.Get("collect_id"))
	}
	if q.Get("status") != "X?Y" {
		t.Errorf("status round-trip = %q", q.Get("status"))
	}
}

func TestRenderCallbackPage(t *testing.T) {
	h := &PaymentHandler{frontendURL: "http://localhost:5173"}
	rec := httptest.NewRecorder()

	h.renderCallback(rec, callbackView{
		Title:       "Payment Successful",
		Heading:     "Payment Successful",
		Color:       "#5cb85c",
		Message:     "Your payment has been completed. Thank you.",
		RedirectURL: redirectURL("http://localhost:5173", "ok", "cr_1", "SUCCESS"),
	})

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Payment Successful") {
		t.Error("page missing heading")
	}
	if !strings.Contains(body, "setTimeout") {
		t.Error("page missing redirect script")
	}
	if !strings.Contains(body, "collect_id") {
		t.Error("page missing redirect destination")
	}
}

func TestTimeoutMinutesParam(t *testing.T) {
	cases := []struct {
		query string
		want  int
	}{
		{"", 30},
		{"timeout_minutes=45", 45},
		{"timeout_minutes=0", 30},
		{"timeout_minutes=-5", 30},
		{"timeout_minutes=abc", 30},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("POST", "/api/cancel-abandoned-payments?"+tc.query, nil)
		if got := timeoutMinutesParam(r, 30); got != tc.want {
			t.Errorf("timeoutMinutesParam(%q) = %d, want %d", tc.query, got, tc.want)
		}
	}
}

func TestParsePageParams(t *testing.T) {
	cases := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 10},
		{"page=3&limit=25", 3, 25},
		{"page=0&limit=0", 1, 10},
		{"page=-1&limit=500", 1, 10},
		{"page=abc&limit=xyz", 1, 10},
		{"limit=100", 1, 100},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/api/transactions?"+tc.query, nil)
		page, limit := parsePageParams(r)
		if page != tc.wantPage || limit != tc.wantLimit {
			t.Errorf("parsePageParams(%q) = (%d, %d), want (%d, %d)", tc.query, page, limit, tc.wantPage, tc.wantLimit)
		}
	}
}

package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/schoolpay/backend/internal/services"
	"github.com/schoolpay/backend/internal/status"
)

// callbackPage is the interstitial shown to the payer after the gateway
// redirects the browser back. It renders a verdict and then forwards to the
// frontend dashboard after a short pause.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #f5f5f5; }
.card { background: #fff; border-radius: 8px; padding: 40px; text-align: center; box-shadow: 0 2px 8px rgba(0,0,0,0.1); max-width: 420px; }
.card h1 { color: {{.Color}}; font-size: 22px; }
.card p { color: #555; }
.card .small { font-size: 12px; color: #999; }
</style>
</head>
<body>
<div class="card">
<h1>{{.Heading}}</h1>
<p>{{.Message}}</p>
<p class="small">Redirecting to the dashboard...</p>
</div>
<script>
setTimeout(function() { window.location.href = {{.RedirectURL}}; }, 3000);
</script>
</body>
</html>
`))

type callbackView struct {
	Title       string
	Heading     string
	Color       string
	Message     string
	RedirectURL string
}

// resolveCallbackAmount picks the transaction amount from the callback query
// string, trying the amount parameter names gateways actually send, and falls
// back to the stored order amount when none parse.
func resolveCallbackAmount(q url.Values, fallback float64) float64 {
	for _, key := range []string{"amount", "transaction_amount", "order_amount", "total_amount"} {
		if raw := q.Get(key); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
				return v
			}
		}
	}
	return fallback
}

// redirectURL builds the frontend destination carrying the callback outcome.
func redirectURL(frontendURL, message, collectID, finalStatus string) string {
	return fmt.Sprintf("%s/?message=%s&collect_id=%s&status=%s",
		frontendURL,
		url.QueryEscape(message),
		url.QueryEscape(collectID),
		url.QueryEscape(finalStatus),
	)
}

// PaymentCallback handles the browser redirect from the payment page. The
// rendered page never depends on the database write succeeding: a reconciling
// webhook or the abandoned-payment sweep will converge the record later, and
// the payer always gets a verdict.
func (h *PaymentHandler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	collectRequestID := q.Get("EdvironCollectRequestId")
	rawStatus := q.Get("status")

	log.Printf("Payment callback received: collect_request=%s status=%q", collectRequestID, rawStatus)

	if collectRequestID == "" {
		h.renderCallback(w, callbackView{
			Title:       "Payment Status",
			Heading:     "Invalid Callback",
			Color:       "#d9534f",
			Message:     "The payment reference is missing. If you completed a payment, it will still be recorded.",
			RedirectURL: redirectURL(h.frontendURL, "Invalid payment callback", "", "UNKNOWN"),
		})
		return
	}

	category := status.Classify(rawStatus)
	now := time.Now().Format(time.RFC3339)

	var view callbackView
	switch category {
	case status.Success:
		amount := resolveCallbackAmount(q, h.storedOrderAmount(r, collectRequestID))
		err := h.payments.UpdateStatusByCollectRequestID(r.Context(), collectRequestID, "SUCCESS", amount, services.StatusUpdate{
			PaymentMessage:   "Payment completed successfully",
			CallbackReceived: true,
			CallbackTime:     now,
			PaymentDetails: map[string]interface{}{
				"callback_status": rawStatus,
				"source":          "payment_callback",
			},
		})
		if err != nil {
			log.Printf("Failed to record successful callback for %s: %v", collectRequestID, err)
		}
		view = callbackView{
			Title:       "Payment Successful",
			Heading:     "Payment Successful",
			Color:       "#5cb85c",
			Message:     "Your payment has been completed. Thank you.",
			RedirectURL: redirectURL(h.frontendURL, "Payment completed successfully", collectRequestID, "SUCCESS"),
		}

	case status.Failed, status.Cancelled:
		err := h.payments.UpdateStatusByCollectRequestID(r.Context(), collectRequestID, "FAILED", 0, services.StatusUpdate{
			ErrorMessage:     "Payment " + string(category),
			PaymentMessage:   "Payment was not completed",
			CallbackReceived: true,
			CallbackTime:     now,
			PaymentDetails: map[string]interface{}{
				"callback_status":   rawStatus,
				"classified_status": string(category),
				"source":            "payment_callback",
			},
		})
		if err != nil {
			log.Printf("Failed to record failed callback for %s: %v", collectRequestID, err)
		}
		view = callbackView{
			Title:       "Payment Not Completed",
			Heading:     "Payment Not Completed",
			Color:       "#d9534f",
			Message:     "Your payment was not completed. You can try again from the dashboard.",
			RedirectURL: redirectURL(h.frontendURL, "Payment was not completed", collectRequestID, "FAILED"),
		}

	default:
		err := h.payments.UpdateStatusByCollectRequestID(r.Context(), collectRequestID, "PENDING", 0, services.StatusUpdate{
			PaymentMessage:   "Payment is being processed",
			CallbackReceived: true,
			CallbackTime:     now,
			PaymentDetails: map[string]interface{}{
				"callback_status": rawStatus,
				"source":          "payment_callback",
			},
		})
		if err != nil {
			log.Printf("Failed to record pending callback for %s: %v", collectRequestID, err)
		}
		view = callbackView{
			Title:       "Payment Processing",
			Heading:     "Payment Processing",
			Color:       "#f0ad4e",
			Message:     "Your payment is still being processed. The status will update shortly.",
			RedirectURL: redirectURL(h.frontendURL, "Payment is being processed", collectRequestID, "PENDING"),
		}
	}

	h.renderCallback(w, view)
}

// storedOrderAmount looks up the order amount recorded at creation time, for
// callbacks that carry no usable amount parameter.
func (h *PaymentHandler) storedOrderAmount(r *http.Request, collectRequestID string) float64 {
	lookup, err := h.payments.FindOrderByCollectRequestID(r.Context(), collectRequestID)
	if err != nil {
		log.Printf("Failed to look up order for callback %s: %v", collectRequestID, err)
		return 0
	}
	if lookup == nil {
		return 0
	}
	return lookup.OrderAmount
}

func (h *PaymentHandler) renderCallback(w http.ResponseWriter, view callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := callbackPage.Execute(w, view); err != nil {
		log.Printf("Failed to render callback page: %v", err)
	}
}

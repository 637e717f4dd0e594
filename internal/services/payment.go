package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/schoolpay/backend/internal/gateway"
	"github.com/schoolpay/backend/internal/models"
)

const abandonedErrorMessage = "Payment abandoned - no callback received within timeout period"

type PaymentService struct {
	db      *mongo.Database
	gateway *gateway.Client
}

func NewPaymentService(db *mongo.Database, gw *gateway.Client) *PaymentService {
	return &PaymentService{db: db, gateway: gw}
}

// newOrderID generates the human-readable order id. The uuid fragment keeps
// collisions negligible even for orders created in the same millisecond.
func newOrderID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return fmt.Sprintf("ORD_%d_%s", time.Now().UnixMilli(), suffix)
}

type CreatePaymentInput struct {
	SchoolID    string
	TrusteeID   string
	StudentInfo models.StudentInfo
	Amount      float64
	GatewayName string
	Description string
}

type CreatePaymentResult struct {
	Success          bool   `json:"success"`
	OrderID          string `json:"order_id"`
	CollectID        string `json:"collect_id"`
	CollectRequestID string `json:"collect_request_id,omitempty"`
	PaymentURL       string `json:"payment_url"`
	Message          string `json:"message"`
}

// CreatePayment persists an Order plus a PENDING OrderStatus, then submits the
// signed collect request to the gateway. The database rows are written before
// the network call and survive a gateway failure, so an abandoned attempt is
// still visible (and eventually swept) on the dashboard.
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	gatewayName := input.GatewayName
	if gatewayName == "" {
		gatewayName = "edviron"
	}

	now := time.Now()
	order := models.Order{
		ID:            primitive.NewObjectID(),
		SchoolID:      input.SchoolID,
		TrusteeID:     input.TrusteeID,
		StudentInfo:   input.StudentInfo,
		GatewayName:   gatewayName,
		CustomOrderID: newOrderID(),
		Description:   input.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.db.Collection("orders").InsertOne(ctx, order); err != nil {
		log.Printf("Failed to save order %s: %v", order.CustomOrderID, err)
		return nil, fmt.Errorf("failed to save order: %v", err)
	}

	orderStatus := models.OrderStatus{
		ID:               primitive.NewObjectID(),
		CollectID:        order.ID,
		OrderAmount:      input.Amount,
		Status:           models.StatusPending,
		CallbackReceived: false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := s.db.Collection("order_statuses").InsertOne(ctx, orderStatus); err != nil {
		log.Printf("Failed to save order status for %s: %v", order.CustomOrderID, err)
		return nil, fmt.Errorf("failed to save order status: %v", err)
	}

	resp, err := s.gateway.CreateCollectRequest(ctx, gateway.CollectRequest{
		SchoolID:    input.SchoolID,
		Amount:      input.Amount,
		TrusteeID:   input.TrusteeID,
		StudentInfo: input.StudentInfo,
		Description: input.Description,
	})
	if err != nil {
		log.Printf("Gateway collect request failed for order %s: %v", order.CustomOrderID, err)
		return nil, fmt.Errorf("failed to create payment request: %v", err)
	}

	if resp.CollectRequestID != "" {
		_, err = s.db.Collection("orders").UpdateByID(ctx, order.ID, bson.M{
			"$set": bson.M{
				"gateway_reference_id": resp.CollectRequestID,
				"updated_at":           time.Now(),
			},
		})
		if err != nil {
			log.Printf("Failed to store gateway reference on order %s: %v", order.CustomOrderID, err)
			return nil, fmt.Errorf("failed to store gateway reference: %v", err)
		}
	}

	log.Printf("Payment created: order=%s collect_request=%s", order.CustomOrderID, resp.CollectRequestID)

	return &CreatePaymentResult{
		Success:          true,
		OrderID:          order.CustomOrderID,
		CollectID:        order.ID.Hex(),
		CollectRequestID: resp.CollectRequestID,
		PaymentURL:       resp.PaymentURL,
		Message:          "Payment request created successfully",
	}, nil
}

type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleWebhook records the inbound payload in the audit log, then applies it
// to the matching OrderStatus. A payload referencing an unknown order is a
// soft failure: the log row is marked FAILED and the caller still gets an
// acknowledgement, so the gateway does not keep retrying.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload map[string]interface{}) (*WebhookResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	webhookLog := models.WebhookLog{
		ID:        primitive.NewObjectID(),
		Payload:   payload,
		Source:    "payment_gateway",
		Status:    models.WebhookReceived,
		CreatedAt: time.Now(),
	}
	if _, err := s.db.Collection("webhook_logs").InsertOne(ctx, webhookLog); err != nil {
		log.Printf("Failed to save webhook log: %v", err)
		return nil, fmt.Errorf("failed to save webhook log: %v", err)
	}

	orderInfo, ok := payload["order_info"].(map[string]interface{})
	orderID, _ := stringField(orderInfo, "order_id")
	if !ok || orderID == "" {
		s.markWebhookLog(ctx, webhookLog.ID, models.WebhookFailed, "missing order_info or order_id")
		return nil, fmt.Errorf("missing order_info or order_id in webhook payload")
	}

	collectID, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		log.Printf("Webhook order_id %q is not a valid collect id", orderID)
		s.markWebhookLog(ctx, webhookLog.ID, models.WebhookFailed, "Order not found")
		return &WebhookResult{Success: false, Message: "Order not found"}, nil
	}

	var orderStatus models.OrderStatus
	err = s.db.Collection("order_statuses").FindOne(ctx, bson.M{"collect_id": collectID}).Decode(&orderStatus)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			log.Printf("Order status not found for webhook order_id %s", orderID)
			s.markWebhookLog(ctx, webhookLog.ID, models.WebhookFailed, "Order not found")
			return &WebhookResult{Success: false, Message: "Order not found"}, nil
		}
		s.markWebhookLog(ctx, webhookLog.ID, models.WebhookFailed, err.Error())
		return nil, fmt.Errorf("failed to fetch order status: %v", err)
	}

	update := buildWebhookUpdate(orderInfo)
	if _, err := s.db.Collection("order_statuses").UpdateByID(ctx, orderStatus.ID, bson.M{"$set": update}); err != nil {
		log.Printf("Failed to update order status for webhook order_id %s: %v", orderID, err)
		s.markWebhookLog(ctx, webhookLog.ID, models.WebhookFailed, err.Error())
		return nil, fmt.Errorf("failed to update order status: %v", err)
	}

	s.markWebhookLog(ctx, webhookLog.ID, models.WebhookProcessed, "")
	log.Printf("Webhook processed for order_id %s", orderID)

	return &WebhookResult{Success: true, Message: "Webhook processed successfully"}, nil
}

// buildWebhookUpdate maps the gateway's order_info fields onto the OrderStatus
// document. Field names follow the gateway's webhook contract, including its
// "Payment_message" capitalization and the misspelled "payemnt_details".
func buildWebhookUpdate(orderInfo map[string]interface{}) bson.M {
	set := bson.M{"updated_at": time.Now()}

	if v, ok := stringField(orderInfo, "status"); ok {
		set["status"] = v
	}
	if v, ok := floatField(orderInfo, "transaction_amount"); ok {
		set["transaction_amount"] = v
	}
	if v, ok := stringField(orderInfo, "payment_mode"); ok {
		set["payment_mode"] = v
	}
	if v, ok := stringField(orderInfo, "bank_reference"); ok {
		set["bank_reference"] = v
	}
	if v, ok := stringField(orderInfo, "Payment_message"); ok {
		set["payment_message"] = v
	}
	if v, ok := stringField(orderInfo, "error_message"); ok {
		set["error_message"] = v
	}
	if v, ok := floatField(orderInfo, "order_amount"); ok {
		set["order_amount"] = v
	}

	paymentTime := time.Now()
	if v, ok := stringField(orderInfo, "payment_time"); ok {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			paymentTime = parsed
		}
	}
	set["payment_time"] = paymentTime

	details := orderInfo["payemnt_details"]
	if details == nil {
		details = orderInfo["payment_details"]
	}
	if details != nil {
		set["payment_details"] = normalizePaymentDetails(details)
	}

	return set
}

// normalizePaymentDetails coerces the open-ended payment_details value into a
// document. Strings are parsed as JSON when possible; anything unparseable is
// preserved under a "raw" key rather than dropped.
func normalizePaymentDetails(v interface{}) map[string]interface{} {
	switch d := v.(type) {
	case map[string]interface{}:
		return d
	case string:
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(d), &parsed); err == nil {
			return parsed
		}
		return map[string]interface{}{"raw": d}
	default:
		return map[string]interface{}{"raw": fmt.Sprintf("%v", v)}
	}
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func floatField(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (s *PaymentService) markWebhookLog(ctx context.Context, id primitive.ObjectID, status, errMsg string) {
	set := bson.M{"status": status}
	if errMsg != "" {
		set["error_message"] = errMsg
	}
	if status == models.WebhookProcessed {
		set["processed_at"] = time.Now()
	}
	if _, err := s.db.Collection("webhook_logs").UpdateByID(ctx, id, bson.M{"$set": set}); err != nil {
		log.Printf("Failed to mark webhook log %s as %s: %v", id.Hex(), status, err)
	}
}

// StatusUpdate carries the callback-derived fields merged into an OrderStatus.
type StatusUpdate struct {
	PaymentMode      string
	BankReference    string
	PaymentTime      string
	PaymentMessage   string
	ErrorMessage     string
	CallbackReceived bool
	CallbackTime     string
	PaymentDetails   interface{}
}

// UpdateStatusByCollectRequestID resolves the order through a strict
// gateway_reference_id match and updates its status. There is deliberately no
// fuzzy fallback here: a callback whose reference id does not resolve returns
// a not-found error instead of guessing at a recent PENDING row.
func (s *PaymentService) UpdateStatusByCollectRequestID(ctx context.Context, collectRequestID, newStatus string, transactionAmount float64, extra StatusUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"gateway_reference_id": collectRequestID}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("order with collect request id %s not found", collectRequestID)
		}
		return fmt.Errorf("failed to fetch order: %v", err)
	}

	set := bson.M{
		"status":             newStatus,
		"transaction_amount": transactionAmount,
		"updated_at":         time.Now(),
	}
	if extra.PaymentMode != "" {
		set["payment_mode"] = extra.PaymentMode
	}
	if extra.BankReference != "" {
		set["bank_reference"] = extra.BankReference
	}
	if extra.PaymentTime != "" {
		if parsed, err := time.Parse(time.RFC3339, extra.PaymentTime); err == nil {
			set["payment_time"] = parsed
		}
	}
	if extra.PaymentMessage != "" {
		set["payment_message"] = extra.PaymentMessage
	}
	if extra.ErrorMessage != "" {
		set["error_message"] = extra.ErrorMessage
	}
	if extra.CallbackReceived {
		set["callback_received"] = true
	}
	if extra.CallbackTime != "" {
		set["callback_time"] = extra.CallbackTime
	}
	if extra.PaymentDetails != nil {
		set["payment_details"] = normalizePaymentDetails(extra.PaymentDetails)
	}

	opts := options.Update().SetUpsert(true)
	_, err = s.db.Collection("order_statuses").UpdateOne(ctx, bson.M{"collect_id": order.ID}, bson.M{"$set": set}, opts)
	if err != nil {
		return fmt.Errorf("failed to update order status: %v", err)
	}

	log.Printf("Order status updated: collect_request=%s status=%s amount=%v", collectRequestID, newStatus, transactionAmount)
	return nil
}

// OrderLookup is the flattened order+status view used by the callback path.
type OrderLookup struct {
	OrderID            primitive.ObjectID `json:"order_id"`
	CustomOrderID      string             `json:"custom_order_id"`
	GatewayReferenceID string             `json:"gateway_reference_id"`
	OrderAmount        float64            `json:"order_amount"`
	TransactionAmount  float64            `json:"transaction_amount"`
	Status             string             `json:"status"`
}

// FindOrderByCollectRequestID returns (nil, nil) when no order carries the
// given gateway reference id.
func (s *PaymentService) FindOrderByCollectRequestID(ctx context.Context, collectRequestID string) (*OrderLookup, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"gateway_reference_id": collectRequestID}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch order: %v", err)
	}

	lookup := &OrderLookup{
		OrderID:            order.ID,
		CustomOrderID:      order.CustomOrderID,
		GatewayReferenceID: order.GatewayReferenceID,
		Status:             models.StatusPending,
	}

	var orderStatus models.OrderStatus
	err = s.db.Collection("order_statuses").FindOne(ctx, bson.M{"collect_id": order.ID}).Decode(&orderStatus)
	if err == nil {
		lookup.OrderAmount = orderStatus.OrderAmount
		lookup.TransactionAmount = orderStatus.TransactionAmount
		lookup.Status = orderStatus.Status
	} else if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to fetch order status: %v", err)
	}

	return lookup, nil
}

// SweepResult summarizes one abandoned-payment sweep.
type SweepResult struct {
	Success        bool      `json:"success"`
	TotalFound     int       `json:"total_found"`
	TotalCancelled int       `json:"total_cancelled"`
	TotalErrors    int       `json:"total_errors"`
	CutoffTime     time.Time `json:"cutoff_time"`
	TimeoutMinutes int       `json:"timeout_minutes"`
	Message        string    `json:"message"`
	Errors         []string  `json:"errors,omitempty"`
}

// abandonedFilter matches PENDING statuses older than the cutoff that never
// saw a callback. $ne:true also matches rows written before callback_received
// had a default, where the field is absent entirely.
func abandonedFilter(cutoff time.Time) bson.M {
	return bson.M{
		"status":            models.StatusPending,
		"callback_received": bson.M{"$ne": true},
		"created_at":        bson.M{"$lt": cutoff},
	}
}

// CancelAbandonedPayments cancels every PENDING OrderStatus older than the
// timeout with no callback received. Rows are updated one at a time; a failed
// update is logged and the sweep moves on.
func (s *PaymentService) CancelAbandonedPayments(ctx context.Context, timeoutMinutes int) (*SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(timeoutMinutes) * time.Minute)
	log.Printf("Cancelling abandoned payments older than %d minutes (cutoff %s)", timeoutMinutes, cutoff.Format(time.RFC3339))

	cur, err := s.db.Collection("order_statuses").Find(ctx, abandonedFilter(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to query abandoned payments: %v", err)
	}

	var abandoned []models.OrderStatus
	defer cur.Close(ctx)
	if err := cur.All(ctx, &abandoned); err != nil {
		return nil, fmt.Errorf("failed to decode abandoned payments: %v", err)
	}

	log.Printf("Found %d abandoned payments to cancel", len(abandoned))

	cancelled := 0
	failed := 0
	for _, orderStatus := range abandoned {
		message := fmt.Sprintf("Payment automatically cancelled after %d minutes of inactivity", timeoutMinutes)
		if err := s.cancelOrderStatus(ctx, orderStatus.ID, abandonedErrorMessage, message); err != nil {
			log.Printf("Failed to cancel order status %s: %v", orderStatus.ID.Hex(), err)
			failed++
			continue
		}
		cancelled++
		log.Printf("Cancelled abandoned payment: collect_id=%s", orderStatus.CollectID.Hex())
	}

	log.Printf("Cancelled %d out of %d abandoned payments", cancelled, len(abandoned))

	return &SweepResult{
		Success:        true,
		TotalFound:     len(abandoned),
		TotalCancelled: cancelled,
		TotalErrors:    failed,
		CutoffTime:     cutoff,
		TimeoutMinutes: timeoutMinutes,
		Message:        fmt.Sprintf("Cancelled %d abandoned payments", cancelled),
	}, nil
}

// ForceCancelAbandonedPayments is the aggressive variant: the query ignores
// callback_received entirely and the only guard is a per-row skip of statuses
// whose callback was confirmed.
func (s *PaymentService) ForceCancelAbandonedPayments(ctx context.Context, timeoutMinutes int) (*SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-time.Duration(timeoutMinutes) * time.Minute)
	log.Printf("Force cancelling PENDING payments older than %d minutes (cutoff %s)", timeoutMinutes, cutoff.Format(time.RFC3339))

	cur, err := s.db.Collection("order_statuses").Find(ctx, bson.M{
		"status":     models.StatusPending,
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pending payments: %v", err)
	}

	var pending []models.OrderStatus
	defer cur.Close(ctx)
	if err := cur.All(ctx, &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending payments: %v", err)
	}

	cancelled := 0
	var errs []string
	for _, orderStatus := range pending {
		if orderStatus.CallbackReceived {
			log.Printf("Skipping order status %s - callback already received", orderStatus.ID.Hex())
			continue
		}
		message := fmt.Sprintf("Payment automatically cancelled after %d minutes of inactivity (force cancelled)", timeoutMinutes)
		if err := s.cancelOrderStatus(ctx, orderStatus.ID, abandonedErrorMessage, message); err != nil {
			msg := fmt.Sprintf("failed to cancel order status %s: %v", orderStatus.ID.Hex(), err)
			log.Print(msg)
			errs = append(errs, msg)
			continue
		}
		cancelled++
	}

	log.Printf("Force cancellation completed: %d out of %d payments cancelled", cancelled, len(pending))

	return &SweepResult{
		Success:        true,
		TotalFound:     len(pending),
		TotalCancelled: cancelled,
		TotalErrors:    len(errs),
		CutoffTime:     cutoff,
		TimeoutMinutes: timeoutMinutes,
		Message:        fmt.Sprintf("Force cancelled %d abandoned payments", cancelled),
		Errors:         errs,
	}, nil
}

func (s *PaymentService) cancelOrderStatus(ctx context.Context, id primitive.ObjectID, errorMessage, paymentMessage string) error {
	_, err := s.db.Collection("order_statuses").UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":          models.StatusCancelled,
			"error_message":   errorMessage,
			"payment_message": paymentMessage,
			"updated_at":      time.Now(),
		},
	})
	return err
}

type CancelResult struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"order_id"`
	CollectID string `json:"collect_id"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
}

// CancelPaymentByOrderID cancels one payment by its human-readable order id.
// Only PENDING payments can be cancelled this way.
func (s *PaymentService) CancelPaymentByOrderID(ctx context.Context, customOrderID, reason string) (*CancelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if reason == "" {
		reason = "Manual cancellation"
	}

	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"custom_order_id": customOrderID}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order %s not found", customOrderID)
		}
		return nil, fmt.Errorf("failed to fetch order: %v", err)
	}

	var orderStatus models.OrderStatus
	err = s.db.Collection("order_statuses").FindOne(ctx, bson.M{"collect_id": order.ID}).Decode(&orderStatus)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order status for %s not found", customOrderID)
		}
		return nil, fmt.Errorf("failed to fetch order status: %v", err)
	}

	if orderStatus.Status != models.StatusPending {
		return nil, fmt.Errorf("cannot cancel payment with status %q, only PENDING payments can be cancelled", orderStatus.Status)
	}

	if err := s.cancelOrderStatus(ctx, orderStatus.ID, reason, "Payment cancelled: "+reason); err != nil {
		return nil, fmt.Errorf("failed to cancel payment: %v", err)
	}

	log.Printf("Cancelled payment %s: %s", customOrderID, reason)

	return &CancelResult{
		Success:   true,
		OrderID:   customOrderID,
		CollectID: order.ID.Hex(),
		Message:   fmt.Sprintf("Payment %s has been cancelled", customOrderID),
		Reason:    reason,
	}, nil
}

type PendingSample struct {
	ID               primitive.ObjectID `json:"id"`
	CollectID        primitive.ObjectID `json:"collect_id"`
	CallbackReceived bool               `json:"callback_received"`
	CreatedAt        time.Time          `json:"created_at"`
	AgeMinutes       int                `json:"age_minutes"`
}

type PendingReport struct {
	Success        bool            `json:"success"`
	CurrentTime    time.Time       `json:"current_time"`
	CutoffTime     time.Time       `json:"cutoff_time"`
	TotalPending   int             `json:"total_pending"`
	AbandonedFound int             `json:"abandoned_found"`
	VeryOldPending int             `json:"very_old_pending"`
	TimeoutMinutes int             `json:"timeout_minutes"`
	SamplePending  []PendingSample `json:"sample_pending"`
}

// DebugPendingPayments reports what a sweep with the given timeout would see,
// without mutating anything.
func (s *PaymentService) DebugPendingPayments(ctx context.Context, timeoutMinutes int) (*PendingReport, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	now := time.Now()
	cutoff := now.Add(-time.Duration(timeoutMinutes) * time.Minute)
	statuses := s.db.Collection("order_statuses")

	totalPending, err := statuses.CountDocuments(ctx, bson.M{"status": models.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to count pending payments: %v", err)
	}

	abandoned, err := statuses.CountDocuments(ctx, abandonedFilter(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to count abandoned payments: %v", err)
	}

	veryOld, err := statuses.CountDocuments(ctx, bson.M{
		"status":     models.StatusPending,
		"created_at": bson.M{"$lt": now.Add(-time.Hour)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count old pending payments: %v", err)
	}

	findOpts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(5)
	cur, err := statuses.Find(ctx, bson.M{"status": models.StatusPending}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending sample: %v", err)
	}

	var sample []models.OrderStatus
	defer cur.Close(ctx)
	if err := cur.All(ctx, &sample); err != nil {
		return nil, fmt.Errorf("failed to decode pending sample: %v", err)
	}

	samples := make([]PendingSample, 0, len(sample))
	for _, orderStatus := range sample {
		samples = append(samples, PendingSample{
			ID:               orderStatus.ID,
			CollectID:        orderStatus.CollectID,
			CallbackReceived: orderStatus.CallbackReceived,
			CreatedAt:        orderStatus.CreatedAt,
			AgeMinutes:       int(now.Sub(orderStatus.CreatedAt).Minutes()),
		})
	}

	return &PendingReport{
		Success:        true,
		CurrentTime:    now,
		CutoffTime:     cutoff,
		TotalPending:   int(totalPending),
		AbandonedFound: int(abandoned),
		VeryOldPending: int(veryOld),
		TimeoutMinutes: timeoutMinutes,
		SamplePending:  samples,
	}, nil
}

// CheckPaymentStatus asks the gateway directly for the state of a collect
// request; nothing is written locally.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, collectRequestID, schoolID string) (*gateway.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.gateway.CheckStatus(ctx, collectRequestID, schoolID)
}

package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/schoolpay/backend/internal/models"
	"github.com/schoolpay/backend/internal/status"
)

type TransactionsService struct {
	db *mongo.Database
}

func NewTransactionsService(db *mongo.Database) *TransactionsService {
	return &TransactionsService{db: db}
}

// TransactionQuery carries pagination, sorting and filters for the read model.
// SchoolID, TrusteeID and Gateway filter the order side before the join;
// Status filters the joined status afterwards.
type TransactionQuery struct {
	Page      int
	Limit     int
	Sort      string
	Order     string
	Status    string
	SchoolID  string
	Gateway   string
	TrusteeID string
}

// Transaction is one flattened order+status row.
type Transaction struct {
	CollectID         primitive.ObjectID `bson:"collect_id" json:"collect_id"`
	CustomOrderID     string             `bson:"custom_order_id" json:"custom_order_id"`
	SchoolID          string             `bson:"school_id" json:"school_id"`
	Gateway           string             `bson:"gateway" json:"gateway"`
	OrderAmount       float64            `bson:"order_amount" json:"order_amount"`
	TransactionAmount float64            `bson:"transaction_amount" json:"transaction_amount"`
	Status            string             `bson:"status" json:"status"`
	StatusCategory    status.Category    `bson:"-" json:"status_category"`
	PaymentTime       *time.Time         `bson:"payment_time,omitempty" json:"payment_time,omitempty"`
	PaymentMode       string             `bson:"payment_mode,omitempty" json:"payment_mode,omitempty"`
	StudentName       string             `bson:"student_name" json:"student_name"`
	StudentEmail      string             `bson:"student_email" json:"student_email"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

type TransactionPage struct {
	Data       []Transaction `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

func newPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// sortFields maps API sort keys to document fields. Unknown keys fall back to
// creation time.
var sortFields = map[string]string{
	"createdAt":          "created_at",
	"payment_time":       "payment_time",
	"order_amount":       "order_amount",
	"transaction_amount": "transaction_amount",
	"status":             "status",
}

// buildTransactionPipeline assembles the orders → order_statuses join.
// Order-side filters go before the $lookup so the join only sees matching
// orders; the status filter can only apply after the join. $unwind without
// preserveNullAndEmptyArrays gives inner-join semantics: orders with no
// status row are not surfaced.
func buildTransactionPipeline(q TransactionQuery) mongo.Pipeline {
	pipeline := mongo.Pipeline{}

	preMatch := bson.D{}
	if q.SchoolID != "" {
		preMatch = append(preMatch, bson.E{Key: "school_id", Value: q.SchoolID})
	}
	if q.TrusteeID != "" {
		preMatch = append(preMatch, bson.E{Key: "trustee_id", Value: q.TrusteeID})
	}
	if q.Gateway != "" {
		preMatch = append(preMatch, bson.E{Key: "gateway_name", Value: q.Gateway})
	}
	if len(preMatch) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: preMatch}})
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "order_statuses"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "collect_id"},
			{Key: "as", Value: "order_status"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$order_status"},
			{Key: "preserveNullAndEmptyArrays", Value: false},
		}}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "collect_id", Value: "$_id"},
			{Key: "custom_order_id", Value: 1},
			{Key: "school_id", Value: 1},
			{Key: "gateway", Value: "$gateway_name"},
			{Key: "order_amount", Value: "$order_status.order_amount"},
			{Key: "transaction_amount", Value: "$order_status.transaction_amount"},
			{Key: "status", Value: "$order_status.status"},
			{Key: "payment_time", Value: "$order_status.payment_time"},
			{Key: "payment_mode", Value: "$order_status.payment_mode"},
			{Key: "student_name", Value: "$student_info.name"},
			{Key: "student_email", Value: "$student_info.email"},
			{Key: "created_at", Value: 1},
		}}},
	)

	if q.Status != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "status", Value: q.Status}}}})
	}

	sortField, ok := sortFields[q.Sort]
	if !ok {
		sortField = "created_at"
	}
	direction := -1
	if q.Order == "asc" {
		direction = 1
	}
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: sortField, Value: direction}}}})

	skip := (q.Page - 1) * q.Limit
	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.D{
		{Key: "data", Value: bson.A{
			bson.D{{Key: "$skip", Value: skip}},
			bson.D{{Key: "$limit", Value: q.Limit}},
		}},
		{Key: "totalCount", Value: bson.A{
			bson.D{{Key: "$count", Value: "count"}},
		}},
	}}})

	return pipeline
}

// GetTransactions returns one page of the joined, classified read model.
func (s *TransactionsService) GetTransactions(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	cur, err := s.db.Collection("orders").Aggregate(ctx, buildTransactionPipeline(q))
	if err != nil {
		log.Printf("Failed to aggregate transactions: %v", err)
		return nil, fmt.Errorf("failed to fetch transactions: %v", err)
	}

	var result []struct {
		Data       []Transaction `bson:"data"`
		TotalCount []struct {
			Count int `bson:"count"`
		} `bson:"totalCount"`
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &result); err != nil {
		log.Printf("Failed to decode transactions: %v", err)
		return nil, fmt.Errorf("failed to decode transactions: %v", err)
	}

	page := &TransactionPage{Data: []Transaction{}}
	total := 0
	if len(result) > 0 {
		page.Data = result[0].Data
		if page.Data == nil {
			page.Data = []Transaction{}
		}
		if len(result[0].TotalCount) > 0 {
			total = result[0].TotalCount[0].Count
		}
	}

	for i := range page.Data {
		page.Data[i].StatusCategory = status.Classify(page.Data[i].Status)
	}
	page.Pagination = newPagination(q.Page, q.Limit, total)

	return page, nil
}

// GetTransactionsBySchool is the school-scoped variant; same join, fixed
// newest-first ordering.
func (s *TransactionsService) GetTransactionsBySchool(ctx context.Context, schoolID, trusteeID string, page, limit int) (*TransactionPage, error) {
	return s.GetTransactions(ctx, TransactionQuery{
		Page:      page,
		Limit:     limit,
		SchoolID:  schoolID,
		TrusteeID: trusteeID,
	})
}

// TransactionDetail is the single-order view returned by the status lookup.
type TransactionDetail struct {
	CustomOrderID     string             `json:"custom_order_id"`
	CollectID         primitive.ObjectID `json:"collect_id"`
	SchoolID          string             `json:"school_id"`
	StudentInfo       models.StudentInfo `json:"student_info"`
	Gateway           string             `json:"gateway"`
	OrderAmount       float64            `json:"order_amount"`
	TransactionAmount float64            `json:"transaction_amount"`
	Status            string             `json:"status"`
	StatusCategory    status.Category    `json:"status_category"`
	PaymentMode       string             `json:"payment_mode,omitempty"`
	PaymentTime       *time.Time         `json:"payment_time,omitempty"`
	PaymentMessage    string             `json:"payment_message,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	BankReference     string             `json:"bank_reference,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// GetTransactionStatus looks up a single transaction by its human-readable
// order id. A non-empty trusteeID additionally scopes the lookup to orders
// owned by that trustee.
func (s *TransactionsService) GetTransactionStatus(ctx context.Context, customOrderID, trusteeID string) (*TransactionDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"custom_order_id": customOrderID}
	if trusteeID != "" {
		filter["trustee_id"] = trusteeID
	}

	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("transaction %s not found", customOrderID)
		}
		return nil, fmt.Errorf("failed to fetch transaction: %v", err)
	}

	var orderStatus models.OrderStatus
	err = s.db.Collection("order_statuses").FindOne(ctx, bson.M{"collect_id": order.ID}).Decode(&orderStatus)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("transaction status for %s not found", customOrderID)
		}
		return nil, fmt.Errorf("failed to fetch transaction status: %v", err)
	}

	return &TransactionDetail{
		CustomOrderID:     order.CustomOrderID,
		CollectID:         order.ID,
		SchoolID:          order.SchoolID,
		StudentInfo:       order.StudentInfo,
		Gateway:           order.GatewayName,
		OrderAmount:       orderStatus.OrderAmount,
		TransactionAmount: orderStatus.TransactionAmount,
		Status:            orderStatus.Status,
		StatusCategory:    status.Classify(orderStatus.Status),
		PaymentMode:       orderStatus.PaymentMode,
		PaymentTime:       orderStatus.PaymentTime,
		PaymentMessage:    orderStatus.PaymentMessage,
		ErrorMessage:      orderStatus.ErrorMessage,
		BankReference:     orderStatus.BankReference,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         orderStatus.UpdatedAt,
	}, nil
}

// GetSchoolIDs lists the distinct schools present in the order store, for the
// dashboard's filter dropdown.
func (s *TransactionsService) GetSchoolIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	values, err := s.db.Collection("orders").Distinct(ctx, "school_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch school ids: %v", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

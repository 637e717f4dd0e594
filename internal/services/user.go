package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolpay/backend/internal/models"
)

type UserService struct {
	collection *mongo.Collection
	jwtSecret  []byte
}

func NewUserService(db *mongo.Database, jwtSecret string) *UserService {
	return &UserService{
		collection: db.Collection("users"),
		jwtSecret:  []byte(jwtSecret),
	}
}

// Register creates a trustee account with a bcrypt-hashed password.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.collection.FindOne(ctx, bson.M{"email": email}).Err()
	if err == nil {
		return nil, errors.New("user already exists")
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to check existing user: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		HPassword: string(hashed),
		CreatedAt: time.Now(),
	}
	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %v", err)
	}

	return &user, nil
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user"`
}

// Login verifies credentials and issues a signed bearer token with a 24 hour
// expiry.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New("invalid credentials")
		}
		return nil, fmt.Errorf("failed to fetch user: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HPassword), []byte(password)); err != nil {
		return nil, errors.New("invalid credentials")
	}

	token, err := s.signToken(&user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{AccessToken: token, User: &user}, nil
}

func (s *UserService) signToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.Hex(),
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return signed, nil
}

// Package authpw registers residents and checks their passwords.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"treeplant/api/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError names the registration field that was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

type ResidentStore interface {
	GetResidentByEmail(ctx context.Context, email string) (store.Resident, error)
	CreateResident(ctx context.Context, resident store.NewResident) (int64, error)
}

type Service struct {
	store     ResidentStore
	cost      int
	dummyHash []byte
}

func NewService(residents ResidentStore, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the email is unknown so both paths cost a hash.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("treeplant-unknown-account"), cost)
	return &Service{store: residents, cost: cost, dummyHash: dummy}
}

type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Street       string `json:"street"`
	ZipCode      string `json:"zip_code"`
	Neighborhood string `json:"neighborhood"`
}

var zipPattern = regexp.MustCompile(`^\d{5}$`)

func (r RegisterRequest) Validate() error {
	required := []struct {
		field string
		value string
		max   int
	}{
		{"first_name", r.FirstName, 50},
		{"last_name", r.LastName, 50},
		{"email", r.Email, 100},
		{"street", r.Street, 50},
		{"neighborhood", r.Neighborhood, 100},
	}
	for _, item := range required {
		value := strings.TrimSpace(item.value)
		if value == "" {
			return &ValidationError{Field: item.field, Message: "is required"}
		}
		if utf8.RuneCountInString(value) > item.max {
			return &ValidationError{Field: item.field, Message: fmt.Sprintf("must be at most %d characters", item.max)}
		}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if n := utf8.RuneCountInString(r.Password); n < 8 || n > 50 {
		return &ValidationError{Field: "password", Message: "must be between 8 and 50 characters"}
	}
	if !zipPattern.MatchString(r.ZipCode) {
		return &ValidationError{Field: "zip_code", Message: "must contain exactly 5 digits"}
	}
	return nil
}

// Register hashes the password and stores the resident. A taken email
// surfaces as store.ErrUniqueViolation.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.store.CreateResident(ctx, store.NewResident{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Street:       strings.TrimSpace(req.Street),
		ZipCode:      req.ZipCode,
		Neighborhood: strings.TrimSpace(req.Neighborhood),
	})
	if err != nil {
		return 0, fmt.Errorf("create resident: %w", err)
	}
	return id, nil
}

// Login returns the resident when the password matches.
func (s *Service) Login(ctx context.Context, email, password string) (store.Resident, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return store.Resident{}, ErrInvalidCredentials
	}

	resident, err := s.store.GetResidentByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return store.Resident{}, ErrInvalidCredentials
		}
		return store.Resident{}, fmt.Errorf("lookup resident: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(resident.PasswordHash), []byte(password)); err != nil {
		return store.Resident{}, ErrInvalidCredentials
	}
	return resident, nil
}

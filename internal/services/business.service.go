package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/logger"
)

const maxPinAttempts = 100

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// PinSource draws one candidate access PIN.
type PinSource func() (string, error)

func RandomPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// BusinessService registers businesses, manages their access PIN and attaches customers.
type BusinessService struct {
	db         Transactor
	users      UserRepository
	businesses BusinessRepository
	customers  CustomerRepository
	credits    CreditRepository
	ledger     *LedgerService
	pins       PinSource
}

func NewBusinessService(db Transactor, users UserRepository, businesses BusinessRepository, customers CustomerRepository, credits CreditRepository, ledger *LedgerService) *BusinessService {
	return &BusinessService{
		db:         db,
		users:      users,
		businesses: businesses,
		customers:  customers,
		credits:    credits,
		ledger:     ledger,
		pins:       RandomPin,
	}
}

func (s *BusinessService) SetPinSource(src PinSource) {
	s.pins = src
}

// Register creates the owner user and the business together.
func (s *BusinessService) Register(ctx context.Context, req model.RegisterBusinessRequest) (*model.Business, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	_, err := s.users.GetByPhone(ctx, req.Phone)
	switch {
	case err == nil:
		return nil, apperr.Conflict("register_business", "phone %s is already registered", req.Phone)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	var business *model.Business
	err = s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		owner := &model.User{Name: req.OwnerName, Phone: req.Phone, Type: model.UserTypeBusiness}
		if err := s.users.Create(ctx, owner); err != nil {
			return err
		}
		b, err := s.createBusiness(ctx, owner.ID, req.BusinessName, req.Description)
		if err != nil {
			return err
		}
		business = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("business registered", "business_id", business.ID, "user_id", business.UserID)
	return business, nil
}

// EnsureBusiness returns the user's business, creating one on first use.
func (s *BusinessService) EnsureBusiness(ctx context.Context, userID uuid.UUID, name string) (*model.Business, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	b, err := s.businesses.GetByUserID(ctx, userID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if name == "" {
		name = user.Name
	}
	return s.createBusiness(ctx, userID, name, "")
}

func (s *BusinessService) Get(ctx context.Context, businessID uuid.UUID) (*model.Business, error) {
	return s.businesses.Get(ctx, businessID)
}

func (s *BusinessService) createBusiness(ctx context.Context, userID uuid.UUID, name, description string) (*model.Business, error) {
	pin, err := s.uniquePin(ctx)
	if err != nil {
		return nil, err
	}
	b := &model.Business{UserID: userID, Name: name, Description: description, AccessPin: pin}
	if err := s.businesses.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// RegeneratePin assigns a fresh unused PIN and returns it.
func (s *BusinessService) RegeneratePin(ctx context.Context, businessID uuid.UUID) (string, error) {
	exists, err := s.businesses.Exists(ctx, businessID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", apperr.NotFound("regenerate_pin", "business")
	}
	pin, err := s.uniquePin(ctx)
	if err != nil {
		return "", err
	}
	if err := s.businesses.UpdatePin(ctx, businessID, pin); err != nil {
		return "", err
	}
	logger.Info("access pin regenerated", "business_id", businessID)
	return pin, nil
}

func (s *BusinessService) uniquePin(ctx context.Context) (string, error) {
	for i := 0; i < maxPinAttempts; i++ {
		pin, err := s.pins()
		if err != nil {
			return "", apperr.Storage("generate_pin", err)
		}
		taken, err := s.businesses.PinExists(ctx, pin)
		if err != nil {
			return "", err
		}
		if !taken {
			return pin, nil
		}
	}
	return "", apperr.Conflict("generate_pin", "no unused access pin found after %d attempts", maxPinAttempts)
}

func (s *BusinessService) UpdateProfile(ctx context.Context, businessID uuid.UUID, req model.UpdateProfileRequest) (*model.Business, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.businesses.UpdateProfile(ctx, businessID, req.Name, req.Description); err != nil {
		return nil, err
	}
	return s.businesses.Get(ctx, businessID)
}

// AddCustomer links a customer, found or created by phone, to the business.
// A non-zero opening balance is written as the first ledger entry of the pair.
func (s *BusinessService) AddCustomer(ctx context.Context, req model.AddCustomerRequest) (*model.CustomerBalance, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.businesses.Exists(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("add_customer", "business")
	}

	customer, err := s.findOrCreateCustomer(ctx, req.Name, req.Phone)
	if err != nil {
		return nil, err
	}

	linked, err := s.credits.Exists(ctx, req.BusinessID, customer.ID)
	if err != nil {
		return nil, err
	}
	if linked {
		return nil, apperr.Conflict("add_customer", "customer %s is already linked to this business", customer.Phone)
	}
	if err := s.credits.Create(ctx, &model.CustomerCredit{BusinessID: req.BusinessID, CustomerID: customer.ID, CurrentBalance: model.Zero()}); err != nil {
		return nil, err
	}

	out := &model.CustomerBalance{Customer: customer, Balance: model.Zero(), Cached: model.Zero()}
	if req.OpeningBalance.IsZero() {
		return out, nil
	}

	typ := model.TransactionTypeCredit
	if req.OpeningBalance.IsNegative() {
		typ = model.TransactionTypePayment
	}
	tx, err := s.ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
		BusinessID: req.BusinessID,
		CustomerID: customer.ID,
		Amount:     req.OpeningBalance.Abs(),
		Type:       typ,
		Notes:      "Opening balance",
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	out.Balance = tx.Delta()
	out.Cached = tx.Delta()
	return out, nil
}

func (s *BusinessService) findOrCreateCustomer(ctx context.Context, name, phone string) (*model.Customer, error) {
	c, err := s.customers.GetByPhone(ctx, phone)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	c = &model.Customer{Name: name, Phone: phone}
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			// created concurrently by another request
			return s.customers.GetByPhone(ctx, phone)
		}
		return nil, err
	}
	return c, nil
}

// CheckIn resolves the business behind a scanned access PIN.
func (s *BusinessService) CheckIn(ctx context.Context, pin string) (*model.Business, error) {
	if !pinPattern.MatchString(pin) {
		return nil, apperr.Validation("check_in", "access pin must be 4 digits")
	}
	b, err := s.businesses.GetByPin(ctx, pin)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("check_in", "business")
		}
		return nil, err
	}
	return b, nil
}

package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBusinessService(env *testEnv) *BusinessService {
	return NewBusinessService(env.db, env.users, env.businesses, env.customers, env.credits, env.ledger())
}

// sequencePins hands out the given pins in order, repeating the last one.
func sequencePins(pins ...string) PinSource {
	i := 0
	return func() (string, error) {
		pin := pins[i]
		if i < len(pins)-1 {
			i++
		}
		return pin, nil
	}
}

func TestRandomPin(t *testing.T) {
	for i := 0; i < 50; i++ {
		pin, err := RandomPin()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{4}$`, pin)
	}
}

func TestBusinessService_Register(t *testing.T) {
	env := newTestEnv(t)
	s := newBusinessService(env)
	ctx := context.Background()
	s.SetPinSource(sequencePins("0420"))

	b, err := s.Register(ctx, model.RegisterBusinessRequest{Phone: "9000000001", BusinessName: " Gupta Kirana "})
	require.NoError(t, err)
	assert.Equal(t, "Gupta Kirana", b.Name)
	assert.Equal(t, "0420", b.AccessPin)

	owner, err := env.users.Get(ctx, b.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.UserTypeBusiness, owner.Type)
	assert.Equal(t, "Gupta Kirana", owner.Name)

	_, err = s.Register(ctx, model.RegisterBusinessRequest{Phone: "9000000001", BusinessName: "Again"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.Register(ctx, model.RegisterBusinessRequest{Phone: "9000000002"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBusinessService_PinUniqueness(t *testing.T) {
	env := newTestEnv(t)
	s := newBusinessService(env)
	ctx := context.Background()
	existing := env.seedBusiness(t, "1111")

	t.Run("skips taken pins", func(t *testing.T) {
		s.SetPinSource(sequencePins("1111", "1111", "2222"))
		pin, err := s.RegeneratePin(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "2222", pin)

		b, err := env.businesses.Get(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "2222", b.AccessPin)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		calls := 0
		s.SetPinSource(func() (string, error) {
			calls++
			return "2222", nil
		})
		_, err := s.RegeneratePin(ctx, existing.ID)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, maxPinAttempts, calls)
	})

	t.Run("unknown business", func(t *testing.T) {
		s.SetPinSource(sequencePins("3333"))
		_, err := s.RegeneratePin(ctx, uuid.New())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestBusinessService_EnsureBusiness(t *testing.T) {
	env := newTestEnv(t)
	s := newBusinessService(env)
	ctx := context.Background()
	s.SetPinSource(sequencePins("5555"))

	owner := &model.User{Name: "Farida", Phone: "9000000010", Type: model.UserTypeBusiness}
	require.NoError(t, env.users.Create(ctx, owner))

	first, err := s.EnsureBusiness(ctx, owner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Farida", first.Name)

	second, err := s.EnsureBusiness(ctx, owner.ID, "ignored")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = s.EnsureBusiness(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBusinessService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	s := newBusinessService(env)
	ctx := context.Background()
	b := env.seedBusiness(t, "6001")

	updated, err := s.UpdateProfile(ctx, b.ID, model.UpdateProfileRequest{Name: "Sharma General Store", Description: "groceries"})
	require.NoError(t, err)
	assert.Equal(t, "Sharma General Store", updated.Name)
	assert.Equal(t, "groceries", updated.Description)

	_, err = s.UpdateProfile(ctx, b.ID, model.UpdateProfileRequest{Name: " "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.UpdateProfile(ctx, uuid.New(), model.UpdateProfileRequest{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBusinessService_AddCustomer(t *testing.T) {
	env := newTestEnv(t)
	s := newBusinessService(env)
	ctx := context.Background()
	b := env.seedBusiness(t, "7001")

	t.Run("without opening balance", func(t *testing.T) {
		res, err := s.AddCustomer(ctx, model.AddCustomerRequest{BusinessID: b.ID, Name: "Deepak", Phone: "9000000020"})
		require.NoError(t, err)
		assert.True(t, res.Balance.IsZero())
		assert.Equal(t, int64(1), env.countCredits(t, b.ID, res.Customer.ID))
		assert.Equal(t, int64(0), env.countTransactions(t))
	})

	t.Run("duplicate relationship", func(t *testing.T) {
		_, err := s.AddCustomer(ctx, model.AddCustomerRequest{BusinessID: b.ID, Name: "Deepak again", Phone: "9000000020"})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		c, err := env.customers.GetByPhone(ctx, "9000000020")
		require.NoError(t, err)
		assert.Equal(t, "Deepak", c.Name)
		assert.Equal(t, int64(1), env.countCredits(t, b.ID, c.ID))
	})

	t.Run("opening balance owed by customer", func(t *testing.T) {
		res, err := s.AddCustomer(ctx, model.AddCustomerRequest{BusinessID: b.ID, Name: "Esha", Phone: "9000000021", OpeningBalance: amt("1250.50")})
		require.NoError(t, err)
		assert.Equal(t, "1250.50", res.Balance.StringFixed(2))

		balance, err := env.ledger().GetBalance(ctx, b.ID, res.Customer.ID)
		require.NoError(t, err)
		assert.Equal(t, "1250.50", balance.StringFixed(2))

		credit, err := env.credits.Get(ctx, b.ID, res.Customer.ID)
		require.NoError(t, err)
		assert.True(t, credit.CurrentBalance.Equal(balance))
	})

	t.Run("advance paid by customer", func(t *testing.T) {
		res, err := s.AddCustomer(ctx, model.AddCustomerRequest{BusinessID: b.ID, Name: "Faiz", Phone: "9000000022", OpeningBalance: amt("-80")})
		require.NoError(t, err)
		assert.Equal(t, "-80.00", res.Balance.StringFixed(2))

		list, _, err := env.transactions.List(ctx, model.TransactionFilter{CustomerID: &res.Customer.ID, Limit: 10})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, model.TransactionTypePayment, list[0].Type)
		assert.Equal(t, "Opening balance", list[0].Notes)
	})

	t.Run("shared customer across businesses", func(t *testing.T) {
		other := env.seedBusiness(t, "7002")
		res, err := s.AddCustomer(ctx, model.AddCustomerRequest{BusinessID: other.ID, Name: "Deepak", Phone: "9000000020"})
		require.NoError(t, err)

		c, err := env.customers.GetByPhone(ctx, "9000000020")
		require.NoError(t, err)
		assert.Equal(t, c.ID, res.Customer.ID)
	})

	t.Run("unknown business", func(t *testing.T) {
		_, err := s.AddCustomer(ctx, model.AddCustomerRequest{BusinessID: uuid.New(), Name: "Ghost", Phone: "9000000099"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestBusinessService_CheckIn(t *testing.T) {
	env := newTestEnv(t)
	s := newBusinessService(env)
	ctx := context.Background()
	b := env.seedBusiness(t, "0042")

	found, err := s.CheckIn(ctx, "0042")
	require.NoError(t, err)
	assert.Equal(t, b.ID, found.ID)

	for _, pin := range []string{"42", "abcd", "12345", ""} {
		_, err := s.CheckIn(ctx, pin)
		assert.ErrorIs(t, err, apperr.ErrValidation, fmt.Sprintf("pin %q", pin))
	}

	_, err = s.CheckIn(ctx, "9999")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

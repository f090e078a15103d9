package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/logger"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DefaultPortalURL = "https://www.khatape.tech"

var amountPrinter = message.NewPrinter(language.English)

// ReminderService builds WhatsApp click-to-chat links asking customers to settle up.
type ReminderService struct {
	businesses BusinessRepository
	customers  CustomerRepository
	ledger     *LedgerService
	portalURL  string
}

func NewReminderService(businesses BusinessRepository, customers CustomerRepository, ledger *LedgerService, portalURL string) *ReminderService {
	if portalURL == "" {
		portalURL = DefaultPortalURL
	}
	return &ReminderService{
		businesses: businesses,
		customers:  customers,
		ledger:     ledger,
		portalURL:  strings.TrimRight(portalURL, "/"),
	}
}

func (s *ReminderService) Remind(ctx context.Context, businessID, customerID uuid.UUID) (*model.Reminder, error) {
	business, err := s.businesses.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	phone, ok := NormalizePhone(customer.Phone)
	if !ok {
		return nil, apperr.Validation("remind", "customer phone %q is not a valid number", customer.Phone)
	}
	balance, err := s.ledger.balance(ctx, businessID, customerID)
	if err != nil {
		return nil, err
	}

	text := s.reminderText(business, customer.Name, balance)
	return &model.Reminder{
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Phone:        "+" + phone,
		Balance:      balance,
		Message:      text,
		Link:         whatsAppLink(phone, text),
	}, nil
}

// RemindAll returns one reminder per customer who still owes money, ordered by name.
func (s *ReminderService) RemindAll(ctx context.Context, businessID uuid.UUID) ([]*model.Reminder, error) {
	business, err := s.businesses.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	balances, err := s.ledger.CustomerBalances(ctx, businessID)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Reminder, 0, len(balances))
	for _, b := range balances {
		if !b.Balance.IsPositive() {
			continue
		}
		phone, ok := NormalizePhone(b.Customer.Phone)
		if !ok {
			logger.Warn("skipping reminder, invalid phone", "business_id", businessID, "customer_id", b.Customer.ID)
			continue
		}
		text := s.reminderText(business, b.Customer.Name, b.Balance)
		out = append(out, &model.Reminder{
			CustomerID:   b.Customer.ID,
			CustomerName: b.Customer.Name,
			Phone:        "+" + phone,
			Balance:      b.Balance,
			Message:      text,
			Link:         whatsAppLink(phone, text),
		})
	}
	return out, nil
}

func (s *ReminderService) reminderText(business *model.Business, customerName string, balance model.Amount) string {
	if customerName == "" {
		customerName = "Customer"
	}
	portal := fmt.Sprintf("%s/business/%s", s.portalURL, business.ID)
	if balance.IsPositive() {
		return fmt.Sprintf("Hello %s,\n"+
			"Just a gentle reminder about your outstanding balance of %s with us at %s\n"+
			"You can check your balance and history here: %s\n"+
			"We'd appreciate it if you could pay soon!\n"+
			"%s", customerName, FormatRupees(balance), business.Name, portal, business.Name)
	}
	return fmt.Sprintf("Hello %s,\n"+
		"Thank you for keeping your account up to date with %s!\n"+
		"Your current balance is %s\n"+
		"You can check your balance and history here: %s\n"+
		"We appreciate your business!\n"+
		"%s", customerName, business.Name, FormatRupees(balance), portal, business.Name)
}

func whatsAppLink(phone, text string) string {
	return "https://wa.me/" + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// NormalizePhone keeps digits only and adds the 91 country code to local numbers.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if !strings.HasPrefix(digits, "91") {
		switch {
		case strings.HasPrefix(digits, "0"):
			digits = "91" + digits[1:]
		case len(digits) == 10:
			digits = "91" + digits
		}
	}
	if len(digits) < 10 {
		return "", false
	}
	return digits, true
}

// FormatRupees renders an amount as ₹1,234.50.
func FormatRupees(a model.Amount) string {
	fixed := a.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "₹" + a.StringFixed(2)
	}
	sign := ""
	if a.IsNegative() {
		sign = "-"
	}
	return sign + "₹" + amountPrinter.Sprintf("%d", n) + "." + frac
}

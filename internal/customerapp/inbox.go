package customerapp

import (
	"container/list"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
)

const (
	defaultInboxSize      = 50
	defaultInboxCustomers = 10000
)

type inboxEntry struct {
	customerID uuid.UUID
	updates    []model.PaymentStatusUpdate
}

// Inbox keeps the latest status updates per customer in memory, newest first.
// Once it holds updates for the maximum number of customers, the customer whose
// inbox was written least recently is dropped.
type Inbox struct {
	mu        sync.Mutex
	size      int
	customers int
	order     *list.List
	items     map[uuid.UUID]*list.Element
}

func NewInbox(size, customers int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	if customers <= 0 {
		customers = defaultInboxCustomers
	}
	return &Inbox{
		size:      size,
		customers: customers,
		order:     list.New(),
		items:     make(map[uuid.UUID]*list.Element),
	}
}

func (i *Inbox) Add(u model.PaymentStatusUpdate) {
	i.mu.Lock()
	defer i.mu.Unlock()

	el, ok := i.items[u.CustomerID]
	if !ok {
		el = i.order.PushFront(&inboxEntry{customerID: u.CustomerID})
		i.items[u.CustomerID] = el
	} else {
		i.order.MoveToFront(el)
	}

	entry := el.Value.(*inboxEntry)
	updates := append([]model.PaymentStatusUpdate{u}, entry.updates...)
	if len(updates) > i.size {
		updates = updates[:i.size]
	}
	entry.updates = updates

	for i.order.Len() > i.customers {
		oldest := i.order.Back()
		i.order.Remove(oldest)
		delete(i.items, oldest.Value.(*inboxEntry).customerID)
	}
}

func (i *Inbox) List(customerID uuid.UUID) []model.PaymentStatusUpdate {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := []model.PaymentStatusUpdate{}
	if el, ok := i.items[customerID]; ok {
		out = slices.Clone(el.Value.(*inboxEntry).updates)
	}
	return out
}

// Len reports how many customers currently have updates.
func (i *Inbox) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.order.Len()
}

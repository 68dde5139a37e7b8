package service

import (
	"context"
	"sync"
	"time"

	"ticketing-service/internal/models"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for store.Store. A single mutex plays
// the role of the per-row locks: every mutating call is one atomic unit,
// which is exactly the guarantee the SQL transactions provide.
type fakeStore struct {
	mu          sync.Mutex
	events      map[int64]*models.Event
	ticketTypes map[int64]*models.TicketType
	orders      map[int64]*models.Order
	nextEvent   int64
	nextTicket  int64
	nextOrder   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      make(map[int64]*models.Event),
		ticketTypes: make(map[int64]*models.TicketType),
		orders:      make(map[int64]*models.Order),
	}
}

func (f *fakeStore) addEvent(category, name string, adminID int64, status string) *models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextEvent++
	e := &models.Event{
		ID:           f.nextEvent,
		Category:     category,
		Name:         name,
		Date:         time.Now().Add(24 * time.Hour),
		Location:     "somewhere",
		Status:       status,
		OwnerAdminID: adminID,
		CreatedAt:    time.Now(),
	}
	f.events[e.ID] = e
	return e
}

func (f *fakeStore) addTicketType(eventID int64, label string, price decimal.Decimal, stock int) *models.TicketType {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTicket++
	tt := &models.TicketType{
		ID:           f.nextTicket,
		EventID:      eventID,
		Label:        label,
		Price:        price,
		InitialStock: stock,
		Stock:        stock,
		CreatedAt:    time.Now(),
	}
	f.ticketTypes[tt.ID] = tt
	return tt
}

func orderCopy(o *models.Order) *models.Order {
	cp := *o
	return &cp
}

func (f *fakeStore) ReserveTicketTx(ctx context.Context, ticketTypeID, userID int64, quantity int, idempotencyKey string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tt, ok := f.ticketTypes[ticketTypeID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if tt.Stock < quantity {
		return nil, models.ErrOutOfStock
	}
	tt.Stock -= quantity

	f.nextOrder++
	now := time.Now()
	order := &models.Order{
		ID:             f.nextOrder,
		UserID:         userID,
		TicketTypeID:   ticketTypeID,
		Quantity:       quantity,
		UnitPrice:      tt.Price,
		Status:         models.OrderStatusPending,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.orders[order.ID] = order
	return orderCopy(order), nil
}

func (f *fakeStore) ReleaseOrderTx(ctx context.Context, orderID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if models.TerminalOrderStatus(order.Status) {
		return nil, models.ErrAlreadyFinalized
	}
	order.Status = models.OrderStatusRejected
	order.UpdatedAt = time.Now()
	f.ticketTypes[order.TicketTypeID].Stock += order.Quantity
	return orderCopy(order), nil
}

func (f *fakeStore) ApproveOrderTx(ctx context.Context, orderID int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if models.TerminalOrderStatus(order.Status) {
		return nil, models.ErrAlreadyFinalized
	}
	order.Status = models.OrderStatusApproved
	order.UpdatedAt = time.Now()
	return orderCopy(order), nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return orderCopy(order), nil
}

func (f *fakeStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.IdempotencyKey == key {
			return orderCopy(order), nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetTicketType(ctx context.Context, id int64) (*models.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *tt
	return &cp, nil
}

func (f *fakeStore) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []models.Order
	for _, order := range f.orders {
		if order.Status == models.OrderStatusPending && order.CreatedAt.Before(before) {
			stale = append(stale, *order)
			if len(stale) == limit {
				break
			}
		}
	}
	return stale, nil
}

func (f *fakeStore) OwnerAdminIDForOrder(ctx context.Context, orderID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return 0, models.ErrNotFound
	}
	tt := f.ticketTypes[order.TicketTypeID]
	return f.events[tt.EventID].OwnerAdminID, nil
}

func (f *fakeStore) ListPendingByAdmin(ctx context.Context, adminID int64) ([]models.PendingOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []models.PendingOrder
	for _, order := range f.orders {
		if order.Status != models.OrderStatusPending {
			continue
		}
		tt := f.ticketTypes[order.TicketTypeID]
		event := f.events[tt.EventID]
		if event.OwnerAdminID != adminID {
			continue
		}
		pending = append(pending, models.PendingOrder{
			OrderID:       order.ID,
			UserID:        order.UserID,
			EventName:     event.Name,
			EventCategory: event.Category,
			TicketLabel:   tt.Label,
			Quantity:      order.Quantity,
			UnitPrice:     order.UnitPrice,
			CreatedAt:     order.CreatedAt,
		})
	}
	return pending, nil
}

// CatalogStore methods

func (f *fakeStore) CreateEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextEvent++
	event.ID = f.nextEvent
	event.CreatedAt = time.Now()
	cp := *event
	f.events[event.ID] = &cp
	return nil
}

func (f *fakeStore) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *event
	return &cp, nil
}

func (f *fakeStore) ListPublishedEvents(ctx context.Context, category string) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []models.Event
	for id := int64(1); id <= f.nextEvent; id++ {
		event, ok := f.events[id]
		if !ok || event.Status != models.EventStatusPublished {
			continue
		}
		if category != "" && event.Category != category {
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

func (f *fakeStore) ListEventsByAdmin(ctx context.Context, adminID int64) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []models.Event
	for id := int64(1); id <= f.nextEvent; id++ {
		if event, ok := f.events[id]; ok && event.OwnerAdminID == adminID {
			events = append(events, *event)
		}
	}
	return events, nil
}

func (f *fakeStore) UpdateEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *event
	f.events[event.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateEventStatus(ctx context.Context, eventID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok {
		return models.ErrNotFound
	}
	event.Status = status
	return nil
}

func (f *fakeStore) DeleteEventTx(ctx context.Context, eventID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[eventID]; !ok {
		return models.ErrNotFound
	}
	for _, order := range f.orders {
		tt := f.ticketTypes[order.TicketTypeID]
		if tt.EventID == eventID && order.Status == models.OrderStatusPending {
			return models.ErrConflict
		}
	}
	for id, tt := range f.ticketTypes {
		if tt.EventID == eventID {
			delete(f.ticketTypes, id)
		}
	}
	delete(f.events, eventID)
	return nil
}

func (f *fakeStore) CreateTicketType(ctx context.Context, tt *models.TicketType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTicket++
	tt.ID = f.nextTicket
	tt.CreatedAt = time.Now()
	cp := *tt
	f.ticketTypes[tt.ID] = &cp
	return nil
}

func (f *fakeStore) ListTicketTypesByEvent(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tts []models.TicketType
	for id := int64(1); id <= f.nextTicket; id++ {
		if tt, ok := f.ticketTypes[id]; ok && tt.EventID == eventID {
			tts = append(tts, *tt)
		}
	}
	return tts, nil
}

func (f *fakeStore) ListTicketTypes(ctx context.Context) ([]models.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tts []models.TicketType
	for id := int64(1); id <= f.nextTicket; id++ {
		if tt, ok := f.ticketTypes[id]; ok {
			tts = append(tts, *tt)
		}
	}
	return tts, nil
}

// backdate shifts an order's creation time into the past, for expiry tests
func (f *fakeStore) backdate(orderID int64, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID].CreatedAt = f.orders[orderID].CreatedAt.Add(-d)
}

// stock reads the current fake stock for assertions
func (f *fakeStore) stock(ticketTypeID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticketTypes[ticketTypeID].Stock
}

// heldQuantity sums quantities over pending and approved orders for a
// ticket type, the left side of the conservation invariant.
func (f *fakeStore) heldQuantity(ticketTypeID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, order := range f.orders {
		if order.TicketTypeID != ticketTypeID {
			continue
		}
		if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusApproved {
			total += order.Quantity
		}
	}
	return total
}

// fakeMirror is an in-memory stock mirror covering both the writer and
// reader interfaces.
type fakeMirror struct {
	mu    sync.Mutex
	stock map[int64]int
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{stock: make(map[int64]int)}
}

func (m *fakeMirror) InitStock(ctx context.Context, ticketTypeID int64, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[ticketTypeID] = stock
	return nil
}

func (m *fakeMirror) DecrStock(ctx context.Context, ticketTypeID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.stock[ticketTypeID]; ok {
		v -= quantity
		if v < 0 {
			v = 0
		}
		m.stock[ticketTypeID] = v
	}
	return nil
}

func (m *fakeMirror) IncrStock(ctx context.Context, ticketTypeID int64, quantity, initialStock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.stock[ticketTypeID]; ok {
		v += quantity
		if v > initialStock {
			v = initialStock
		}
		m.stock[ticketTypeID] = v
	}
	return nil
}

func (m *fakeMirror) GetStock(ctx context.Context, ticketTypeID int64) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.stock[ticketTypeID]
	return v, ok, nil
}

func (m *fakeMirror) DeleteStock(ctx context.Context, ticketTypeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stock, ticketTypeID)
	return nil
}

// recordingPublisher captures published event types for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) append(eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	p.append(e.EventType)
	return nil
}

func (p *recordingPublisher) PublishOrderApproved(ctx context.Context, e *models.OrderApprovedEvent) error {
	p.append(e.EventType)
	return nil
}

func (p *recordingPublisher) PublishOrderRejected(ctx context.Context, e *models.OrderRejectedEvent) error {
	p.append(e.EventType)
	return nil
}

func (p *recordingPublisher) PublishOrderExpired(ctx context.Context, e *models.OrderExpiredEvent) error {
	p.append(e.EventType)
	return nil
}

package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"helpdesk/internal/model"
)

// fakeSender накапливает отправленные сообщения; для выбранных получателей
// имитирует сбой транспорта.
type fakeSender struct {
	mu      sync.Mutex
	texts   map[int64][]string
	prompts map[int64][]promptCall
	fail    map[int64]bool
}

type promptCall struct {
	requestID int
	text      string
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		texts:   make(map[int64][]string),
		prompts: make(map[int64][]promptCall),
		fail:    make(map[int64]bool),
	}
}

func (f *fakeSender) SendText(telegramID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[telegramID] {
		return errors.New("транспорт недоступен")
	}
	f.texts[telegramID] = append(f.texts[telegramID], text)
	return nil
}

func (f *fakeSender) SendClaimPrompt(telegramID int64, requestID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[telegramID] {
		return errors.New("транспорт недоступен")
	}
	f.prompts[telegramID] = append(f.prompts[telegramID], promptCall{requestID: requestID, text: text})
	return nil
}

func (f *fakeSender) failFor(telegramID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[telegramID] = true
}

func (f *fakeSender) textsFor(telegramID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts[telegramID]...)
}

func (f *fakeSender) promptsFor(telegramID int64) []promptCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]promptCall(nil), f.prompts[telegramID]...)
}

// memStore — хранилище в памяти с теми же контрактами, что и sqlx-репозитории:
// условный Create, CAS-забор под мьютексом, те же sentinel-ошибки.
type memStore struct {
	mu       sync.Mutex
	users    map[int]*model.User
	byTG     map[int64]*model.User
	requests map[int]*model.SupportRequest
	messages []model.Message
	nextUser int
	nextReq  int
	nextMsg  int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int]*model.User),
		byTG:     make(map[int64]*model.User),
		requests: make(map[int]*model.SupportRequest),
	}
}

func (m *memStore) GetOrCreate(telegramID int64, username, firstName, lastName string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byTG[telegramID]; ok {
		out := *u
		return &out, nil
	}
	m.nextUser++
	u := &model.User{
		ID:          m.nextUser,
		TelegramID:  telegramID,
		Username:    username,
		FirstName:   firstName,
		LastName:    lastName,
		IsAvailable: true,
		CreatedAt:   time.Now().UTC(),
	}
	m.users[u.ID] = u
	m.byTG[telegramID] = u
	out := *u
	return &out, nil
}

func (m *memStore) GetByID(id int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("пользователь id=%d: %w", id, model.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (m *memStore) SetAgent(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsAgent = true
	return nil
}

func (m *memStore) SetLanguages(id int, languages string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Languages = languages
	return nil
}

func (m *memStore) SetAvailability(id int, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsAvailable = available
	return nil
}

func (m *memStore) FindEligibleAgents(language string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var agents []model.User
	for _, u := range m.users {
		if !u.IsAgent || !u.IsAvailable {
			continue
		}
		for _, lang := range u.LanguageList() {
			if lang == language {
				agents = append(agents, *u)
				break
			}
		}
	}
	return agents, nil
}

func (m *memStore) ListAgents() ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var agents []model.User
	for _, u := range m.users {
		if u.IsAgent {
			agents = append(agents, *u)
		}
	}
	return agents, nil
}

func (m *memStore) Create(customerID int, language, firstText string) (*model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.CustomerID == customerID && r.IsActive() {
			return nil, model.ErrRequestExists
		}
	}
	m.nextReq++
	req := &model.SupportRequest{
		ID:         m.nextReq,
		CustomerID: customerID,
		Language:   language,
		Status:     model.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	m.requests[req.ID] = req
	m.appendLocked(req.ID, customerID, firstText)
	out := *req
	return &out, nil
}

func (m *memStore) GetByIDRequest(id int) (*model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getRequestLocked(id)
}

func (m *memStore) getRequestLocked(id int) (*model.SupportRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("обращение id=%d: %w", id, model.ErrNotFound)
	}
	out := *r
	return &out, nil
}

func (m *memStore) Claim(id, agentID int) (*model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("обращение id=%d: %w", id, model.ErrNotFound)
	}
	if r.Status != model.StatusPending {
		return nil, fmt.Errorf("обращение id=%d: %w", id, model.ErrAlreadyClaimed)
	}
	now := time.Now().UTC()
	r.Status = model.StatusAssigned
	r.AgentID = &agentID
	r.AssignedAt = &now
	out := *r
	return &out, nil
}

func (m *memStore) Close(id, agentID int) (*model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("обращение id=%d: %w", id, model.ErrNotFound)
	}
	if r.Status != model.StatusAssigned {
		return nil, fmt.Errorf("обращение id=%d в статусе %s: %w", id, r.Status, model.ErrInvalidState)
	}
	if r.AgentID == nil || *r.AgentID != agentID {
		return nil, fmt.Errorf("обращение id=%d назначено другому оператору: %w", id, model.ErrUnauthorized)
	}
	now := time.Now().UTC()
	r.Status = model.StatusClosed
	r.ClosedAt = &now
	out := *r
	return &out, nil
}

func (m *memStore) FindActiveByCustomer(customerID int) (*model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.CustomerID == customerID && r.IsActive() {
			out := *r
			return &out, nil
		}
	}
	return nil, fmt.Errorf("активное обращение клиента id=%d: %w", customerID, model.ErrNotFound)
}

func (m *memStore) FindAssignedByAgent(agentID int) ([]model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SupportRequest
	for _, r := range m.requests {
		if r.Status == model.StatusAssigned && r.AgentID != nil && *r.AgentID == agentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) FindPendingByLanguages(languages []string) ([]model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SupportRequest
	for _, r := range m.requests {
		if r.Status != model.StatusPending {
			continue
		}
		for _, lang := range languages {
			if r.Language == lang {
				out = append(out, *r)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) ListByStatus(status string) ([]model.SupportRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SupportRequest
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) Append(requestID, senderID int, text string) (*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.appendLocked(requestID, senderID, text)
	out := *msg
	return &out, nil
}

func (m *memStore) appendLocked(requestID, senderID int, text string) *model.Message {
	m.nextMsg++
	msg := model.Message{
		ID:        m.nextMsg,
		RequestID: requestID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	m.messages = append(m.messages, msg)
	return &m.messages[len(m.messages)-1]
}

func (m *memStore) ListByRequest(requestID int) ([]model.MessageWithSender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.MessageWithSender
	for _, msg := range m.messages {
		if msg.RequestID != requestID {
			continue
		}
		name := ""
		if u, ok := m.users[msg.SenderID]; ok {
			name = u.DisplayName()
		}
		out = append(out, model.MessageWithSender{Message: msg, SenderName: name})
	}
	return out, nil
}

// GetByID у memStore отдан пользователям; для RequestStore интерфейс требует
// одноимённый метод — разруливаем обёрткой.
type memRequestStore struct{ *memStore }

func (m memRequestStore) GetByID(id int) (*model.SupportRequest, error) {
	return m.memStore.GetByIDRequest(id)
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// addCustomer создаёт клиента в хранилище.
func addCustomer(t *testing.T, store *memStore, telegramID int64, name string) *model.User {
	t.Helper()
	u, err := store.GetOrCreate(telegramID, name, name, "")
	if err != nil {
		t.Fatalf("создание клиента: %v", err)
	}
	return u
}

// addAgent создаёт оператора с языками и доступностью.
func addAgent(t *testing.T, store *memStore, telegramID int64, name, languages string, available bool) *model.User {
	t.Helper()
	u := addCustomer(t, store, telegramID, name)
	if err := store.SetAgent(u.ID); err != nil {
		t.Fatalf("назначение оператора: %v", err)
	}
	if err := store.SetLanguages(u.ID, languages); err != nil {
		t.Fatalf("языки оператора: %v", err)
	}
	if err := store.SetAvailability(u.ID, available); err != nil {
		t.Fatalf("доступность оператора: %v", err)
	}
	u.IsAgent = true
	u.Languages = languages
	u.IsAvailable = available
	return u
}

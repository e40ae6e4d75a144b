package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store used by the service tests.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*User
	tokens map[string]*ResetToken
	nextID int
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*User),
		tokens: make(map[string]*ResetToken),
	}
}

func (m *memStore) Users() UserStore             { return (*memUsers)(m) }
func (m *memStore) ResetTokens() ResetTokenStore { return (*memTokens)(m) }

func (m *memStore) id() string {
	m.nextID++
	return fmt.Sprintf("id-%04d", m.nextID)
}

type memUsers memStore

func (m *memUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = (*memStore)(m).id()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Find(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (m *memUsers) SetRole(_ context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *memUsers) SetStatus(_ context.Context, userID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *memUsers) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	delete(m.users, userID)
	return nil
}

func (m *memUsers) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memUsers) CountRegisteredSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if !u.RegisteredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) CountActiveSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, u := range m.users {
		if u.LastLoginAt != nil && !u.LastLoginAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) MonthlyRegistrations(_ context.Context, months int) ([]MonthlyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[[2]int]int64)
	for _, u := range m.users {
		counts[[2]int{u.RegisteredAt.Year(), int(u.RegisteredAt.Month())}]++
	}
	var res []MonthlyCount
	for k, v := range counts {
		res = append(res, MonthlyCount{Year: k[0], Month: k[1], Count: v})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Year != res[j].Year {
			return res[i].Year > res[j].Year
		}
		return res[i].Month > res[j].Month
	})
	if len(res) > months {
		res = res[:months]
	}
	return res, nil
}

func (m *memUsers) sorted() []User {
	var users []User
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].RegisteredAt.After(users[j].RegisteredAt)
	})
	return users
}

func (m *memUsers) Latest(_ context.Context, n int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := m.sorted()
	if len(users) > n {
		users = users[:n]
	}
	return users, nil
}

func (m *memUsers) List(_ context.Context, offset, limit int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := m.sorted()
	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

type memTokens memStore

func (m *memTokens) Create(_ context.Context, t *ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = (*memStore)(m).id()
	}
	cp := *t
	m.tokens[t.ID] = &cp
	return nil
}

func (m *memTokens) FindByToken(_ context.Context, token string) (*ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memTokens) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *memTokens) DeleteForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *memTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tokens {
		if t.CreatedAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) tokenCountForUser(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// recordingMailer captures sent links and optionally fails.
type recordingMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
	err   error
}

func (m *recordingMailer) SendResetLink(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

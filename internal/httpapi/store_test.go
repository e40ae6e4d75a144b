package httpapi

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"restomap.org/internal/auth"
)

// stubStore is a minimal in-memory auth.Store for handler tests.
type stubStore struct {
	mu     sync.Mutex
	users  map[string]*auth.User
	tokens map[string]*auth.ResetToken
	nextID int
}

func newStubStore() *stubStore {
	return &stubStore{
		users:  make(map[string]*auth.User),
		tokens: make(map[string]*auth.ResetToken),
	}
}

func (s *stubStore) Users() auth.UserStore             { return (*stubUsers)(s) }
func (s *stubStore) ResetTokens() auth.ResetTokenStore { return (*stubTokens)(s) }

func (s *stubStore) id() string {
	s.nextID++
	return fmt.Sprintf("u-%03d", s.nextID)
}

type stubUsers stubStore

func (s *stubUsers) Create(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return auth.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = (*stubStore)(s).id()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubUsers) Find(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *stubUsers) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (s *stubUsers) SetRole(_ context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Role = role
	return nil
}

func (s *stubUsers) SetStatus(_ context.Context, userID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Status = status
	return nil
}

func (s *stubUsers) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return auth.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *stubUsers) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

func (s *stubUsers) CountRegisteredSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if !u.RegisteredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *stubUsers) CountActiveSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.LastLoginAt != nil && !u.LastLoginAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *stubUsers) MonthlyRegistrations(_ context.Context, months int) ([]auth.MonthlyCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[[2]int]int64)
	for _, u := range s.users {
		counts[[2]int{u.RegisteredAt.Year(), int(u.RegisteredAt.Month())}]++
	}
	var res []auth.MonthlyCount
	for k, v := range counts {
		res = append(res, auth.MonthlyCount{Year: k[0], Month: k[1], Count: v})
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

func (s *stubUsers) sorted() []auth.User {
	var users []auth.User
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].RegisteredAt.After(users[j].RegisteredAt)
	})
	return users
}

func (s *stubUsers) Latest(_ context.Context, n int) ([]auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.sorted()
	if len(users) > n {
		users = users[:n]
	}
	return users, nil
}

func (s *stubUsers) List(_ context.Context, offset, limit int) ([]auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.sorted()
	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

type stubTokens stubStore

func (s *stubTokens) Create(_ context.Context, t *auth.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = (*stubStore)(s).id()
	}
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *stubTokens) FindByToken(_ context.Context, token string) (*auth.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *stubTokens) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
	return nil
}

func (s *stubTokens) DeleteForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *stubTokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.CreatedAt.Before(before) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

// captureMailer records reset links instead of sending them.
type captureMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *captureMailer) SendResetLink(_ context.Context, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *captureMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		return ""
	}
	return m.links[len(m.links)-1]
}

package auth

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage in process memory. It backs tests and
// single-instance development runs.
type MemoryStorage struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*User
	byEmail  map[string]uuid.UUID
	accounts map[uuid.UUID][]Account
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:    make(map[uuid.UUID]*User),
		byEmail:  make(map[string]uuid.UUID),
		accounts: make(map[uuid.UUID][]Account),
	}
}

var _ Storage = (*MemoryStorage)(nil)

func clone(u *User) *User {
	c := *u
	if u.BanExpires != nil {
		t := *u.BanExpires
		c.BanExpires = &t
	}
	return &c
}

func (m *MemoryStorage) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return ErrEmailAlreadyExists
	}
	m.users[user.ID] = clone(user)
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryStorage) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return clone(u), nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return clone(m.users[id]), nil
}

func (m *MemoryStorage) UpdateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if old.Email != user.Email {
		if _, taken := m.byEmail[user.Email]; taken {
			return ErrEmailAlreadyExists
		}
		delete(m.byEmail, old.Email)
		m.byEmail[user.Email] = user.ID
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = clone(user)
	return nil
}

func (m *MemoryStorage) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.users, id)
	delete(m.accounts, id)
	return nil
}

func (m *MemoryStorage) StorePasswordHash(_ context.Context, userID uuid.UUID, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	accs := m.accounts[userID]
	for i := range accs {
		if accs[i].ProviderID == ProviderCredential {
			accs[i].PasswordHash = slices.Clone(hash)
			return nil
		}
	}
	m.accounts[userID] = append(accs, Account{
		ID:           uuid.New(),
		UserID:       userID,
		ProviderID:   ProviderCredential,
		AccountID:    userID.String(),
		PasswordHash: slices.Clone(hash),
		CreatedAt:    time.Now(),
	})
	return nil
}

func (m *MemoryStorage) GetPasswordHash(_ context.Context, userID uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts[userID] {
		if a.ProviderID == ProviderCredential && len(a.PasswordHash) > 0 {
			return slices.Clone(a.PasswordHash), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStorage) StoreOAuthLink(_ context.Context, userID uuid.UUID, provider, providerUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	for _, a := range m.accounts[userID] {
		if a.ProviderID == provider && a.AccountID == providerUserID {
			return nil
		}
	}
	m.accounts[userID] = append(m.accounts[userID], Account{
		ID:         uuid.New(),
		UserID:     userID,
		ProviderID: provider,
		AccountID:  providerUserID,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (m *MemoryStorage) GetUserByOAuth(_ context.Context, provider, providerUserID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for userID, accs := range m.accounts {
		for _, a := range accs {
			if a.ProviderID == provider && a.AccountID == providerUserID {
				return clone(m.users[userID]), nil
			}
		}
	}
	return nil, ErrUserNotFound
}

// ListUsers orders by creation time, newest first.
func (m *MemoryStorage) ListUsers(_ context.Context, params ListUsersParams) (*UserList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(params.Search))
	var matched []*User
	for _, u := range m.users {
		if search == "" || strings.Contains(strings.ToLower(u.Email), search) || strings.Contains(strings.ToLower(u.Name), search) {
			matched = append(matched, clone(u))
		}
	}
	slices.SortFunc(matched, func(a, b *User) int { return b.CreatedAt.Compare(a.CreatedAt) })

	if params.Offset < 0 {
		params.Offset = 0
	}
	list := &UserList{Total: len(matched), Users: []*User{}}
	if params.Offset >= len(matched) {
		return list, nil
	}
	end := len(matched)
	if params.Limit > 0 && params.Offset+params.Limit < end {
		end = params.Offset + params.Limit
	}
	list.Users = matched[params.Offset:end]
	return list, nil
}

package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/RoberAF/chatbot/config"
	"github.com/RoberAF/chatbot/internal/memory"
	"github.com/RoberAF/chatbot/internal/model"
	"github.com/RoberAF/chatbot/pkg/mailer"
)

// In-memory store implementations used across the service tests.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[uint]*model.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) GetByConfirmToken(_ context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ConfirmToken != nil && *user.ConfirmToken == token &&
			user.ConfirmTokenExpiry != nil && user.ConfirmTokenExpiry.After(time.Now()) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) GetByResetToken(_ context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ResetToken != nil && *user.ResetToken == token &&
			user.ResetTokenExpiry != nil && user.ResetTokenExpiry.After(time.Now()) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) ConfirmEmail(_ context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.EmailConfirmed = true
	user.ConfirmToken = nil
	user.ConfirmTokenExpiry = nil
	return nil
}

func (f *fakeUserStore) SetResetToken(_ context.Context, userID uint, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID uint, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.Password = passwordHash
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	return nil
}

func (f *fakeUserStore) SetActivePersonality(_ context.Context, userID uint, personalityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.ActivePersonalityID = &personalityID
	return nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, userID uint, fields map[string]any) (*model.User, error) {
	f.mu.Lock()
	user, ok := f.users[userID]
	if !ok {
		f.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	if name, ok := fields["name"].(string); ok {
		user.Name = name
	}
	if age, ok := fields["age"].(int); ok {
		user.Age = &age
	}
	f.mu.Unlock()
	return f.GetByID(context.Background(), userID)
}

type fakeTokenStore struct {
	mu     sync.Mutex
	nextID uint
	byHash map[string]*model.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{byHash: make(map[string]*model.RefreshToken)}
}

func (f *fakeTokenStore) Create(_ context.Context, token *model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	token.ID = f.nextID
	token.CreatedAt = time.Now()
	clone := *token
	f.byHash[token.TokenHash] = &clone
	return nil
}

func (f *fakeTokenStore) Consume(_ context.Context, tokenHash string) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.byHash[tokenHash]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	delete(f.byHash, tokenHash)
	return record.UserID, nil
}

func (f *fakeTokenStore) DeleteAllForUser(_ context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, record := range f.byHash {
		if record.UserID == userID {
			delete(f.byHash, hash)
		}
	}
	return nil
}

func (f *fakeTokenStore) count(userID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, record := range f.byHash {
		if record.UserID == userID {
			n++
		}
	}
	return n
}

type fakePersonaStore struct {
	mu       sync.Mutex
	personas []model.Personality
}

func newFakePersonaStore() *fakePersonaStore {
	return &fakePersonaStore{}
}

func (f *fakePersonaStore) Create(_ context.Context, p *model.Personality) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.CreatedAt = time.Now()
	f.personas = append(f.personas, *p)
	return nil
}

func (f *fakePersonaStore) GetByID(_ context.Context, id string) (*model.Personality, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.personas {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePersonaStore) ListByUser(_ context.Context, userID uint) ([]model.Personality, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Personality
	// Newest first, matching the repository ordering.
	for i := len(f.personas) - 1; i >= 0; i-- {
		if f.personas[i].UserID == userID {
			out = append(out, f.personas[i])
		}
	}
	return out, nil
}

func (f *fakePersonaStore) CountByUser(_ context.Context, userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.personas {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   uint
	messages []model.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (f *fakeMessageStore) Append(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeMessageStore) ListByPersonality(_ context.Context, personalityID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.PersonalityID == personalityID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[uint]*model.Subscription
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: make(map[uint]*model.Subscription)}
}

func (f *fakeSubscriptionStore) GetByUser(_ context.Context, userID uint) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *sub
	return &clone, nil
}

func (f *fakeSubscriptionStore) Upsert(_ context.Context, sub *model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *sub
	f.subs[sub.UserID] = &clone
	return nil
}

// fakeOracle returns canned completions and records what it was asked.
type fakeOracle struct {
	mu         sync.Mutex
	reply      string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeOracle) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userMessage
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeOracle) CompleteSystem(ctx context.Context, systemPrompt string) (string, error) {
	return f.Complete(ctx, systemPrompt, "")
}

type fakeVerifier struct {
	email string
	err   error
}

func (f *fakeVerifier) EmailFromToken(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.email, nil
}

// testEnv wires every service against the in-memory fakes.
type testEnv struct {
	users    *fakeUserStore
	tokens   *fakeTokenStore
	personas *fakePersonaStore
	messages *fakeMessageStore
	subs     *fakeSubscriptionStore
	oracle   *fakeOracle
	verifier *fakeVerifier

	jwt      *JWTService
	billing  *SubscriptionService
	persona  *PersonalityService
	auth     *AuthService
	chat     *ChatService
	userSvc  *UserService
	memStore *memory.InProcessStore
}

func newTestEnv() *testEnv {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.ConfirmTokenTTL = time.Hour
	cfg.JWT.ResetTokenTTL = time.Hour

	env := &testEnv{
		users:    newFakeUserStore(),
		tokens:   newFakeTokenStore(),
		personas: newFakePersonaStore(),
		messages: newFakeMessageStore(),
		subs:     newFakeSubscriptionStore(),
		oracle:   &fakeOracle{reply: "hola"},
		verifier: &fakeVerifier{},
	}
	env.jwt = NewJWTService(cfg)
	env.billing = NewSubscriptionService(env.subs)
	env.persona = NewPersonalityService(env.personas, env.users, env.billing, env.oracle)
	env.auth = NewAuthService(env.users, env.tokens, env.jwt, mailer.NopMailer{}, env.verifier, env.persona, env.billing, cfg)
	env.memStore = memory.NewInProcessStore(16)
	env.chat = NewChatService(env.persona, env.messages, env.memStore, env.oracle, 5, time.Second)
	env.userSvc = NewUserService(env.users)
	return env
}

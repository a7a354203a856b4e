// Package memory provides in-memory repository implementations backing local
// development and tests. All stores are safe for concurrent use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/repositories"
)

// ConversationStore is an in-memory ConversationRepository.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*entities.Conversation
}

var _ repositories.ConversationRepository = (*ConversationStore)(nil)

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{conversations: make(map[string]*entities.Conversation)}
}

// ListByUser retrieves the user's conversations, newest first. A limit of
// zero or less returns all of them.
func (s *ConversationStore) ListByUser(ctx context.Context, userID string, limit int) ([]*entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByUser counts the user's conversations.
func (s *ConversationStore) CountByUser(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.conversations {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

// Upsert creates or replaces a conversation.
func (s *ConversationStore) Upsert(ctx context.Context, conversation *entities.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversation.ID] = conversation
	return nil
}

// MessageStore is an in-memory MessageRepository.
type MessageStore struct {
	mu       sync.RWMutex
	messages map[string]*entities.Message
}

var _ repositories.MessageRepository = (*MessageStore)(nil)

// NewMessageStore creates an empty message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{messages: make(map[string]*entities.Message)}
}

// ListRecent retrieves matching messages, newest first.
func (s *MessageStore) ListRecent(ctx context.Context, query repositories.MessageQuery) ([]*entities.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*entities.Message, 0)
	for _, m := range s.messages {
		if matchesQuery(m, query) {
			result = append(result, m)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

// Count counts matching messages.
func (s *MessageStore) Count(ctx context.Context, query repositories.MessageQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.messages {
		if matchesQuery(m, query) {
			count++
		}
	}
	return count, nil
}

// Upsert creates or replaces a message.
func (s *MessageStore) Upsert(ctx context.Context, message *entities.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[message.ID] = message
	return nil
}

func matchesQuery(m *entities.Message, query repositories.MessageQuery) bool {
	if len(query.ConversationIDs) > 0 {
		found := false
		for _, id := range query.ConversationIDs {
			if m.ConversationID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if query.Role != "" && m.Role != query.Role {
		return false
	}
	if !query.Since.IsZero() && m.Timestamp.Before(query.Since) {
		return false
	}
	if query.Contains != "" &&
		!strings.Contains(strings.ToLower(m.Content), strings.ToLower(query.Contains)) {
		return false
	}
	return true
}

// UserStore is an in-memory UserRepository. GetByID on an unknown ID returns
// a nil user and no error.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*entities.User
}

var _ repositories.UserRepository = (*UserStore)(nil)

// NewUserStore creates an empty user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*entities.User)}
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id], nil
}

// Upsert creates or replaces a user profile.
func (s *UserStore) Upsert(ctx context.Context, user *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// KnowledgeStore is an in-memory KnowledgeRepository.
type KnowledgeStore struct {
	mu      sync.RWMutex
	entries map[string]*entities.KnowledgeEntry
}

var _ repositories.KnowledgeRepository = (*KnowledgeStore)(nil)

// NewKnowledgeStore creates an empty knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{entries: make(map[string]*entities.KnowledgeEntry)}
}

// ListBySpecialties retrieves entries tagged with any of the given
// specialties, newest first. An empty slice retrieves all entries.
func (s *KnowledgeStore) ListBySpecialties(ctx context.Context, specialties []string, limit int) ([]*entities.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(specialties))
	for _, sp := range specialties {
		wanted[sp] = struct{}{}
	}

	result := make([]*entities.KnowledgeEntry, 0)
	for _, e := range s.entries {
		if len(wanted) > 0 {
			if _, ok := wanted[e.Specialty]; !ok {
				continue
			}
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountBySpecialty counts entries for a specialty.
func (s *KnowledgeStore) CountBySpecialty(ctx context.Context, specialty string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.Specialty == specialty {
			count++
		}
	}
	return count, nil
}

// Upsert creates or replaces a knowledge entry.
func (s *KnowledgeStore) Upsert(ctx context.Context, entry *entities.KnowledgeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

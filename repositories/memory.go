// File: /repositories/memory.go
package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"yonkoma-api/models"
)

// Operation names passed to MemoryStore hooks
const (
	OpListPosts          = "ListPosts"
	OpGetPost            = "GetPost"
	OpCreatePost         = "CreatePost"
	OpListLikedPostIDs   = "ListLikedPostIDs"
	OpListLikes          = "ListLikes"
	OpListAllLikes       = "ListAllLikes"
	OpPutLike            = "PutLike"
	OpDeleteLike         = "DeleteLike"
	OpCreateUser         = "CreateUser"
	OpGetUser            = "GetUser"
	OpGetUserByEmail     = "GetUserByEmail"
	OpUpdateProfileImage = "UpdateProfileImage"
	OpListReadStates     = "ListReadStates"
	OpPutReadState       = "PutReadState"
)

// Hook runs before every MemoryStore operation. A non-nil error fails the
// operation without touching the data.
type Hook func(ctx context.Context, op string) error

// MemoryStore keeps every collection in process memory
type MemoryStore struct {
	mutex sync.RWMutex

	posts     map[string]models.Post
	postOrder []string
	likes     map[string]map[string]models.LikeRecord
	users     map[string]models.User
	reads     map[string]map[string]models.ReadState

	hookMutex sync.RWMutex
	hook      Hook
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts: make(map[string]models.Post),
		likes: make(map[string]map[string]models.LikeRecord),
		users: make(map[string]models.User),
		reads: make(map[string]map[string]models.ReadState),
	}
}

// NewMemoryBackend wraps a fresh MemoryStore as a Store
func NewMemoryBackend() (*Store, *MemoryStore) {
	m := NewMemoryStore()
	return &Store{Posts: m, Likes: m, Users: m, Reads: m}, m
}

// SetHook replaces the hook; nil removes it
func (m *MemoryStore) SetHook(hook Hook) {
	m.hookMutex.Lock()
	defer m.hookMutex.Unlock()
	m.hook = hook
}

// FailOn makes every listed operation fail with err
func (m *MemoryStore) FailOn(err error, ops ...string) {
	failing := make(map[string]bool, len(ops))
	for _, op := range ops {
		failing[op] = true
	}
	m.SetHook(func(_ context.Context, op string) error {
		if failing[op] {
			return err
		}
		return nil
	})
}

func (m *MemoryStore) before(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.hookMutex.RLock()
	hook := m.hook
	m.hookMutex.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(ctx, op)
}

func (m *MemoryStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	if err := m.before(ctx, OpListPosts); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := make([]models.Post, 0, len(m.postOrder))
	for _, id := range m.postOrder {
		posts = append(posts, m.posts[id].Clone())
	}
	return posts, nil
}

func (m *MemoryStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if err := m.before(ctx, OpGetPost); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	post = post.Clone()
	return &post, nil
}

func (m *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := m.before(ctx, OpCreatePost); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[post.ID]; exists {
		return ErrDuplicate
	}
	stored := post.Clone()
	stored.IsLiked = false
	m.posts[post.ID] = stored
	m.postOrder = append(m.postOrder, post.ID)
	return nil
}

// DeletePost removes a post without touching likes that reference it
func (m *MemoryStore) DeletePost(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.posts, id)
	for i, existing := range m.postOrder {
		if existing == id {
			m.postOrder = append(m.postOrder[:i], m.postOrder[i+1:]...)
			break
		}
	}
}

func (m *MemoryStore) ListLikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	if err := m.before(ctx, OpListLikedPostIDs); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.likes[userID]))
	for id := range m.likes[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) ListLikes(ctx context.Context, userID string) ([]models.LikeRecord, error) {
	if err := m.before(ctx, OpListLikes); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return sortedLikes(m.likes[userID]), nil
}

func (m *MemoryStore) ListAllLikes(ctx context.Context) ([]models.LikeRecord, error) {
	if err := m.before(ctx, OpListAllLikes); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var all []models.LikeRecord
	for _, userLikes := range m.likes {
		all = append(all, sortedLikes(userLikes)...)
	}
	return all, nil
}

func (m *MemoryStore) PutLike(ctx context.Context, like *models.LikeRecord) error {
	if err := m.before(ctx, OpPutLike); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	userLikes, ok := m.likes[like.UserID]
	if !ok {
		userLikes = make(map[string]models.LikeRecord)
		m.likes[like.UserID] = userLikes
	}
	stored := *like
	stored.PostImages = like.PostImages.Clone()
	userLikes[like.PostID] = stored
	return nil
}

func (m *MemoryStore) DeleteLike(ctx context.Context, userID, postID string) error {
	if err := m.before(ctx, OpDeleteLike); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.likes[userID], postID)
	return nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := m.before(ctx, OpCreateUser); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.users[user.ID]; exists {
		return ErrDuplicate
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := m.before(ctx, OpGetUser); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := m.before(ctx, OpGetUserByEmail); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateProfileImage(ctx context.Context, id, url string) error {
	if err := m.before(ctx, OpUpdateProfileImage); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.ProfileImageURL = &url
	m.users[id] = user
	return nil
}

func (m *MemoryStore) ListReadStates(ctx context.Context, userID string) ([]models.ReadState, error) {
	if err := m.before(ctx, OpListReadStates); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	states := make([]models.ReadState, 0, len(m.reads[userID]))
	for _, state := range m.reads[userID] {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].PostID < states[j].PostID
	})
	return states, nil
}

func (m *MemoryStore) PutReadState(ctx context.Context, state *models.ReadState) error {
	if err := m.before(ctx, OpPutReadState); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	userReads, ok := m.reads[state.UserID]
	if !ok {
		userReads = make(map[string]models.ReadState)
		m.reads[state.UserID] = userReads
	}
	userReads[state.PostID] = *state
	return nil
}

func sortedLikes(userLikes map[string]models.LikeRecord) []models.LikeRecord {
	likes := make([]models.LikeRecord, 0, len(userLikes))
	for _, like := range userLikes {
		like.PostImages = like.PostImages.Clone()
		likes = append(likes, like)
	}
	sort.Slice(likes, func(i, j int) bool {
		if likes[i].LikedAt.Equal(likes[j].LikedAt) {
			return likes[i].PostID < likes[j].PostID
		}
		return likes[i].LikedAt.After(likes[j].LikedAt)
	})
	return likes
}

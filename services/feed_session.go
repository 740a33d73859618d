// File: /services/feed_session.go
package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
)

const defaultLikeWriteTimeout = 10 * time.Second

// LikeAction is one like or unlike issued from a FeedSession. It starts
// pending and settles exactly once, as committed or failed.
type LikeAction struct {
	PostID string
	Liked  bool

	mutex sync.RWMutex
	state models.LikeState
	err   error
	done  chan struct{}
}

func newLikeAction(postID string, liked bool) *LikeAction {
	return &LikeAction{
		PostID: postID,
		Liked:  liked,
		state:  models.LikePending,
		done:   make(chan struct{}),
	}
}

func (a *LikeAction) State() models.LikeState {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.state
}

func (a *LikeAction) Err() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.err
}

// Done is closed once the action has settled
func (a *LikeAction) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the action settles or ctx ends. On ctx expiry the
// current state, which is still pending, is returned with ctx.Err().
func (a *LikeAction) Wait(ctx context.Context) (models.LikeState, error) {
	select {
	case <-a.done:
		return a.State(), a.Err()
	case <-ctx.Done():
		return a.State(), ctx.Err()
	}
}

func (a *LikeAction) resolve(err error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if err != nil {
		a.state = models.LikeFailed
		a.err = err
	} else {
		a.state = models.LikeCommitted
	}
}

type FeedSessionOption func(*FeedSession)

// WithLikeWriteTimeout bounds each remote like write
func WithLikeWriteTimeout(d time.Duration) FeedSessionOption {
	return func(s *FeedSession) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithClock replaces time.Now for like timestamps
func WithClock(now func() time.Time) FeedSessionOption {
	return func(s *FeedSession) {
		s.now = now
	}
}

// FeedSession is the viewer's local feed state: the post list, the local
// like-id set and the like actions in flight. All state is mutated under
// one lock; remote writes run in the background in issue order and report
// back through settle.
type FeedSession struct {
	session      Session
	loader       *FeedLoader
	likes        repositories.LikeRepository
	writeTimeout time.Duration
	now          func() time.Time

	mutex     sync.Mutex
	posts     []models.Post
	index     map[string]int
	liked     map[string]bool
	committed map[string]bool
	actions   map[string]*LikeAction
	tail      *LikeAction
	loadedAt  time.Time
}

func NewFeedSession(session Session, loader *FeedLoader, likes repositories.LikeRepository, opts ...FeedSessionOption) *FeedSession {
	s := &FeedSession{
		session:      session,
		loader:       loader,
		likes:        likes,
		writeTimeout: defaultLikeWriteTimeout,
		now:          time.Now,
		index:        make(map[string]int),
		liked:        make(map[string]bool),
		committed:    make(map[string]bool),
		actions:      make(map[string]*LikeAction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FeedSession) Session() Session {
	return s.session
}

// Refresh reloads the feed. Posts with a pending action keep their local
// like state. On failure the previous state is kept and the error returned.
func (s *FeedSession) Refresh(ctx context.Context) error {
	posts, err := s.loader.LoadFeed(ctx, s.session)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	index := make(map[string]int, len(posts))
	liked := make(map[string]bool, len(posts))
	committed := make(map[string]bool, len(posts))
	for i, post := range posts {
		index[post.ID] = i
		committed[post.ID] = post.IsLiked
		liked[post.ID] = post.IsLiked
		if action, ok := s.actions[post.ID]; ok && action.State() == models.LikePending {
			liked[post.ID] = action.Liked
		}
	}

	s.posts = posts
	s.index = index
	s.liked = liked
	s.committed = committed
	s.loadedAt = s.now()
	return nil
}

// LoadedAt is the time of the last successful refresh
func (s *FeedSession) LoadedAt() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.loadedAt
}

// Posts returns a copy of the feed with the local like state applied
func (s *FeedSession) Posts() []models.Post {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	posts := make([]models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		post = post.Clone()
		post.IsLiked = s.liked[post.ID]
		posts = append(posts, post)
	}
	return posts
}

func (s *FeedSession) Post(postID string) (models.Post, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	i, ok := s.index[postID]
	if !ok {
		return models.Post{}, false
	}
	post := s.posts[i].Clone()
	post.IsLiked = s.liked[postID]
	return post, true
}

func (s *FeedSession) IsLiked(postID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.liked[postID]
}

// LikedIDs returns the local like-id set in sorted order
func (s *FeedSession) LikedIDs() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ids := make([]string, 0, len(s.liked))
	for id, liked := range s.liked {
		if liked {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Action returns the latest like action issued for postID, or nil
func (s *FeedSession) Action(postID string) *LikeAction {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.actions[postID]
}

// ToggleLike flips the local like state of postID right away and queues
// the matching write or delete against the like store. If the write fails
// and no newer action for the post was issued meanwhile, the local state
// reverts to the last state the store confirmed.
func (s *FeedSession) ToggleLike(ctx context.Context, postID string) (*LikeAction, error) {
	if !s.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	i, ok := s.index[postID]
	if !ok {
		return nil, ErrPostNotFound
	}
	return s.enqueueLocked(ctx, s.posts[i], !s.liked[postID]), nil
}

// SetLiked moves postID to the given state, issuing an action only when the
// local state differs. With no change the latest action is returned, which
// may be nil.
func (s *FeedSession) SetLiked(ctx context.Context, postID string, liked bool) (*LikeAction, error) {
	if !s.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	i, ok := s.index[postID]
	if !ok {
		return nil, ErrPostNotFound
	}
	if s.liked[postID] == liked {
		return s.actions[postID], nil
	}
	return s.enqueueLocked(ctx, s.posts[i], liked), nil
}

func (s *FeedSession) enqueueLocked(ctx context.Context, post models.Post, liked bool) *LikeAction {
	s.liked[post.ID] = liked
	action := newLikeAction(post.ID, liked)
	s.actions[post.ID] = action

	prev := s.tail
	s.tail = action

	writeCtx := context.WithoutCancel(ctx)
	go s.apply(writeCtx, prev, action, post.Clone())
	return action
}

func (s *FeedSession) apply(ctx context.Context, prev, action *LikeAction, post models.Post) {
	if prev != nil {
		<-prev.Done()
	}

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	var err error
	if action.Liked {
		like := models.NewLikeRecord(post, s.session.UserID, s.now())
		err = s.likes.PutLike(ctx, &like)
	} else {
		err = s.likes.DeleteLike(ctx, s.session.UserID, post.ID)
	}
	s.settle(action, err)
}

func (s *FeedSession) settle(action *LikeAction, err error) {
	s.mutex.Lock()
	if err == nil {
		s.committed[action.PostID] = action.Liked
	} else {
		log.Warn().Err(err).
			Str("user_id", s.session.UserID).
			Str("post_id", action.PostID).
			Bool("liked", action.Liked).
			Msg("Failed to write like, reverting local state.")
		if s.actions[action.PostID] == action {
			s.liked[action.PostID] = s.committed[action.PostID]
		}
	}
	if s.tail == action {
		s.tail = nil
	}
	action.resolve(err)
	s.mutex.Unlock()

	close(action.done)
}

package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tagmark/internal/domain"
	"tagmark/internal/repository"
	"tagmark/internal/repository/sqlite"
	"tagmark/internal/storage"
)

type testStore struct {
	users repository.UserRepository
	posts repository.PostRepository
	tags  repository.TagRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := testStore{
		users: sqlite.NewUserRepository(db),
		posts: sqlite.NewPostRepository(db),
		tags:  sqlite.NewTagRepository(db),
	}
	ctx := context.Background()
	for _, initFn := range []func(context.Context) error{store.users.Init, store.tags.Init, store.posts.Init} {
		if err := initFn(ctx); err != nil {
			t.Fatalf("init schema: %v", err)
		}
	}
	return store
}

func newTestUsers(store testStore) UserService {
	return NewUserService(store.users, NewPasswordHasher(bcrypt.MinCost))
}

func mustSignup(t *testing.T, users UserService, email string) *domain.User {
	t.Helper()
	user, err := users.Signup(context.Background(), email, "Ann", "Passw0rd!")
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return user
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeFetcher struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, id string) (*domain.Tweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Tweet{
		ID:     id,
		Text:   "tweet " + id,
		Author: domain.TweetAuthor{ID: "7", Name: "Author", Username: "author"},
	}, nil
}

type fakeArchive struct {
	mu        sync.Mutex
	snapshots map[int64]domain.Tweet
	deleted   []int64
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{snapshots: map[int64]domain.Tweet{}}
}

func (a *fakeArchive) SaveSnapshot(ctx context.Context, post domain.Post, tweet domain.Tweet) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshots[post.ID] = tweet
	return nil
}

func (a *fakeArchive) LoadSnapshot(ctx context.Context, post domain.Post) (*domain.Tweet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	tweet, ok := a.snapshots[post.ID]
	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	return &tweet, nil
}

func (a *fakeArchive) DeleteSnapshots(ctx context.Context, post domain.Post) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.snapshots, post.ID)
	a.deleted = append(a.deleted, post.ID)
	return nil
}

var errUpstream = errors.New("upstream unavailable")

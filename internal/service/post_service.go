package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tagmark/internal/domain"
	"tagmark/internal/repository"
	"tagmark/internal/storage"
	"tagmark/internal/twitter"
)

// PostService manages a user's bookmarked posts and their tags.
type PostService interface {
	Create(ctx context.Context, user *domain.User, externalID, postType string, tagNames []string) (*domain.Post, error)
	Update(ctx context.Context, user *domain.User, postID int64, tagNames []string) (*domain.Post, error)
	Delete(ctx context.Context, user *domain.User, postID int64) error
	Get(ctx context.Context, user *domain.User, postID int64, postType string) (*domain.EnrichedPost, error)
	List(ctx context.Context, user *domain.User) ([]domain.Post, error)
	Tags(ctx context.Context, user *domain.User) ([]domain.Tag, error)
}

type postService struct {
	posts      repository.PostRepository
	tags       repository.TagRepository
	reconciler *TagReconciler
	fetcher    twitter.Fetcher
	archive    storage.Archive
	logger     *logrus.Logger
}

// NewPostService wires the association manager. archive may be nil.
func NewPostService(posts repository.PostRepository, tags repository.TagRepository, fetcher twitter.Fetcher, archive storage.Archive, logger *logrus.Logger) PostService {
	if logger == nil {
		logger = logrus.New()
	}
	return &postService{
		posts:      posts,
		tags:       tags,
		reconciler: NewTagReconciler(tags),
		fetcher:    fetcher,
		archive:    archive,
		logger:     logger,
	}
}

func (s *postService) Create(ctx context.Context, user *domain.User, externalID, postType string, tagNames []string) (*domain.Post, error) {
	if externalID == "" {
		return nil, &ValidationError{Field: "url", Reason: "no post id found"}
	}
	if postType == "" {
		postType = domain.PostTypeTwitter
	}

	_, err := s.posts.FindOwned(ctx, user.ID, externalID, postType)
	switch {
	case err == nil:
		return nil, ErrDuplicatePost
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup post: %w", err)
	}

	tags, err := s.reconciler.Reconcile(ctx, tagNames)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		UserID:     user.ID,
		ExternalID: externalID,
		Type:       postType,
	}
	if _, err := s.posts.Create(ctx, post, domain.TagIDs(tags)); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicatePost
		}
		return nil, err
	}
	post.Tags = tags
	return post, nil
}

func (s *postService) Update(ctx context.Context, user *domain.User, postID int64, tagNames []string) (*domain.Post, error) {
	post, err := s.owned(ctx, user, postID, ErrPostNotFound)
	if err != nil {
		return nil, err
	}

	tags, err := s.reconciler.Reconcile(ctx, tagNames)
	if err != nil {
		return nil, err
	}
	if err := s.posts.ReplaceTags(ctx, post.ID, user.ID, domain.TagIDs(tags)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}

	post.Tags, err = s.tags.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Delete(ctx context.Context, user *domain.User, postID int64) error {
	post, err := s.owned(ctx, user, postID, ErrPostNotFound)
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}

	if s.archive != nil {
		if err := s.archive.DeleteSnapshots(ctx, *post); err != nil {
			s.logger.WithError(err).WithField("post_id", post.ID).Warn("delete post snapshots")
		}
	}
	return nil
}

func (s *postService) Get(ctx context.Context, user *domain.User, postID int64, postType string) (*domain.EnrichedPost, error) {
	post, err := s.owned(ctx, user, postID, ErrInvalidPost)
	if err != nil {
		return nil, err
	}
	if postType != "" && postType != post.Type {
		return nil, ErrInvalidPost
	}

	post.Tags, err = s.tags.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	tweet, fetchErr := s.fetcher.Fetch(ctx, post.ExternalID)
	if fetchErr == nil {
		if s.archive != nil {
			if err := s.archive.SaveSnapshot(ctx, *post, *tweet); err != nil {
				s.logger.WithError(err).WithField("post_id", post.ID).Warn("archive tweet snapshot")
			}
		}
		return &domain.EnrichedPost{Post: *post, Tweet: *tweet}, nil
	}

	if s.archive != nil {
		snapshot, err := s.archive.LoadSnapshot(ctx, *post)
		if err == nil {
			s.logger.WithError(fetchErr).WithField("post_id", post.ID).Warn("serving archived tweet snapshot")
			return &domain.EnrichedPost{Post: *post, Tweet: *snapshot, Stale: true}, nil
		}
		if !errors.Is(err, storage.ErrSnapshotNotFound) {
			s.logger.WithError(err).WithField("post_id", post.ID).Warn("load tweet snapshot")
		}
	}
	return nil, fmt.Errorf("fetch tweet %s: %w", post.ExternalID, fetchErr)
}

func (s *postService) List(ctx context.Context, user *domain.User) ([]domain.Post, error) {
	posts, err := s.posts.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		tags, err := s.tags.ListByPost(ctx, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Tags = tags
	}
	return posts, nil
}

func (s *postService) Tags(ctx context.Context, user *domain.User) ([]domain.Tag, error) {
	return s.tags.ListByUser(ctx, user.ID)
}

// owned loads a post the user owns; anything else is reported as missing.
func (s *postService) owned(ctx context.Context, user *domain.User, postID int64, missing error) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, missing
		}
		return nil, err
	}
	if post.UserID != user.ID {
		return nil, missing
	}
	return post, nil
}

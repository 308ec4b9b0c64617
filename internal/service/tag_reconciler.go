package service

import (
	"context"
	"errors"
	"fmt"

	"tagmark/internal/domain"
	"tagmark/internal/repository"
)

// TagReconciler resolves tag names to persisted tags, creating missing ones.
type TagReconciler struct {
	tags repository.TagRepository
}

func NewTagReconciler(tags repository.TagRepository) *TagReconciler {
	return &TagReconciler{tags: tags}
}

// Reconcile returns one tag per distinct non-empty name, in first-seen order.
// A concurrent insert of the same name is resolved by re-reading the winner's row.
func (r *TagReconciler) Reconcile(ctx context.Context, names []string) ([]domain.Tag, error) {
	unique := uniqueNames(names)
	if len(unique) == 0 {
		return []domain.Tag{}, nil
	}

	existing, err := r.tags.GetByNames(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("lookup tags: %w", err)
	}
	byName := make(map[string]domain.Tag, len(unique))
	for _, tag := range existing {
		byName[tag.Name] = tag
	}

	for _, name := range unique {
		if _, ok := byName[name]; ok {
			continue
		}
		tag, err := r.create(ctx, name)
		if err != nil {
			return nil, err
		}
		byName[name] = *tag
	}

	resolved := make([]domain.Tag, 0, len(unique))
	for _, name := range unique {
		resolved = append(resolved, byName[name])
	}
	return resolved, nil
}

func (r *TagReconciler) create(ctx context.Context, name string) (*domain.Tag, error) {
	tag := &domain.Tag{Name: name}
	_, err := r.tags.Create(ctx, tag)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("create tag: %w", err)
	}

	found, err := r.tags.GetByNames(ctx, []string{name})
	if err != nil {
		return nil, fmt.Errorf("re-read tag %q: %w", name, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("tag %q conflicted but is not readable", name)
	}
	return &found[0], nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

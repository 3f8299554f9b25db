// Package bulk applies one lifecycle action to a selection of posts.
package bulk

import (
	"context"
	"errors"
	"fmt"

	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/validation"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Action string

const (
	ActionPublish   Action = "publish"
	ActionUnpublish Action = "unpublish"
	ActionArchive   Action = "archive"
	ActionBookmark  Action = "bookmark"
	ActionFavorite  Action = "favorite"
	ActionDelete    Action = "delete"
)

// ErrUnknownAction is returned for an action name the operator does not know
var ErrUnknownAction = errors.New("unknown bulk action")

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionPublish, ActionUnpublish, ActionArchive, ActionBookmark, ActionFavorite, ActionDelete:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// IsToggle reports whether the action flips a flag for the whole selection.
// Archive is one-way and never clears.
func (a Action) IsToggle() bool {
	return a == ActionBookmark || a == ActionFavorite
}

// Posts is the part of the repository the operator needs
type Posts interface {
	GetByID(ctx context.Context, id, locale string) (*models.Post, error)
	Update(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id string) error
}

// ItemResult is the outcome for one post of the selection
type ItemResult struct {
	ID  string
	Err error
}

// BatchResult holds one result per selected id, in selection order
type BatchResult struct {
	Action Action
	// Value is the flag value written; nil for delete
	Value *bool
	Items []ItemResult
}

// Succeeded returns the ids that were updated
func (b *BatchResult) Succeeded() []string {
	var ids []string
	for _, it := range b.Items {
		if it.Err == nil {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Failed returns the items that were not updated
func (b *BatchResult) Failed() []ItemResult {
	var failed []ItemResult
	for _, it := range b.Items {
		if it.Err != nil {
			failed = append(failed, it)
		}
	}
	return failed
}

// Err is the all-or-nothing view of the batch: nil only when every item succeeded.
// Items that did succeed stay written.
func (b *BatchResult) Err() error {
	failed := b.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, len(failed))
	for i, it := range failed {
		errs[i] = fmt.Errorf("post %s: %w", it.ID, it.Err)
	}
	return fmt.Errorf("bulk %s failed for %d of %d posts: %w", b.Action, len(failed), len(b.Items), errors.Join(errs...))
}

type Operator struct {
	posts          Posts
	gate           *validation.Gate
	maxConcurrency int
	log            zerolog.Logger
}

func NewOperator(posts Posts, gate *validation.Gate, maxConcurrency int, log zerolog.Logger) *Operator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Operator{
		posts:          posts,
		gate:           gate,
		maxConcurrency: maxConcurrency,
		log:            log,
	}
}

// Apply runs action on every id concurrently. Each item settles on its own; the returned
// error is only for an unknown action.
func (o *Operator) Apply(ctx context.Context, ids []string, action Action) (*BatchResult, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return nil, err
	}

	result := &BatchResult{Action: action, Items: make([]ItemResult, len(ids))}
	for i, id := range ids {
		result.Items[i].ID = id
	}
	if len(ids) == 0 {
		return result, nil
	}

	switch {
	case action == ActionDelete:
		o.each(ids, result, func(id string) error {
			return o.posts.Delete(ctx, id)
		})

	case action == ActionPublish:
		result.Value = boolPtr(true)
		o.each(ids, result, func(id string) error {
			return o.publish(ctx, id)
		})

	case action == ActionUnpublish:
		result.Value = boolPtr(false)
		o.each(ids, result, func(id string) error {
			_, err := o.posts.Update(ctx, id, models.PostPatch{IsPublished: boolPtr(false)})
			return err
		})

	case action == ActionArchive:
		result.Value = boolPtr(true)
		o.each(ids, result, func(id string) error {
			_, err := o.posts.Update(ctx, id, flagPatch(action, true))
			return err
		})

	case action.IsToggle():
		value := o.toggleTarget(ctx, ids, action, result)
		result.Value = boolPtr(value)
		o.each(ids, result, func(id string) error {
			_, err := o.posts.Update(ctx, id, flagPatch(action, value))
			return err
		})
	}

	if failed := result.Failed(); len(failed) > 0 {
		o.log.Warn().
			Str("action", string(action)).
			Int("failed", len(failed)).
			Int("total", len(ids)).
			Msg("Bulk action partially failed")
	}
	return result, nil
}

// each runs fn for every item that has not failed yet
func (o *Operator) each(ids []string, result *BatchResult, fn func(id string) error) {
	var g errgroup.Group
	g.SetLimit(o.maxConcurrency)
	for i := range ids {
		if result.Items[i].Err != nil {
			continue
		}
		g.Go(func() error {
			result.Items[i].Err = fn(result.Items[i].ID)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Operator) publish(ctx context.Context, id string) error {
	p, err := o.posts.GetByID(ctx, id, "")
	if err != nil {
		return err
	}
	candidate := p.Clone()
	candidate.IsPublished = true
	if err := o.gate.ValidateForPublish(candidate).Err(); err != nil {
		return err
	}
	_, err = o.posts.Update(ctx, id, models.PostPatch{IsPublished: boolPtr(true)})
	return err
}

// toggleTarget loads the selection and returns false when every post already has the flag.
// Posts that cannot be loaded are marked failed and do not take part in the decision.
func (o *Operator) toggleTarget(ctx context.Context, ids []string, action Action, result *BatchResult) bool {
	set := make([]bool, len(ids))

	var g errgroup.Group
	g.SetLimit(o.maxConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := o.posts.GetByID(ctx, id, "")
			if err != nil {
				result.Items[i].Err = err
				return nil
			}
			set[i] = flagOf(p, action)
			return nil
		})
	}
	_ = g.Wait()

	loaded := 0
	for i := range ids {
		if result.Items[i].Err != nil {
			continue
		}
		loaded++
		if !set[i] {
			return true
		}
	}
	return loaded == 0
}

func flagOf(p *models.Post, action Action) bool {
	switch action {
	case ActionBookmark:
		return p.IsBookmarked
	case ActionFavorite:
		return p.IsFavorited
	}
	return false
}

func flagPatch(action Action, value bool) models.PostPatch {
	var patch models.PostPatch
	switch action {
	case ActionArchive:
		patch.IsArchived = boolPtr(value)
	case ActionBookmark:
		patch.IsBookmarked = boolPtr(value)
	case ActionFavorite:
		patch.IsFavorited = boolPtr(value)
	}
	return patch
}

func boolPtr(v bool) *bool {
	return &v
}

package forum

import (
	"context"

	"github.com/fkhayef/forumcore/internal/membership"
)

// Lookup exposes a forum store as the membership.ForumLookup the
// membership rules consult
type Lookup struct {
	store Store
}

// NewLookup wraps store
func NewLookup(store Store) *Lookup {
	return &Lookup{store: store}
}

var _ membership.ForumLookup = (*Lookup)(nil)

func (l *Lookup) Lookup(ctx context.Context, forumID int64) (*membership.ForumInfo, error) {
	f, err := l.store.GetByID(ctx, forumID)
	if err != nil || f == nil {
		return nil, err
	}
	return &membership.ForumInfo{
		ID:         f.ID,
		Title:      f.Title,
		CreatorID:  f.CreatorID,
		IsPrivate:  f.IsPrivate,
		MaxMembers: f.MaxMembers,
	}, nil
}

package blob

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

// Common errors
var (
	ErrUnsupportedType = apperror.Validation("only jpeg, png, gif and webp images are accepted")
	ErrTooLarge        = apperror.Validation("image exceeds the upload size limit")
)

const storeName = "blob store"

// Gate checks that the uploader belongs to the forum
type Gate interface {
	RequireMember(ctx context.Context, p role.Principal, forumID int64) (*membership.Access, error)
}

// Service accepts image attachments for forum messages
type Service struct {
	store   Store
	gate    Gate
	timeout time.Duration
}

// NewService creates a new attachment service
func NewService(store Store, gate Gate, timeout time.Duration) *Service {
	return &Service{store: store, gate: gate, timeout: timeout}
}

// Upload stores an image posted to a forum. The type is sniffed from the
// content; the client's declared type is ignored.
func (s *Service) Upload(ctx context.Context, p role.Principal, forumID int64, body io.Reader) (*Object, error) {
	if _, err := s.gate.RequireMember(ctx, p, forumID); err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(body, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF {
		return nil, apperror.Validation("could not read upload")
	}
	if len(head) == 0 {
		return nil, apperror.Validation("image is empty")
	}
	contentType := http.DetectContentType(head)
	if _, ok := extensions[contentType]; !ok {
		return nil, ErrUnsupportedType
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	obj, err := s.store.Put(ctx, contentType, br)
	if err != nil {
		return nil, apperror.FromUpstream(storeName, err)
	}
	return obj, nil
}

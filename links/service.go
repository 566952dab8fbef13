package links

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/friend-links/internal/errors"
	"github.com/jrsteele09/friend-links/kvstore"
)

const (
	storeKey = "links"

	maxNameLength        = 100
	maxDescriptionLength = 500
)

var (
	ErrNotFound      = fmt.Errorf("link %w", apperrors.ErrNotFound)
	ErrInvalidAction = fmt.Errorf("%w: unknown action", apperrors.ErrInvalidInput)
	ErrDuplicateURL  = fmt.Errorf("%w: url already submitted", apperrors.ErrInvalidInput)
)

// Service keeps every link in a single JSON document in the store. Writes go
// through kvstore.Store.Update so replicas sharing Redis cannot lose updates.
type Service struct {
	store kvstore.Store
	now   func() time.Time
	newID func() string
}

type ServiceOption func(*Service)

func WithNowTime(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store kvstore.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates sub and stores it as a pending link.
func (s *Service) Submit(ctx context.Context, submittedBy string, sub Submission) (*Link, error) {
	sub, err := validate(sub)
	if err != nil {
		return nil, err
	}

	var link Link
	err = s.modify(ctx, func(all []Link) ([]Link, error) {
		for _, l := range all {
			if l.Status != StatusRejected && sameURL(l.URL, sub.URL) {
				return nil, ErrDuplicateURL
			}
		}
		now := s.now().UTC()
		link = Link{
			ID:          s.newID(),
			Name:        sub.Name,
			URL:         sub.URL,
			Description: sub.Description,
			Avatar:      sub.Avatar,
			Status:      StatusPending,
			SubmittedBy: submittedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return append(all, link), nil
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// List returns links with the given status, newest first.
func (s *Service) List(ctx context.Context, status Status) ([]Link, error) {
	raw, err := s.store.Get(ctx, storeKey)
	found := err == nil
	if err != nil && !apperrors.Is(err, kvstore.ErrNotFound) {
		return nil, apperrors.Wrapf(err, "[links load] failed to read links")
	}
	all, err := decode(raw, found)
	if err != nil {
		return nil, err
	}

	out := make([]Link, 0, len(all))
	for _, l := range all {
		if status == StatusAll || l.Status == status {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b Link) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Apply moderates a link. Delete returns (nil, nil).
func (s *Service) Apply(ctx context.Context, id string, action Action) (*Link, error) {
	var updated *Link
	err := s.modify(ctx, func(all []Link) ([]Link, error) {
		updated = nil
		idx := slices.IndexFunc(all, func(l Link) bool { return l.ID == id })
		if idx < 0 {
			return nil, ErrNotFound
		}

		switch action {
		case ActionApprove:
			all[idx].Status = StatusApproved
		case ActionReject:
			all[idx].Status = StatusRejected
		case ActionDelete:
			return slices.Delete(all, idx, idx+1), nil
		default:
			return nil, ErrInvalidAction
		}
		all[idx].UpdatedAt = s.now().UTC()
		l := all[idx]
		updated = &l
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// modify runs fn against the current document and stores its result
// atomically. Errors from fn are returned as is.
func (s *Service) modify(ctx context.Context, fn func([]Link) ([]Link, error)) error {
	var fnErr error
	err := s.store.Update(ctx, storeKey, 0, func(raw string, found bool) (string, error) {
		all, err := decode(raw, found)
		if err != nil {
			return "", err
		}
		if all, fnErr = fn(all); fnErr != nil {
			return "", fnErr
		}
		b, err := json.Marshal(all)
		if err != nil {
			return "", apperrors.Wrapf(err, "[links save] failed to encode links")
		}
		return string(b), nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return apperrors.Wrapf(err, "[links save] failed to write links")
	}
	return nil
}

func decode(raw string, found bool) ([]Link, error) {
	if !found {
		return nil, nil
	}
	var all []Link
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, apperrors.Wrapf(err, "[links load] failed to decode links")
	}
	return all, nil
}

func validate(sub Submission) (Submission, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.URL = strings.TrimSpace(sub.URL)
	sub.Description = strings.TrimSpace(sub.Description)
	sub.Avatar = strings.TrimSpace(sub.Avatar)

	if sub.Name == "" || sub.URL == "" {
		return sub, fmt.Errorf("%w: name and url are required", apperrors.ErrInvalidInput)
	}
	if len([]rune(sub.Name)) > maxNameLength {
		return sub, fmt.Errorf("%w: name is too long", apperrors.ErrInvalidInput)
	}
	if len([]rune(sub.Description)) > maxDescriptionLength {
		return sub, fmt.Errorf("%w: description is too long", apperrors.ErrInvalidInput)
	}
	if !isHTTPURL(sub.URL) {
		return sub, fmt.Errorf("%w: url must be http or https", apperrors.ErrInvalidInput)
	}
	if sub.Avatar != "" && !isHTTPURL(sub.Avatar) {
		return sub, fmt.Errorf("%w: avatar must be http or https", apperrors.ErrInvalidInput)
	}
	return sub, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func sameURL(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}

package mastodon

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
)

// Wire shapes. Pointers distinguish absent/null from empty strings.
type rawBookmark struct {
	ID        *string     `json:"id"`
	URL       *string     `json:"url"`
	CreatedAt *string     `json:"created_at"`
	Content   *string     `json:"content"`
	Card      *rawCard    `json:"card"`
	Account   *rawAccount `json:"account"`
}

type rawCard struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
}

type rawAccount struct {
	Username *string `json:"username"`
	Acct     *string `json:"acct"`
}

// DecodeBookmarks parses a bookmark list.
//
// url, created_at and content are required on every element; a missing, null
// or mistyped required field fails the whole list with ErrUpstreamMalformed.
// Optional fields default to "" and optional objects to nil. created_at is not
// validated here.
func DecodeBookmarks(data []byte) ([]domain.Bookmark, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", domain.ErrUpstreamMalformed)
	}

	var raw []rawBookmark
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamMalformed, err)
	}

	out := make([]domain.Bookmark, 0, len(raw))
	for i, rb := range raw {
		b, err := rb.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: bookmark %d: %s", domain.ErrUpstreamMalformed, i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (rb rawBookmark) toDomain() (domain.Bookmark, error) {
	switch {
	case rb.URL == nil:
		return domain.Bookmark{}, fmt.Errorf("missing url")
	case rb.CreatedAt == nil:
		return domain.Bookmark{}, fmt.Errorf("missing created_at")
	case rb.Content == nil:
		return domain.Bookmark{}, fmt.Errorf("missing content")
	}

	b := domain.Bookmark{
		ID:        deref(rb.ID),
		URL:       *rb.URL,
		CreatedAt: *rb.CreatedAt,
		Content:   *rb.Content,
	}
	if rb.Card != nil {
		b.Card = &domain.LinkCard{
			Title:       deref(rb.Card.Title),
			URL:         deref(rb.Card.URL),
			Description: deref(rb.Card.Description),
		}
	}
	if rb.Account != nil {
		b.Account = &domain.Account{
			Username: deref(rb.Account.Username),
			Acct:     deref(rb.Account.Acct),
		}
	}
	return b, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

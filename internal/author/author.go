// Package author composes and submits new posts and replies.
package author

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/pjuu/client/internal/page"
	"github.com/pjuu/client/internal/site"
)

// DefaultMaxLength applies when the author form declares no maxlength.
const DefaultMaxLength = 500

// ValidationError carries the message the server flashes for a rejected
// post.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Submitter sends a form to the server.
type Submitter interface {
	Submit(ctx context.Context, form page.Form, values url.Values) (*site.Response, error)
}

func limitOf(maxLength int) int {
	if maxLength <= 0 {
		return DefaultMaxLength
	}
	return maxLength
}

// Counter renders the character count shown under the author textarea.
func Counter(body string, maxLength int) string {
	return fmt.Sprintf("%d / %d", utf8.RuneCountInString(body), limitOf(maxLength))
}

// Validate rejects blank and overlong bodies with the messages the server's
// post form uses for them.
func Validate(body string, maxLength int) error {
	if strings.TrimSpace(body) == "" {
		return &ValidationError{Message: "This field is required."}
	}
	limit := limitOf(maxLength)
	if utf8.RuneCountInString(body) > limit {
		return &ValidationError{Message: fmt.Sprintf("Posts can not be larger than %d characters", limit)}
	}
	return nil
}

// Submit validates body and posts it through form. It returns the server's
// confirmation message.
func Submit(ctx context.Context, s Submitter, form *page.AuthorForm, body string) (string, error) {
	if form == nil {
		return "", fmt.Errorf("author form: %w", page.ErrNotFound)
	}
	if err := Validate(body, form.MaxLength); err != nil {
		return "", err
	}

	resp, err := s.Submit(ctx, form.Form, url.Values{"body": {body}})
	if err != nil {
		return "", fmt.Errorf("failed to submit post: %w", err)
	}

	log.Debug().Str("count", Counter(body, form.MaxLength)).Msg("Post submitted")
	return resp.Message, nil
}

package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/jrsteele09/friend-links/internal/utils"
)

var (
	errEmptyBody     = errors.New("empty response body")
	errMissingFields = errors.New("missing id or login")
)

// Identity is the GitHub user a session token is issued for.
type Identity struct {
	ID        string
	Login     string
	Name      string
	Email     *string
	AvatarURL *string
}

type githubUser struct {
	ID        flexibleID `json:"id"`
	Login     string     `json:"login"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	AvatarURL string     `json:"avatar_url"`
}

// flexibleID accepts a JSON number or string. Zero, empty and null decode
// to "".
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if v, err := n.Float64(); err == nil && v == 0 {
		*f = ""
		return nil
	}
	if i, err := n.Int64(); err == nil {
		*f = flexibleID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexibleID(n.String())
	return nil
}

// ParseIdentity decodes a user-info body. A blank body or a missing id or
// login is IdentityInvalidData. Name falls back to Login and blank email or
// avatar become nil.
func ParseIdentity(body []byte) (*Identity, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &IdentityError{Kind: IdentityInvalidData, Err: errEmptyBody}
	}

	var u githubUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, &IdentityError{Kind: IdentityParseError, Err: err}
	}
	if u.ID == "" || u.ID == "0" || u.Login == "" {
		return nil, &IdentityError{Kind: IdentityInvalidData, Err: errMissingFields}
	}

	name := u.Name
	if name == "" {
		name = u.Login
	}
	return &Identity{
		ID:        string(u.ID),
		Login:     u.Login,
		Name:      name,
		Email:     utils.NilIfEmpty(u.Email),
		AvatarURL: utils.NilIfEmpty(u.AvatarURL),
	}, nil
}

package auth

import "net/url"

// CallbackParams holds the query parameters GitHub sends to the callback.
type CallbackParams struct {
	// Code is the authorization code to exchange for an access token.
	Code string

	// State must match a value previously issued by Start.
	State string

	// Error is set instead of Code when the user or GitHub refused the request.
	// Example: "access_denied"
	Error string
}

// CallbackParamsFromQuery reads code, state and error from a callback query.
func CallbackParamsFromQuery(q url.Values) CallbackParams {
	return CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}
}

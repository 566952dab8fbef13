// Package links stores friend-link submissions and their moderation status.
package links

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"

	// StatusAll is a list filter only; no link carries it.
	StatusAll Status = "all"
)

// ParseStatus maps a query value to a list filter. Empty means approved.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case "":
		return StatusApproved, true
	case StatusPending, StatusApproved, StatusRejected, StatusAll:
		return Status(s), true
	}
	return "", false
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

type Link struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Status      Status    `json:"status"`
	SubmittedBy string    `json:"submitted_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Submission is the user supplied part of a Link.
type Submission struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
}

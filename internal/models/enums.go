package models

import "fmt"

// Role is the closed set of account roles carried in tokens.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole accepts only the exact role names; anything else is an error.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// ParticipationStatus is a user's stated intent toward an event.
type ParticipationStatus string

const (
	StatusWantToGo ParticipationStatus = "WantToGo"
	StatusGoing    ParticipationStatus = "Going"
	StatusNotGoing ParticipationStatus = "NotGoing"
)

func ParseParticipationStatus(s string) (ParticipationStatus, error) {
	switch ParticipationStatus(s) {
	case StatusWantToGo:
		return StatusWantToGo, nil
	case StatusGoing:
		return StatusGoing, nil
	case StatusNotGoing:
		return StatusNotGoing, nil
	default:
		return "", fmt.Errorf("unknown participation status %q", s)
	}
}

// RequestStatus is shared by friend requests and event invitations.
type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestAccepted RequestStatus = "Accepted"
	RequestRejected RequestStatus = "Rejected"
)

package ledger

import "strings"

// Role enumerates the actor roles the ledger understands.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleAccountant Role = "ACCOUNTANT"
	RoleUser       Role = "USER"
)

// ParseRole normalises a role string; unknown roles are returned as-is and
// hold no capabilities.
func ParseRole(raw string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(raw)))
}

// Action enumerates voucher operations subject to capability checks.
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionEdit    Action = "EDIT"
	ActionSubmit  Action = "SUBMIT"
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionPost    Action = "POST"
	ActionReverse Action = "REVERSE"
)

func (a Action) verb() string {
	return strings.ToLower(string(a))
}

type transitionKey struct {
	from   VoucherStatus
	action Action
}

// transitions is the single source of legal status changes.
var transitions = map[transitionKey]VoucherStatus{
	{StatusDraft, ActionSubmit}:      StatusSubmitted,
	{StatusSubmitted, ActionApprove}: StatusApproved,
	{StatusSubmitted, ActionReject}:  StatusDraft,
	{StatusApproved, ActionPost}:     StatusPosted,
	{StatusPosted, ActionReverse}:    StatusReversed,
}

// targetStatus is the status an action aims for regardless of the current one.
var targetStatus = map[Action]VoucherStatus{
	ActionSubmit:  StatusSubmitted,
	ActionApprove: StatusApproved,
	ActionReject:  StatusDraft,
	ActionPost:    StatusPosted,
	ActionReverse: StatusReversed,
}

// NextStatus resolves the status reached by applying action to from.
func NextStatus(from VoucherStatus, action Action) (VoucherStatus, bool) {
	to, ok := transitions[transitionKey{from: from, action: action}]
	return to, ok
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to VoucherStatus) bool {
	for key, target := range transitions {
		if key.from == from && target == to {
			return true
		}
	}
	return false
}

func checkTransition(from VoucherStatus, action Action) (VoucherStatus, *Error) {
	to, ok := NextStatus(from, action)
	if !ok {
		return "", transitionError(from, targetStatus[action])
	}
	return to, nil
}

var elevated = map[Role]bool{
	RoleAdmin:      true,
	RoleAccountant: true,
}

var authenticated = map[Role]bool{
	RoleAdmin:      true,
	RoleAccountant: true,
	RoleUser:       true,
}

// Can reports whether role holds the capability for action.
func Can(role Role, action Action) bool {
	switch action {
	case ActionCreate, ActionEdit, ActionSubmit:
		return authenticated[role]
	case ActionApprove, ActionReject, ActionPost, ActionReverse:
		return elevated[role]
	default:
		return false
	}
}

func checkCapability(role Role, action Action) *Error {
	if !Can(role, action) {
		return permissionError(role, action)
	}
	return nil
}

package workflow

import (
	"docflow/domain"
	"docflow/domain/state"
)

const (
	TransitionApprove        = "approve"
	TransitionReject         = "reject"
	TransitionSign           = "sign"
	TransitionExtendDeadline = "extend_deadline"
	TransitionCancel         = "cancel"
	TransitionUpdate         = "update"
	TransitionExpire         = "expire"
)

var (
	StatePendingApproval = state.State{Name: string(domain.StatusPendingApproval), Category: state.InBacklog}
	StateInProgress      = state.State{Name: string(domain.StatusInProgress), Category: state.InProcess}
	StateCompleted       = state.State{Name: string(domain.StatusCompleted), Category: state.Done}
	StateExpired         = state.State{Name: string(domain.StatusExpired), Category: state.Rejected}
	StateCancelled       = state.State{Name: string(domain.StatusCancelled), Category: state.Rejected}
	StateRejected        = state.State{Name: string(domain.StatusRejected), Category: state.Rejected}
)

// IsTerminal reports whether no further transition may leave the status. Statuses unknown to
// the state machine count as terminal.
func IsTerminal(status domain.DocumentStatus) bool {
	s, found := DocumentStateMachine.FindState(string(status))
	if !found {
		return true
	}
	return s.Category == state.Done || s.Category == state.Rejected
}

var DocumentStateMachine = state.NewStateMachine(
	[]state.State{StatePendingApproval, StateInProgress, StateCompleted, StateExpired, StateCancelled, StateRejected},
	[]state.Transition{
		{Name: TransitionApprove, From: StatePendingApproval, To: StateInProgress},
		{Name: TransitionReject, From: StatePendingApproval, To: StateRejected},

		{Name: TransitionSign, From: StateInProgress, To: StateInProgress},
		{Name: TransitionSign, From: StateInProgress, To: StateCompleted},

		{Name: TransitionExtendDeadline, From: StatePendingApproval, To: StatePendingApproval},
		{Name: TransitionExtendDeadline, From: StateInProgress, To: StateInProgress},

		{Name: TransitionUpdate, From: StatePendingApproval, To: StatePendingApproval},
		{Name: TransitionUpdate, From: StateInProgress, To: StateInProgress},

		{Name: TransitionCancel, From: StatePendingApproval, To: StateCancelled},
		{Name: TransitionCancel, From: StateInProgress, To: StateCancelled},

		{Name: TransitionExpire, From: StatePendingApproval, To: StateExpired},
		{Name: TransitionExpire, From: StateInProgress, To: StateExpired},
	},
)

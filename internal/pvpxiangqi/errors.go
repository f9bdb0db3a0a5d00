package pvpxiangqi

import "errors"

// Kind names a rule rejection. The string form is what the dispatcher reports.
type Kind string

const (
	KindNotPlaying            Kind = "not_playing"
	KindNotParticipant        Kind = "not_participant"
	KindNotWaiting            Kind = "not_waiting"
	KindAlreadyJoined         Kind = "already_joined"
	KindOutOfTurn             Kind = "out_of_turn"
	KindInvalidCoordinate     Kind = "invalid_coordinate"
	KindEmptySource           Kind = "empty_source"
	KindWrongOwner            Kind = "wrong_owner"
	KindIllegalShape          Kind = "illegal_shape"
	KindSelfCheck             Kind = "self_check"
	KindNoMovesYet            Kind = "no_moves_yet"
	KindNegotiationInProgress Kind = "negotiation_in_progress"
	KindNoPendingNegotiation  Kind = "no_pending_negotiation"
	KindSelfResponse          Kind = "self_response"
)

// CommandError is a rejected command. The session state is unchanged when one is returned.
type CommandError struct {
	Kind Kind
}

func (e *CommandError) Error() string { return "xiangqi: " + string(e.Kind) }

// Is matches any CommandError of the same kind.
func (e *CommandError) Is(target error) bool {
	t, ok := target.(*CommandError)
	return ok && t.Kind == e.Kind
}

func reject(k Kind) error { return &CommandError{Kind: k} }

var (
	ErrNotPlaying            = reject(KindNotPlaying)
	ErrNotParticipant        = reject(KindNotParticipant)
	ErrNotWaiting            = reject(KindNotWaiting)
	ErrAlreadyJoined         = reject(KindAlreadyJoined)
	ErrOutOfTurn             = reject(KindOutOfTurn)
	ErrInvalidCoordinate     = reject(KindInvalidCoordinate)
	ErrEmptySource           = reject(KindEmptySource)
	ErrWrongOwner            = reject(KindWrongOwner)
	ErrIllegalShape          = reject(KindIllegalShape)
	ErrSelfCheck             = reject(KindSelfCheck)
	ErrNoMovesYet            = reject(KindNoMovesYet)
	ErrNegotiationInProgress = reject(KindNegotiationInProgress)
	ErrNoPendingNegotiation  = reject(KindNoPendingNegotiation)
	ErrSelfResponse          = reject(KindSelfResponse)
)

// KindOf extracts the rejection kind from err, or "" if err is not a CommandError.
func KindOf(err error) Kind {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Registry and worker errors
var (
	ErrInvalidArgs   = errf("invalid arguments")
	ErrRoomExists    = errf("room already has a session")
	ErrNoSession     = errf("no session for room")
	ErrSessionClosed = errf("session closed")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

package casino

import "errors"

type Code string

const (
	CodeInvalidPayload      Code = "INVALID_PAYLOAD"
	CodeInvalidBet          Code = "INVALID_BET"
	CodeInvalidRisk         Code = "INVALID_RISK"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeRoundLocked         Code = "ROUND_LOCKED"
	CodeAlreadyJoined       Code = "ALREADY_JOINED"
	CodeAlreadyCashed       Code = "ALREADY_CASHED"
	CodeNoActiveBet         Code = "NO_ACTIVE_BET"
	CodeRoundNotRunning     Code = "ROUND_NOT_RUNNING"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a session-scoped rejection. Two Errors match under errors.Is when
// their codes match, so callers compare against the sentinels below.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.Code == e.Code
}

var (
	ErrInvalidPayload      = &Error{Code: CodeInvalidPayload, Message: "missing or malformed fields"}
	ErrInvalidBet          = &Error{Code: CodeInvalidBet, Message: "bet amount out of bounds"}
	ErrInvalidRisk         = &Error{Code: CodeInvalidRisk, Message: "risk must be easy, medium, or hard"}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance, Message: "insufficient balance"}
	ErrRoundLocked         = &Error{Code: CodeRoundLocked, Message: "round is already running"}
	ErrAlreadyJoined       = &Error{Code: CodeAlreadyJoined, Message: "already joined this round"}
	ErrAlreadyCashed       = &Error{Code: CodeAlreadyCashed, Message: "bet already resolved"}
	ErrNoActiveBet         = &Error{Code: CodeNoActiveBet, Message: "no bet in the current round"}
	ErrRoundNotRunning     = &Error{Code: CodeRoundNotRunning, Message: "round is not running"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal server error"}

	ErrStopped = errors.New("engine stopped")
)

func reject(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// AsEvent renders any error as the wire error event.
func AsEvent(err error) ErrorEvent {
	var e *Error
	if errors.As(err, &e) {
		return ErrorEvent{Code: e.Code, Message: e.Message}
	}

	return ErrorEvent{Code: CodeInternal, Message: ErrInternal.Message}
}

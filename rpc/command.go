package rpc

import (
	"errors"
	"fmt"

	"github.com/hupe1980/shmvec"
	"github.com/hupe1980/shmvec/resource"
)

// Command identifies an operation run by the host.
type Command uint32

const (
	// CmdNone does nothing and succeeds.
	CmdNone Command = iota
	// CmdAllocVec allocates a vector. See AllocVec.
	CmdAllocVec
	// CmdFreeVec frees a vector. See FreeVec.
	CmdFreeVec
	// CmdExit stops the host after replying.
	CmdExit

	// CmdUser is the first value available to Handle.
	CmdUser Command = 0x100
)

func (c Command) String() string {
	switch c {
	case CmdNone:
		return "none"
	case CmdAllocVec:
		return "alloc_vec"
	case CmdFreeVec:
		return "free_vec"
	case CmdExit:
		return "exit"
	default:
		return fmt.Sprintf("command(%#x)", uint32(c))
	}
}

// Status is the outcome the host records for a call.
type Status uint32

const (
	StatusOK Status = iota
	StatusFailed
	StatusUnknownCommand
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusUnknownCommand:
		return "unknown command"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

var (
	// ErrHostGone is returned when the host process is no longer running.
	ErrHostGone = errors.New("rpc: host process exited")
	// ErrClientGone is returned by Listen when the dialed client exits.
	ErrClientGone = errors.New("rpc: client process exited")
	// ErrNoHost is returned by Dial when no host serves the namespace.
	ErrNoHost = errors.New("rpc: no host listening")
	// ErrBusy is returned by Dial when another live process is connected.
	ErrBusy = errors.New("rpc: host already has a client")
	// ErrUnknownCommand is matched by a CallError for an unhandled command.
	ErrUnknownCommand = errors.New("rpc: unknown command")
	// ErrReserved is returned by Handle for built-in command values.
	ErrReserved = errors.New("rpc: reserved command")
)

// Failure results occupy the parameter area: kind at 0, message length at 2,
// message from 4.
const (
	failKindOff = 0
	failLenOff  = 2
	failMsgOff  = 4
)

// kinds maps well-known errors to codes that survive the trip to the client.
var kinds = []error{
	nil,
	shmvec.ErrInUse,
	shmvec.ErrNotFound,
	shmvec.ErrInvalidGeometry,
	shmvec.ErrCapacityExceeded,
	shmvec.ErrInvalidElementType,
	shmvec.ErrNotOwner,
	shmvec.ErrClosed,
	resource.ErrCommitLimitExceeded,
	ErrUnknownCommand,
}

func kindOf(err error) uint16 {
	for i, k := range kinds[1:] {
		if errors.Is(err, k) {
			return uint16(i + 1)
		}
	}
	return 0
}

func writeFailure(p *Params, err error) {
	p.Reset()
	msg := err.Error()
	if len(msg) > ParamsSize-failMsgOff {
		msg = msg[:ParamsSize-failMsgOff]
	}
	p.PutUint16(failKindOff, kindOf(err))
	p.PutUint16(failLenOff, uint16(len(msg)))
	copy(p[failMsgOff:], msg)
}

// CallError is a command that the host ran and reported as failed.
type CallError struct {
	Command Command
	Status  Status
	Message string
	kind    error
}

func readFailure(cmd Command, st Status, p *Params) *CallError {
	kind := int(p.Uint16(failKindOff))
	n := min(int(p.Uint16(failLenOff)), ParamsSize-failMsgOff)
	e := &CallError{Command: cmd, Status: st, Message: string(p[failMsgOff : failMsgOff+n])}
	if kind > 0 && kind < len(kinds) {
		e.kind = kinds[kind]
	}
	if st == StatusUnknownCommand {
		e.kind = ErrUnknownCommand
	}
	return e
}

func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rpc: %s: %s", e.Command, e.Status)
	}
	return fmt.Sprintf("rpc: %s: %s", e.Command, e.Message)
}

func (e *CallError) Unwrap() error { return e.kind }

// Package rpc runs commands in a host process on behalf of a client, through
// a command block in shared memory.
//
// The host owns a namespace's registry and serves it: the client asks it to
// allocate or free vectors, then maps them itself with shmvec.Attach. Users
// register their own commands with Host.Handle.
//
// # Protocol
//
// The block lives next to the vectors as "rpc.cmd". Exactly one call is in
// flight at a time:
//
//  1. The host signals complete once it is listening.
//  2. The client writes the command and its parameters, bumps the call
//     sequence and signals start.
//  3. The host runs the command, writes status and results, records the
//     sequence as done and signals complete.
//
// A complete signal whose done sequence does not match the caller's is stale
// and ignored, so a call abandoned by its context cannot confuse the next.
//
// Both sides watch each other's process: the host returns ErrClientGone when
// the client that dialed it exits, and a client call fails with ErrHostGone
// when the host dies.
package rpc

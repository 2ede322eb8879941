// Package dialogue implements the per-user conversation that records and edits
// P2P deposits and withdrawals.
//
// The conversation is a state machine. [Transition] is a pure function from the
// current [State] and an incoming [Event] to a [Step]: the next state, at most
// one record store [Effect] and the reply to show. [Engine] runs that function
// for one user at a time, executes the effect against a records.Store and keeps
// the session in a state.Store. Any store failure sends the user back to [Idle]
// with a generic error reply.
package dialogue

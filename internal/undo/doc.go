// Package undo implements the transactional command layer every user edit
// goes through.
//
// # Commands
//
// An Op is the apply/revert pair of one atomic edit. A Command wraps an Op
// with a strict state machine:
//
//	Unapplied --Redo--> Applied --Undo--> Unapplied
//
// Calling Redo on an Applied command or Undo on an Unapplied one fails with
// an *Error of code INVALID_COMMAND_TRANSITION. It is never tolerated
// silently, since that would let the displayed state drift from the model.
//
// # Groups
//
// A Group is one user-visible action: an ordered list of commands applied
// in insertion order and reverted in reverse order. If a command fails part
// way, the commands already transitioned are rolled back so the group is
// left entirely in its previous state.
//
// # Stacks
//
// A Stack belongs to exactly one Document. It holds applied groups (undo
// side) and undone groups (redo side). Pushing clears the redo side; history
// is linear. A group whose commands belong to another document, or to more
// than one, is rejected with CROSS_DOCUMENT_COMMAND. A Host routes groups to
// the stack of the document they belong to.
//
// A Stack is used from the single edit goroutine. It is not safe for
// concurrent mutation.
package undo

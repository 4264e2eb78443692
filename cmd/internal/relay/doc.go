// Package relay forwards approval requests to an operator channel and turns the
// operator's answers into session state.
//
// A Service sends the creation and follow-up notifications through a Messenger,
// applies callback tokens to the approval store, answers status queries and reaps
// sessions once a decision has been read.
package relay

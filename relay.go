// Package relay defines the domain of a streaming chat client: a query is
// posted to a remote agent endpoint and the answer arrives as newline-delimited
// JSON frames that are folded into a single assistant message.
//
// Subpackages provide the implementations: ndjson decodes and classifies
// frames, runagent is the HTTP transport, session drives submissions, and
// bubbletea is a terminal front end.
package relay

package rpc

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is the decoded JSON body of a request: method name plus params.
// A binary param is never part of Params: SendRequest takes it as a separate
// argument and carries it alongside the JSON in the wire layout, the way aistore keeps
// large object payloads out of its JSON control messages.
type Message struct {
	ID     uint64         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

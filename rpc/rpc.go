// Package rpc exposes a mirror over JSON-RPC 2.0. Clients read nodes,
// apply update batches, run filter queries and subscribe to the changes
// applied batches make.
package rpc

import (
	"github.com/signadot/simtree/mirror"
)

// Methods served. MethodChanged is a notification sent by the server.
const (
	MethodGet         = "tree/get"
	MethodApply       = "tree/apply"
	MethodQuery       = "tree/query"
	MethodFactions    = "tree/factions"
	MethodSubscribe   = "tree/subscribe"
	MethodUnsubscribe = "tree/unsubscribe"
	MethodChanged     = "tree/changed"
)

// Formats accepted by GetParams.
const (
	FormatXML  = "xml"
	FormatJSON = "json"
)

// GetParams names a node by its path. An empty path is the root.
type GetParams struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
}

type GetResult struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	XML   string `json:"xml,omitempty"`
	Value any    `json:"value,omitempty"`
}

// ApplyParams carries one update batch document.
type ApplyParams struct {
	Batch string `json:"batch"`
}

type ApplyResult struct {
	BatchID string          `json:"batchId"`
	Commit  int64           `json:"commit,omitempty"`
	Changes []mirror.Change `json:"changes"`
	Error   string          `json:"error,omitempty"`
}

// QueryParams selects the nodes at or under Path matching Expr.
type QueryParams struct {
	Expr string `json:"expr"`
	Path string `json:"path,omitempty"`
}

type QueryResult struct {
	Paths []string `json:"paths"`
}

type FactionsResult struct {
	Paths []string `json:"paths"`
}

type SubscribeParams struct {
	Path   string `json:"path,omitempty"`
	Buffer int    `json:"buffer,omitempty"`
}

type SubscribeResult struct {
	Subscription string `json:"subscription"`
}

type UnsubscribeParams struct {
	Subscription string `json:"subscription"`
}

// Changed is the payload of MethodChanged. Failed is set on the last
// notification of a subscription the server dropped for falling behind.
type Changed struct {
	Subscription string               `json:"subscription"`
	Notification *mirror.Notification `json:"notification,omitempty"`
	Failed       bool                 `json:"failed,omitempty"`
}

package node

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NodeError is a non-2xx response from the node.
type NodeError struct {
	StatusCode int
	// Status is the status line, e.g. "400 Bad Request".
	Status string
	Body   string
}

func (e *NodeError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return e.Status + ": " + e.Body
}

// ContractError is a read-only call that executed but signaled an error.
type ContractError struct {
	Cause string
}

func (e *ContractError) Error() string { return e.Cause }

// BroadcastError is a transaction rejected at submission.
type BroadcastError struct {
	Reason string
	TxID   string
	Err    error
}

func (e *BroadcastError) Error() string {
	msg := "broadcast rejected"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.TxID != "" {
		msg += " (txid " + e.TxID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BroadcastError) Unwrap() error { return e.Err }

func newNodeError(resp *http.Response, body []byte) *NodeError {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &NodeError{
		StatusCode: resp.StatusCode,
		Status:     status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// IsNoHistory reports the node's answer for a principal that has never
// appeared on chain: a bare 400 Bad Request.
func IsNoHistory(err error) bool {
	var ne *NodeError
	return errors.As(err, &ne) && ne.StatusCode == http.StatusBadRequest
}

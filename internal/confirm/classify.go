package confirm

import (
	"errors"
	"net/http"
	"strings"

	"Stackstarter/internal/node"
)

const noSuchContract = "Unchecked(NoSuchContract("

// IsNotYetConfirmed reports whether err only means the contract is not
// visible on the node yet. This is the one place that knows the node's
// vocabulary for that condition.
func IsNotYetConfirmed(err error) bool {
	if err == nil {
		return false
	}
	var ne *node.NodeError
	if errors.As(err, &ne) {
		if ne.StatusCode == http.StatusNotFound || strings.HasPrefix(ne.Status, "404") {
			return true
		}
		if strings.HasPrefix(ne.Body, noSuchContract) {
			return true
		}
	}
	var ce *node.ContractError
	if errors.As(err, &ce) && strings.HasPrefix(ce.Cause, noSuchContract) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, noSuchContract) || strings.HasPrefix(msg, "404")
}

package nodetest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Stackstarter/internal/clarity"
)

func (n *Node) router() http.Handler {
	r := chi.NewRouter()

	r.Route("/v2", func(r chi.Router) {
		r.Get("/info", n.info)
		r.Get("/accounts/{principal}", n.account)
		r.Get("/fees/transfer", n.feeRate)
		r.Post("/transactions", n.broadcast)
		r.Get("/contracts/source/{address}/{name}", n.source)
		r.Post("/contracts/call-read/{address}/{name}/{function}", n.callRead)
		r.Post("/map_entry/{address}/{name}/{map}", n.mapEntry)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// badRequest mirrors the node's bare 400 for principals without history.
func badRequest(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
}

func (n *Node) info(w http.ResponseWriter, _ *http.Request) {
	n.mu.Lock()
	height := n.height
	n.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"peer_version":      402653184,
		"burn_block_height": height + 100,
		"stacks_tip_height": height,
		"stacks_tip":        fmt.Sprintf("%064x", height),
		"network_id":        n.Network.ChainID,
		"parent_network_id": 3669344250,
		"server_version":    "nodetest",
	})
}

func (n *Node) account(w http.ResponseWriter, r *http.Request) {
	principal := chi.URLParam(r, "principal")
	n.mu.Lock()
	a, ok := n.accounts[principal]
	var balance string
	var nonce uint64
	if ok {
		balance = fmt.Sprintf("0x%032x", a.balance)
		nonce = a.nonce
	}
	n.mu.Unlock()

	if !ok {
		badRequest(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": balance, "nonce": nonce})
}

func (n *Node) feeRate(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, n.FeeRate)
}

func (n *Node) broadcast(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w)
		return
	}
	txid, err := n.submit(raw)
	if err != nil {
		rej, _ := err.(*rejection)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "transaction rejected",
			"reason": rej.reason,
			"txid":   rej.txid,
		})
		return
	}
	writeJSON(w, http.StatusOK, txid)
}

func (n *Node) source(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "address") + "." + chi.URLParam(r, "name")
	n.mu.Lock()
	c, ok := n.contracts[id]
	n.mu.Unlock()
	if !ok {
		http.Error(w, "No contract source data found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":         c.source,
		"publish_height": c.publishHeight,
		"proof":          "",
	})
}

type callReadRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

func (n *Node) callRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "address") + "." + chi.URLParam(r, "name")
	function := chi.URLParam(r, "function")

	var req callReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w)
		return
	}
	if _, err := clarity.ParsePrincipal(req.Sender); err != nil {
		badRequest(w)
		return
	}
	args := make([]clarity.Value, 0, len(req.Arguments))
	for _, a := range req.Arguments {
		v, err := clarity.DecodeHex(a)
		if err != nil {
			badRequest(w)
			return
		}
		args = append(args, v)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	// A principal argument the ledger has never seen has no history.
	for _, a := range args {
		if p, ok := clarity.PrincipalString(a); ok {
			if _, known := n.accounts[p]; !known {
				badRequest(w)
				return
			}
		}
	}

	c, ok := n.contracts[id]
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"okay":  false,
			"cause": fmt.Sprintf("Unchecked(NoSuchContract(%q))", id),
		})
		return
	}
	if c.program == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"okay":  false,
			"cause": fmt.Sprintf("Unchecked(NoSuchPublicFunction(%q, %q))", id, function),
		})
		return
	}
	result, err := c.program.readOnly(n.height, function, args)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"okay": false, "cause": err.Error()})
		return
	}
	encoded, err := clarity.EncodeHex(result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"okay": true, "result": encoded})
}

func (n *Node) mapEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "address") + "." + chi.URLParam(r, "name")

	var keyHex string
	if err := json.NewDecoder(r.Body).Decode(&keyHex); err != nil {
		badRequest(w)
		return
	}
	key, err := clarity.DecodeHex(keyHex)
	if err != nil {
		badRequest(w)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	c, ok := n.contracts[id]
	if !ok || c.program == nil {
		http.NotFound(w, r)
		return
	}
	entry, ok := c.program.mapEntry(chi.URLParam(r, "map"), key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	b, err := clarity.Serialize(entry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": "0x" + hex.EncodeToString(b), "proof": ""})
}

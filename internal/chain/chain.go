package chain

import (
	"context"
	"encoding/base64"
	"math/big"
	"strings"
)

// PriceReader retrieves the current on-chain COMPUTE price for a model, in
// smallest GAS units.
type PriceReader interface {
	ReadPrice(ctx context.Context, modelID string) (*big.Int, error)
}

// Invoker executes contract invocations. The in-repo Bridge submits them as
// test executions; a production signer implements the same interface.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error)
}

// Param is one contract argument in Neo RPC form.
type Param struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// ByteArrayParam encodes raw bytes as a base64 ByteArray argument.
func ByteArrayParam(b []byte) Param {
	return Param{Type: "ByteArray", Value: base64.StdEncoding.EncodeToString(b)}
}

// IntegerParam encodes an integer argument.
func IntegerParam(v *big.Int) Param {
	return Param{Type: "Integer", Value: v.String()}
}

// Hash160Param encodes an address or script hash argument.
func Hash160Param(hash string) Param {
	return Param{Type: "Hash160", Value: hash}
}

// StringParam encodes a string argument.
func StringParam(s string) Param {
	return Param{Type: "String", Value: s}
}

// InvokeRequest describes one contract invocation.
type InvokeRequest struct {
	Contract string
	Method   string
	Params   []Param
	Signer   string
}

// InvokeResult reports the execution outcome. TxHash stays empty until an
// external signer broadcasts the transaction.
type InvokeResult struct {
	TxHash      string
	State       string
	GasConsumed string
	Exception   string
}

// Halted reports whether the VM finished cleanly.
func (r InvokeResult) Halted() bool {
	return strings.EqualFold(r.State, "HALT")
}

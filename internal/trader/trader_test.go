package trader

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatten/internal/chain"
	"chatten/internal/qscore"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fakeReader struct {
	price *big.Int
	err   error
}

func (f fakeReader) ReadPrice(_ context.Context, _ string) (*big.Int, error) {
	return f.price, f.err
}

type fakeInvoker struct {
	res      chain.InvokeResult
	err      error
	requests []chain.InvokeRequest
}

func (f *fakeInvoker) Invoke(_ context.Context, req chain.InvokeRequest) (chain.InvokeResult, error) {
	f.requests = append(f.requests, req)
	return f.res, f.err
}

func eligibleScore() qscore.Result {
	return qscore.Result{ModelID: "gpt-4", QScore: 75.0, MintEligible: true}
}

func testOptions() Options {
	return Options{
		ModelID:          "gpt-4",
		MaxBuyPriceUnits: 1_000_000,
		BuyAmountGAS:     2.0,
		GasTokenHash:     "0xd2a4cff31913016155e38e472a4c06d08be276cf",
		ContractHash:     "0xcompute",
		WalletAddress:    "NWallet",
	}
}

func TestEvaluateBuysBelowCeiling(t *testing.T) {
	tr := New(testOptions(), fakeReader{price: big.NewInt(900_000)}, nil, noopLogger())
	d, err := tr.Evaluate(context.Background(), eligibleScore())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.Buy {
		t.Fatalf("expected buy below ceiling, reason: %s", d.Reason)
	}
	if d.PriceUnits.Int64() != 900_000 {
		t.Fatalf("decision price = %s", d.PriceUnits)
	}
}

func TestEvaluateHoldsAtCeiling(t *testing.T) {
	tr := New(testOptions(), fakeReader{price: big.NewInt(1_000_000)}, nil, noopLogger())
	d, err := tr.Evaluate(context.Background(), eligibleScore())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Buy {
		t.Fatal("price at ceiling must not trigger a buy")
	}
}

func TestEvaluateHoldsWhenNotEligible(t *testing.T) {
	tr := New(testOptions(), fakeReader{price: big.NewInt(900_000)}, nil, noopLogger())
	score := qscore.Result{ModelID: "gpt-4", QScore: 49.0, MintEligible: false}
	d, err := tr.Evaluate(context.Background(), score)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Buy {
		t.Fatal("ineligible model must not trigger a buy")
	}
}

func TestEvaluateHoldsWithoutPrice(t *testing.T) {
	tr := New(testOptions(), fakeReader{price: big.NewInt(0)}, nil, noopLogger())
	d, err := tr.Evaluate(context.Background(), eligibleScore())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Buy {
		t.Fatal("missing on-chain price must not trigger a buy")
	}
}

func TestEvaluatePropagatesReaderErrors(t *testing.T) {
	tr := New(testOptions(), fakeReader{err: errors.New("node offline")}, nil, noopLogger())
	if _, err := tr.Evaluate(context.Background(), eligibleScore()); err == nil {
		t.Fatal("reader failure should surface as an error")
	}
}

func TestExecuteDryRun(t *testing.T) {
	opts := testOptions()
	opts.DryRun = true
	inv := &fakeInvoker{}
	tr := New(opts, fakeReader{price: big.NewInt(900_000)}, inv, noopLogger())

	d, err := tr.Evaluate(context.Background(), eligibleScore())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	order, err := tr.Execute(context.Background(), d)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if order.Status != StatusDryRun {
		t.Fatalf("status = %q, want %q", order.Status, StatusDryRun)
	}
	if len(inv.requests) != 0 {
		t.Fatal("dry run must not touch the invoker")
	}
	if _, err := uuid.Parse(order.ID); err != nil {
		t.Fatalf("order id is not a uuid: %q", order.ID)
	}
	if order.AmountGASUnits.Int64() != 200_000_000 {
		t.Fatalf("gas amount = %s, want 200000000", order.AmountGASUnits)
	}
	// 2 GAS minus fee is 199400000; times 1e8 over price 900000 floors to
	// 22155555555 token units.
	if order.TokensOutUnits.Int64() != 22_155_555_555 {
		t.Fatalf("tokens out = %s, want 22155555555", order.TokensOutUnits)
	}
}

func TestExecuteSubmitsGASTransfer(t *testing.T) {
	inv := &fakeInvoker{res: chain.InvokeResult{State: "HALT", GasConsumed: "9.7"}}
	tr := New(testOptions(), fakeReader{price: big.NewInt(900_000)}, inv, noopLogger())

	d, err := tr.Evaluate(context.Background(), eligibleScore())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	order, err := tr.Execute(context.Background(), d)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if order.Status != StatusSubmitted {
		t.Fatalf("status = %q, want %q", order.Status, StatusSubmitted)
	}

	if len(inv.requests) != 1 {
		t.Fatalf("expected 1 invocation, saw %d", len(inv.requests))
	}
	req := inv.requests[0]
	if req.Contract != "0xd2a4cff31913016155e38e472a4c06d08be276cf" || req.Method != "transfer" {
		t.Fatalf("unexpected invocation %s.%s", req.Contract, req.Method)
	}
	if len(req.Params) != 4 {
		t.Fatalf("transfer needs 4 args, got %d", len(req.Params))
	}
	if req.Params[2].Value != "200000000" {
		t.Fatalf("transfer amount = %v, want 200000000", req.Params[2].Value)
	}
	if req.Signer != "NWallet" {
		t.Fatalf("signer = %q", req.Signer)
	}
}

func TestExecuteRejectsHold(t *testing.T) {
	tr := New(testOptions(), fakeReader{price: big.NewInt(900_000)}, nil, noopLogger())
	if _, err := tr.Execute(context.Background(), Decision{Buy: false}); !errors.Is(err, ErrNotABuy) {
		t.Fatalf("expected ErrNotABuy, got %v", err)
	}
}

func TestExecuteFaultedInvocation(t *testing.T) {
	inv := &fakeInvoker{res: chain.InvokeResult{State: "FAULT", Exception: "paused"}}
	tr := New(testOptions(), fakeReader{price: big.NewInt(900_000)}, inv, noopLogger())

	d, err := tr.Evaluate(context.Background(), eligibleScore())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	order, err := tr.Execute(context.Background(), d)
	if err == nil {
		t.Fatal("faulted invocation should error")
	}
	if order.Status != StatusFailed {
		t.Fatalf("status = %q, want %q", order.Status, StatusFailed)
	}
}

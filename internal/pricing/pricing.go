package pricing

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Token identity and fee schedule, mirroring the on-chain contract. These are
// protocol constants, not configuration.
const (
	TokenSymbol   = "COMPUTE"
	TokenDecimals = 8
	OneToken      = 100_000_000

	FeeNumerator   = 3
	FeeDenominator = 1000
)

var (
	// ErrInvalidAmount rejects negative trade amounts.
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrInvalidPrice rejects zero or negative prices before any division.
	ErrInvalidPrice = errors.New("price must be positive")
)

var (
	oneToken = big.NewInt(OneToken)
	feeNum   = big.NewInt(FeeNumerator)
	feeDen   = big.NewInt(FeeDenominator)
)

// Quote is the outcome of one conversion. Every value is an integer in the
// smallest unit (8 fractional digits); all division floors.
type Quote struct {
	AmountIn  *big.Int
	Fee       *big.Int
	Net       *big.Int
	AmountOut *big.Int
	Price     *big.Int
}

// State mirrors the contract's pricing storage for one model market.
type State struct {
	ReserveGAS  *big.Int
	TokenSupply *big.Int
	Price       *big.Int
}

// Validate rejects states the contract could never hold: negative reserve or
// supply, and a non-positive price once one is set.
func (s State) Validate() error {
	if s.ReserveGAS != nil && s.ReserveGAS.Sign() < 0 {
		return fmt.Errorf("gas reserve: %w", ErrInvalidAmount)
	}
	if s.TokenSupply != nil && s.TokenSupply.Sign() < 0 {
		return fmt.Errorf("token supply: %w", ErrInvalidAmount)
	}
	if s.Price != nil && s.Price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Fee returns the protocol fee on an amount: amount * 3 / 1000, floored.
func Fee(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, feeNum)
	return fee.Quo(fee, feeDen)
}

// QuoteBuy converts a GAS payment into COMPUTE output at the given price:
// fee comes off first, then net * OneToken / price, floored. Deterministic
// and side-effect free so it can double as a contract test vector.
func QuoteBuy(gasIn, price *big.Int) (Quote, error) {
	if err := validateInputs(gasIn, price); err != nil {
		return Quote{}, err
	}
	fee := Fee(gasIn)
	net := new(big.Int).Sub(gasIn, fee)
	out := new(big.Int).Mul(net, oneToken)
	out.Quo(out, price)
	return Quote{
		AmountIn:  new(big.Int).Set(gasIn),
		Fee:       fee,
		Net:       net,
		AmountOut: out,
		Price:     new(big.Int).Set(price),
	}, nil
}

// QuoteSell is the structural inverse of QuoteBuy: fee on the COMPUTE input,
// then net * price / OneToken, floored.
func QuoteSell(tokensIn, price *big.Int) (Quote, error) {
	if err := validateInputs(tokensIn, price); err != nil {
		return Quote{}, err
	}
	fee := Fee(tokensIn)
	net := new(big.Int).Sub(tokensIn, fee)
	out := new(big.Int).Mul(net, price)
	out.Quo(out, oneToken)
	return Quote{
		AmountIn:  new(big.Int).Set(tokensIn),
		Fee:       fee,
		Net:       net,
		AmountOut: out,
		Price:     new(big.Int).Set(price),
	}, nil
}

func validateInputs(amount, price *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// FormatUnits renders a smallest-unit integer as a human decimal string.
func FormatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -TokenDecimals).String()
}

// ParseUnits converts a human decimal amount ("2.5") into smallest units.
func ParseUnits(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if d.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	shifted := d.Shift(TokenDecimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", s, TokenDecimals)
	}
	return shifted.BigInt(), nil
}

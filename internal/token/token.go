package token

import (
	"errors"
	"fmt"
	"sync"

	"SavingsDAO/internal/model"
)

// Token is the transfer capability of one fungible asset, seen from a
// bound holder (the pool). Any returned error means nothing moved.
type Token interface {
	Symbol() string
	BalanceOf(addr model.Address) model.Amount
	// Transfer sends amount from the bound holder to `to`.
	Transfer(to model.Address, amount model.Amount) error
	// TransferFrom pulls amount from `from` to `to`, spending the
	// allowance `from` granted the bound holder.
	TransferFrom(from, to model.Address, amount model.Amount) error
}

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrOverflow              = errors.New("balance overflow")
)

// Memory is an in-process ERC-20 style ledger with allowances. It backs
// the daemon's local mode and the tests.
type Memory struct {
	mu         sync.Mutex
	symbol     string
	decimals   uint8
	balances   map[model.Address]model.Amount
	allowances map[model.Address]map[model.Address]model.Amount
}

// NewMemory creates an empty token.
func NewMemory(symbol string, decimals uint8) *Memory {
	return &Memory{
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[model.Address]model.Amount),
		allowances: make(map[model.Address]map[model.Address]model.Amount),
	}
}

func (m *Memory) Symbol() string  { return m.symbol }
func (m *Memory) Decimals() uint8 { return m.decimals }

// TopUp mints whatever holder lacks to reach want and returns the
// minted amount. A holder already at or above want is left alone.
func (m *Memory) TopUp(holder model.Address, want model.Amount) model.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	have := m.balances[holder]
	if !have.Lt(want) {
		return model.Amount{}
	}
	m.balances[holder] = want
	return want.Sub(have)
}

// Mint credits amount to addr out of thin air.
func (m *Memory) Mint(to model.Address, amount model.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, ok := m.balances[to].Add(amount)
	if !ok {
		return ErrOverflow
	}
	m.balances[to] = sum
	return nil
}

// Approve sets the allowance spender may pull from owner.
func (m *Memory) Approve(owner, spender model.Address, amount model.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[model.Address]model.Amount)
	}
	m.allowances[owner][spender] = amount
}

func (m *Memory) Allowance(owner, spender model.Address) model.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[owner][spender]
}

func (m *Memory) BalanceOf(addr model.Address) model.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr]
}

// TransferAs moves amount from holder to `to`.
func (m *Memory) TransferAs(holder, to model.Address, amount model.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(holder, to, amount)
}

// TransferFromAs moves amount from `from` to `to` on behalf of spender.
func (m *Memory) TransferFromAs(spender, from, to model.Address, amount model.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := m.allowances[from][spender]
	if allowed.Lt(amount) {
		return fmt.Errorf("%s: %w: %s allowed %s, need %s", m.symbol, ErrInsufficientAllowance, from, allowed, amount)
	}
	if err := m.move(from, to, amount); err != nil {
		return err
	}
	m.allowances[from][spender] = allowed.Sub(amount)
	return nil
}

func (m *Memory) move(from, to model.Address, amount model.Amount) error {
	have := m.balances[from]
	if have.Lt(amount) {
		return fmt.Errorf("%s: %w: %s has %s, need %s", m.symbol, ErrInsufficientFunds, from, have, amount)
	}
	if from == to {
		return nil
	}
	sum, ok := m.balances[to].Add(amount)
	if !ok {
		return fmt.Errorf("%s: %w", m.symbol, ErrOverflow)
	}
	m.balances[from] = have.Sub(amount)
	m.balances[to] = sum
	return nil
}

// As binds the token to holder, producing the Token view the pool uses.
func (m *Memory) As(holder model.Address) Token {
	return &boundToken{mem: m, holder: holder}
}

type boundToken struct {
	mem    *Memory
	holder model.Address
}

func (b *boundToken) Symbol() string { return b.mem.Symbol() }

func (b *boundToken) BalanceOf(addr model.Address) model.Amount { return b.mem.BalanceOf(addr) }

func (b *boundToken) Transfer(to model.Address, amount model.Amount) error {
	return b.mem.TransferAs(b.holder, to, amount)
}

func (b *boundToken) TransferFrom(from, to model.Address, amount model.Amount) error {
	return b.mem.TransferFromAs(b.holder, from, to, amount)
}

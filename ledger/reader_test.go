package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/yoms07/lisk-checkout-go"
)

type mockCaller struct {
	balance   *big.Int
	allowance *big.Int
	err       error
	calls     []ethereum.CallMsg
}

func (m *mockCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.calls = append(m.calls, call)
	if m.err != nil {
		return nil, m.err
	}
	switch hex.EncodeToString(call.Data[:4]) {
	case "70a08231": // balanceOf
		return common.LeftPadBytes(m.balance.Bytes(), 32), nil
	case "dd62ed3e": // allowance
		return common.LeftPadBytes(m.allowance.Bytes(), 32), nil
	}
	return nil, errors.New("unexpected call")
}

func testReader(t *testing.T, caller *mockCaller) *Reader {
	t.Helper()
	r, err := NewReader(caller, checkout.LiskMainnet)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	return r
}

func TestSnapshot(t *testing.T) {
	caller := &mockCaller{balance: big.NewInt(100000), allowance: big.NewInt(50000)}
	r := testReader(t, caller)

	payer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	snap, err := r.Snapshot(context.Background(), payer)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !snap.Known {
		t.Error("snapshot should be known for a connected payer")
	}
	if snap.Balance.Int64() != 100000 || snap.Allowance.Int64() != 50000 {
		t.Errorf("snapshot = %s / %s", snap.Balance, snap.Allowance)
	}

	if len(caller.calls) != 2 {
		t.Fatalf("expected 2 contract calls, got %d", len(caller.calls))
	}
	token := common.HexToAddress(checkout.LiskMainnet.Token.Address)
	for _, call := range caller.calls {
		if *call.To != token {
			t.Errorf("call targeted %s, want token %s", call.To, token)
		}
	}

	// The allowance query must name the gateway as spender.
	allowanceData := caller.calls[1].Data
	spender := common.BytesToAddress(allowanceData[4+32 : 4+64])
	if spender != common.HexToAddress(checkout.LiskMainnet.Gateway) {
		t.Errorf("allowance spender = %s", spender)
	}
}

func TestSnapshotZeroPayer(t *testing.T) {
	caller := &mockCaller{}
	r := testReader(t, caller)

	snap, err := r.Snapshot(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Known {
		t.Error("zero payer must yield an unknown snapshot")
	}
	if len(caller.calls) != 0 {
		t.Errorf("zero payer must not hit the node, got %d calls", len(caller.calls))
	}
}

func TestSnapshotNodeError(t *testing.T) {
	caller := &mockCaller{err: errors.New("connection refused")}
	r := testReader(t, caller)

	payer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	if _, err := r.Snapshot(context.Background(), payer); err == nil {
		t.Fatal("expected error from failing node")
	}
}

func TestNewReaderValidation(t *testing.T) {
	if _, err := NewReader(nil, checkout.LiskMainnet); !errors.Is(err, checkout.ErrNotConfigured) {
		t.Errorf("nil caller: got %v", err)
	}

	bad := checkout.LiskMainnet
	bad.Token.Address = "not-an-address"
	if _, err := NewReader(&mockCaller{}, bad); !errors.Is(err, checkout.ErrNotConfigured) {
		t.Errorf("bad token address: got %v", err)
	}
}

package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	checkout "github.com/yoms07/lisk-checkout-go"
)

// Well-known throwaway development key; never funded on any real network.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var testKeyAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type fakeBackend struct {
	nonce       uint64
	gasPrice    *big.Int
	gasEstimate uint64
	estimateErr error
	sendErr     error
	sent        *types.Transaction
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if b.gasPrice == nil {
		return big.NewInt(1_000_000_000), nil
	}
	return b.gasPrice, nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	if b.gasEstimate == 0 {
		return 100_000, nil
	}
	return b.gasEstimate, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.sent = tx
	return b.sendErr
}

func TestNewKeyWallet(t *testing.T) {
	backend := &fakeBackend{}

	w, err := NewKeyWallet(testKeyHex, backend, 1135)
	if err != nil {
		t.Fatalf("NewKeyWallet failed: %v", err)
	}
	if w.Address() != testKeyAddress {
		t.Errorf("derived address = %s, want %s", w.Address(), testKeyAddress)
	}

	// 0x prefix is tolerated.
	if _, err := NewKeyWallet("0x"+testKeyHex, backend, 1135); err != nil {
		t.Errorf("prefixed key rejected: %v", err)
	}

	if _, err := NewKeyWallet("not-a-key", backend, 1135); !errors.Is(err, checkout.ErrInvalidKey) {
		t.Errorf("bad key: got %v", err)
	}
	if _, err := NewKeyWallet(testKeyHex, nil, 1135); !errors.Is(err, checkout.ErrNotConfigured) {
		t.Errorf("nil backend: got %v", err)
	}
	if _, err := NewKeyWallet(testKeyHex, backend, 0); !errors.Is(err, checkout.ErrInvalidNetwork) {
		t.Errorf("zero chain: got %v", err)
	}
}

func TestKeyWalletSwitchChain(t *testing.T) {
	w, err := NewKeyWallet(testKeyHex, &fakeBackend{}, 1135)
	if err != nil {
		t.Fatalf("NewKeyWallet failed: %v", err)
	}

	if err := w.SwitchChain(context.Background(), 1135); err != nil {
		t.Errorf("switching to the pinned chain should succeed: %v", err)
	}
	if err := w.SwitchChain(context.Background(), 1); !errors.Is(err, checkout.ErrChainMismatch) {
		t.Errorf("expected ErrChainMismatch, got %v", err)
	}

	id, _ := w.ChainID(context.Background())
	if id != 1135 {
		t.Errorf("chain id = %d", id)
	}
}

func TestKeyWalletSendTransaction(t *testing.T) {
	backend := &fakeBackend{nonce: 7}
	w, err := NewKeyWallet(testKeyHex, backend, 1135)
	if err != nil {
		t.Fatalf("NewKeyWallet failed: %v", err)
	}

	to := common.HexToAddress("0x8D5680a242F0Ec85153881F89a48150691826123")
	data := []byte{0x09, 0x5e, 0xa7, 0xb3}

	hash, err := w.SendTransaction(context.Background(), to, data)
	if err != nil {
		t.Fatalf("SendTransaction failed: %v", err)
	}
	if backend.sent == nil {
		t.Fatal("no transaction broadcast")
	}
	if hash != backend.sent.Hash() {
		t.Errorf("returned hash %s != broadcast hash %s", hash, backend.sent.Hash())
	}
	if backend.sent.Nonce() != 7 {
		t.Errorf("nonce = %d", backend.sent.Nonce())
	}
	if *backend.sent.To() != to {
		t.Errorf("to = %s", backend.sent.To())
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1135)), backend.sent)
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if sender != testKeyAddress {
		t.Errorf("signed by %s, want %s", sender, testKeyAddress)
	}
}

func TestKeyWalletEstimateFailureMeansRevert(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("execution reverted: deadline passed")}
	w, err := NewKeyWallet(testKeyHex, backend, 1135)
	if err != nil {
		t.Fatalf("NewKeyWallet failed: %v", err)
	}

	_, err = w.SendTransaction(context.Background(), common.Address{1}, nil)
	if !errors.Is(err, checkout.ErrTxReverted) {
		t.Fatalf("expected ErrTxReverted, got %v", err)
	}
	if backend.sent != nil {
		t.Error("a failing estimate must not broadcast")
	}
}

func TestKeyWalletPinnedGasLimitSkipsEstimate(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("should not be called")}
	w, err := NewKeyWallet(testKeyHex, backend, 1135, WithGasLimit(250_000))
	if err != nil {
		t.Fatalf("NewKeyWallet failed: %v", err)
	}

	if _, err := w.SendTransaction(context.Background(), common.Address{1}, nil); err != nil {
		t.Fatalf("SendTransaction failed: %v", err)
	}
	if backend.sent.Gas() != 250_000 {
		t.Errorf("gas = %d", backend.sent.Gas())
	}
}

func TestKeyWalletBroadcastFailure(t *testing.T) {
	backend := &fakeBackend{sendErr: errors.New("nonce too low")}
	w, err := NewKeyWallet(testKeyHex, backend, 1135)
	if err != nil {
		t.Fatalf("NewKeyWallet failed: %v", err)
	}

	if _, err := w.SendTransaction(context.Background(), common.Address{1}, nil); !errors.Is(err, checkout.ErrTxReverted) {
		t.Fatalf("expected ErrTxReverted, got %v", err)
	}
}

func TestKeyWalletBroadcastCancelled(t *testing.T) {
	backend := &fakeBackend{sendErr: context.Canceled}
	w, err := NewKeyWallet(testKeyHex, backend, 1135)
	if err != nil {
		t.Fatalf("NewKeyWallet failed: %v", err)
	}

	if _, err := w.SendTransaction(context.Background(), common.Address{1}, nil); !errors.Is(err, checkout.ErrWalletRejected) {
		t.Fatalf("expected ErrWalletRejected, got %v", err)
	}
}

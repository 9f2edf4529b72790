package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	checkout "github.com/yoms07/lisk-checkout-go"
)

// ContractCaller performs read-only contract calls. *ethclient.Client
// satisfies this.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader queries the payer's token balance and the spending allowance
// granted to the gateway contract. Read-only; no side effects.
type Reader struct {
	caller  ContractCaller
	token   common.Address
	gateway common.Address
}

var _ checkout.FundsReader = (*Reader)(nil)

// NewReader creates a funds reader for the given deployment.
func NewReader(caller ContractCaller, chain checkout.ChainConfig) (*Reader, error) {
	if caller == nil {
		return nil, fmt.Errorf("%w: nil contract caller", checkout.ErrNotConfigured)
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(chain.Token.Address) || !common.IsHexAddress(chain.Gateway) {
		return nil, fmt.Errorf("%w: malformed contract address", checkout.ErrNotConfigured)
	}

	return &Reader{
		caller:  caller,
		token:   common.HexToAddress(chain.Token.Address),
		gateway: common.HexToAddress(chain.Gateway),
	}, nil
}

// Snapshot returns the payer's balance and gateway allowance in atomic
// units. A zero payer address reports an unknown snapshot instead of
// failing, so an unconnected checkout page can still render.
func (r *Reader) Snapshot(ctx context.Context, payer common.Address) (*checkout.FundsSnapshot, error) {
	if payer == (common.Address{}) {
		return &checkout.FundsSnapshot{Known: false}, nil
	}

	balance, err := r.readUint256(ctx, "balanceOf", payer)
	if err != nil {
		return nil, err
	}

	allowance, err := r.allowance(ctx, payer)
	if err != nil {
		return nil, err
	}

	return &checkout.FundsSnapshot{
		Known:     true,
		Balance:   balance,
		Allowance: allowance,
	}, nil
}

func (r *Reader) allowance(ctx context.Context, payer common.Address) (*big.Int, error) {
	data, err := PackAllowance(payer, r.gateway)
	if err != nil {
		return nil, err
	}
	return r.call(ctx, "allowance", data)
}

func (r *Reader) readUint256(ctx context.Context, method string, account common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack(method, account)
	if err != nil {
		return nil, err
	}
	return r.call(ctx, method, data)
}

func (r *Reader) call(ctx context.Context, method string, data []byte) (*big.Int, error) {
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	return UnpackUint256(method, out)
}

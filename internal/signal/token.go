package signal

import (
	"tradescope/internal/config"
	"tradescope/internal/model"
)

// tokenTransformer turns ERC-20 style Transfer logs into transfer signals.
type tokenTransformer struct {
	dispatcher
}

func newTokenTransformer(contract config.ContractConfig) *tokenTransformer {
	t := &tokenTransformer{dispatcher{contract: contract}}
	t.handlers = map[string]handlerFunc{
		"Transfer":      t.transfer,
		"TransferBatch": t.transfer,
	}
	return t
}

func (t *tokenTransformer) transfer(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	from, err := attrAddress(log, "from")
	if err != nil {
		return nil, err
	}
	to, err := attrAddress(log, "to")
	if err != nil {
		return nil, err
	}
	amount, err := attrAmount(log, "value")
	if err != nil {
		if raw := optionalAttr(log, "amount"); raw != "" {
			amount, err = attrAmount(log, "amount")
		}
		if err != nil {
			return nil, err
		}
	}
	if amount.IsZero() {
		return nil, zeroAmounts()
	}

	return &model.TransferSignal{
		LogIndex: log.LogIndex,
		Token:    t.contract.Address,
		From:     from,
		To:       to,
		Amount:   amount.AbsValue(),
		BatchID:  optionalAttr(log, "batch_id"),
	}, nil
}

package signal

import (
	"tradescope/internal/config"
	"tradescope/internal/model"
)

// farmTransformer interprets farm reward claims.
type farmTransformer struct {
	dispatcher
}

func newFarmTransformer(contract config.ContractConfig) *farmTransformer {
	t := &farmTransformer{dispatcher{contract: contract}}
	t.handlers = map[string]handlerFunc{
		"RewardPaid": t.claim,
		"Harvest":    t.claim,
		"Claim":      t.claim,
	}
	return t
}

func (t *farmTransformer) claim(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	return claimSignal(log, t.contract, "reward_claim")
}

// auctionTransformer interprets auction settlement payouts. Settlements are
// claim-shaped: one user receives one token amount from the contract.
type auctionTransformer struct {
	dispatcher
}

func newAuctionTransformer(contract config.ContractConfig) *auctionTransformer {
	t := &auctionTransformer{dispatcher{contract: contract}}
	t.handlers = map[string]handlerFunc{
		"Claimed": t.claim,
		"Settled": t.claim,
	}
	return t
}

func (t *auctionTransformer) claim(log model.DecodedLog, _ *model.Transaction) (model.Signal, error) {
	return claimSignal(log, t.contract, "reward_claim")
}

func claimSignal(log model.DecodedLog, contract config.ContractConfig, pattern string) (model.Signal, error) {
	user, err := firstAttrAddress(log, "user", "account", "recipient")
	if err != nil {
		return nil, err
	}
	amount, err := attrAmount(log, "amount")
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, zeroAmounts()
	}

	token := contract.RewardToken
	if raw := optionalAttr(log, "token"); raw != "" {
		normalized, err := model.NormalizeAddress(raw)
		if err != nil {
			return nil, err
		}
		token = normalized
	}
	if token == "" {
		return nil, missingAttr("token")
	}

	return &model.RewardSignal{
		LogIndex:    log.LogIndex,
		Source:      contract.Address,
		User:        user,
		Token:       token,
		Amount:      amount.AbsValue(),
		PatternName: pattern,
	}, nil
}

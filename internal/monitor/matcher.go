package monitor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// matchNamespace seeds deterministic event ids
var matchNamespace = uuid.MustParse("6f1c64a4-3b0e-4d3f-9a55-2f4f0e1c9b7d")

// Match inspects block against the tracked set and returns one event per
// direction per touched address. A transfer between two tracked addresses
// yields both an INBOUND and an OUTBOUND event. Match has no side effects and
// assigns ids derived from the block position, so equal input gives equal output.
func Match(chain models.ChainConfig, block *models.Block, tracked registry.AddressSet) []models.MatchEvent {
	if block == nil || len(tracked) == 0 {
		return nil
	}

	var events []models.MatchEvent
	for i, tx := range block.Transactions {
		from := utils.NormalizeAddress(tx.From)

		if tx.To != nil {
			to := utils.NormalizeAddress(*tx.To)
			if tracked.Contains(to) {
				events = append(events, newMatchEvent(chain, block.Height, i, tx, models.DirectionInbound, to, from))
			}
		}

		if from != "" && tracked.Contains(from) {
			counterparty := ""
			if tx.To != nil {
				counterparty = utils.NormalizeAddress(*tx.To)
			}
			events = append(events, newMatchEvent(chain, block.Height, i, tx, models.DirectionOutbound, from, counterparty))
		}
	}
	return events
}

func newMatchEvent(chain models.ChainConfig, height uint64, index int, tx models.Transaction,
	direction models.Direction, matched, counterparty string) models.MatchEvent {

	key := fmt.Sprintf("%s/%d/%d/%s/%s/%s", chain.ID, height, index, tx.Hash, direction, matched)
	return models.MatchEvent{
		ID:             uuid.NewSHA1(matchNamespace, []byte(key)).String(),
		ChainID:        chain.ID,
		Direction:      direction,
		MatchedAddress: matched,
		Counterparty:   counterparty,
		Amount:         tx.Value,
		Decimals:       chain.Family.Decimals(),
		Symbol:         chain.Symbol(),
		Height:         height,
		TxHash:         tx.Hash,
	}
}

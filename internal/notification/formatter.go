package notification

import (
	"fmt"
	"strings"

	"github.com/smartdevs17/multichain-watcher/internal/models"
)

// FormatMatch renders a match event as a chat message
func FormatMatch(event models.MatchEvent) string {
	icon, peerLabel := "📥", "From"
	if event.Direction == models.DirectionOutbound {
		icon, peerLabel = "📤", "To"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s on %s\n", icon, event.Direction,
		models.FormatAmount(event.Amount, event.Decimals), event.Symbol, strings.ToUpper(event.ChainID))
	fmt.Fprintf(&b, "Address: %s\n", event.MatchedAddress)
	if event.Counterparty != "" {
		fmt.Fprintf(&b, "%s: %s\n", peerLabel, event.Counterparty)
	}
	fmt.Fprintf(&b, "Block: %d\n", event.Height)
	fmt.Fprintf(&b, "Tx: %s", event.TxHash)
	return b.String()
}

// File: internal/command/command.go
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/chain"
	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/internal/registry"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// AddressTracker adds addresses to a scope
type AddressTracker interface {
	Add(ctx context.Context, scope models.ScopeKey, address string) (registry.AddResult, error)
}

// BalanceQuerier answers balance queries
type BalanceQuerier interface {
	QueryBalance(ctx context.Context, selector models.NetworkSelector, address string) (*models.BalanceResult, error)
}

// Handler parses chat-style commands and renders replies
type Handler struct {
	chains   []models.ChainConfig
	tracker  AddressTracker
	balances BalanceQuerier
	logger   *logrus.Entry
}

// NewHandler creates a command handler over the configured chains
func NewHandler(chains []models.ChainConfig, tracker AddressTracker, balances BalanceQuerier) *Handler {
	return &Handler{
		chains:   chains,
		tracker:  tracker,
		balances: balances,
		logger:   utils.ComponentLogger("command"),
	}
}

// Handle executes one command line and returns the reply text. It never fails;
// every problem becomes a reply.
func (h *Handler) Handle(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return h.usage()
	}

	name := strings.ToLower(fields[0])
	// group chats address commands as /cmd@BotName
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/start", "/help":
		return h.usage()
	case "/addaddress":
		if len(args) != 2 {
			return "Usage: /addaddress <network> <wallet_address>"
		}
		return h.addAddress(ctx, args[0], args[1])
	case "/balance":
		if len(args) != 2 {
			return "Usage: /balance <network> <wallet_address>"
		}
		return h.balance(ctx, args[0], args[1])
	default:
		return "❓ Unknown command.\n\n" + h.usage()
	}
}

// AddAddress resolves network, validates address for its family and tracks it
func (h *Handler) AddAddress(ctx context.Context, network, address string) (registry.AddResult, models.NetworkSelector, error) {
	sel, err := models.ResolveSelector(network, h.chains)
	if err != nil {
		return "", sel, utils.WrapError(utils.ErrCodeValidation, "Unknown network", err)
	}
	if err := chain.ValidateAddress(sel.Family(), address); err != nil {
		return "", sel, err
	}
	res, err := h.tracker.Add(ctx, sel.Scope(), address)
	return res, sel, err
}

// Balance resolves network and queries the balance of address
func (h *Handler) Balance(ctx context.Context, network, address string) (*models.BalanceResult, error) {
	sel, err := models.ResolveSelector(network, h.chains)
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeValidation, "Unknown network", err)
	}
	return h.balances.QueryBalance(ctx, sel, address)
}

func (h *Handler) addAddress(ctx context.Context, network, address string) string {
	res, sel, err := h.AddAddress(ctx, network, address)
	switch {
	case utils.HasCode(err, utils.ErrCodeValidation):
		return h.invalidNetwork()
	case utils.HasCode(err, utils.ErrCodeInvalidAddress):
		return fmt.Sprintf("❌ Invalid %s address: %s", strings.ToUpper(network), address)
	case err != nil:
		h.logger.WithError(err).WithField("network", network).Error("Add address failed")
		return "❌ Failed to save address!"
	case res == registry.AlreadyTracked:
		return fmt.Sprintf("⚠️ Address %s is already tracked!", address)
	default:
		return fmt.Sprintf("✅ Address %s added to %s", address, sel.Scope())
	}
}

func (h *Handler) balance(ctx context.Context, network, address string) string {
	result, err := h.Balance(ctx, network, address)
	switch {
	case utils.HasCode(err, utils.ErrCodeValidation):
		return h.invalidNetwork()
	case utils.HasCode(err, utils.ErrCodeInvalidAddress):
		return fmt.Sprintf("❌ Invalid %s address: %s", strings.ToUpper(network), address)
	case err != nil:
		return fmt.Sprintf("⚠️ Failed to fetch %s balance: %s", strings.ToUpper(network), err)
	}
	return FormatBalance(result)
}

// FormatBalance renders one line per chain entry
func FormatBalance(result *models.BalanceResult) string {
	lines := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		label := strings.ToUpper(e.ChainID)
		if e.Error != "" {
			lines = append(lines, fmt.Sprintf("⚠️ Failed to fetch %s balance: %s", label, e.Error))
			continue
		}
		lines = append(lines, fmt.Sprintf("💰 Balance %s: %s %s", label, e.Balance.Display(), e.Balance.Symbol))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) networkNames() []string {
	names := make([]string, 0, len(h.chains)+1)
	for _, c := range h.chains {
		names = append(names, c.ID)
	}
	sort.Strings(names)
	return append(names, models.EVMGroupName)
}

func (h *Handler) invalidNetwork() string {
	return "❌ Invalid network! Use: " + strings.Join(h.networkNames(), "/")
}

func (h *Handler) usage() string {
	return strings.Join([]string{
		"Commands:",
		"/addaddress <network> <wallet_address> - track an address",
		"/balance <network> <wallet_address> - show native balance",
		"Networks: " + strings.Join(h.networkNames(), "/"),
	}, "\n")
}

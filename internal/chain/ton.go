package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

// TONAdapter answers balance queries through a tonapi-compatible HTTP endpoint.
// It cannot enumerate blocks, so TON never gets a scan loop.
type TONAdapter struct {
	config     models.ChainConfig
	httpClient *http.Client
	guard      *guard
}

// NewTONAdapter creates an adapter for the TON endpoint in cfg
func NewTONAdapter(cfg models.ChainConfig, opts Options) *TONAdapter {
	return &TONAdapter{
		config:     cfg,
		httpClient: &http.Client{},
		guard:      newGuard(cfg.ID, opts),
	}
}

func (a *TONAdapter) ChainID() string       { return a.config.ID }
func (a *TONAdapter) Family() models.Family { return models.FamilyTON }

func (a *TONAdapter) GetHeight(ctx context.Context) (uint64, error) {
	return 0, utils.NewChainUnavailable(a.config.ID, ErrScanUnsupported)
}

func (a *TONAdapter) GetBlock(ctx context.Context, height uint64) (*models.Block, error) {
	return nil, utils.NewChainUnavailable(a.config.ID, ErrScanUnsupported)
}

type tonAccountInfo struct {
	Balance json.Number `json:"balance"`
}

// GetBalance returns the nanoton balance of addr
func (a *TONAdapter) GetBalance(ctx context.Context, addr string) (*models.Balance, error) {
	if err := ValidateAddress(models.FamilyTON, addr); err != nil {
		return nil, err
	}

	var raw *big.Int
	err := a.guard.do(ctx, "getInfo", func(ctx context.Context) error {
		endpoint := strings.TrimRight(a.config.Endpoint, "/") + "/v1/account/getInfo?account=" + url.QueryEscape(addr)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("getInfo returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var info tonAccountInfo
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(&info); err != nil {
			return fmt.Errorf("decode getInfo response: %w", err)
		}
		balance, ok := new(big.Int).SetString(info.Balance.String(), 10)
		if !ok {
			return fmt.Errorf("malformed balance %q", info.Balance.String())
		}
		raw = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.Balance{
		ChainID:  a.config.ID,
		Address:  addr,
		Raw:      raw,
		Decimals: models.FamilyTON.Decimals(),
		Symbol:   a.config.Symbol(),
	}, nil
}

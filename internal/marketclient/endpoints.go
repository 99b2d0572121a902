package marketclient

import (
	"context"
	"fmt"
	"time"

	"hlcopy/internal/hlerr"
	"hlcopy/pkg/types"
)

// LeaderboardEntry is one row of the upstream leaderboard response.
type LeaderboardEntry struct {
	Address      string
	Label        string
	AccountValue float64
}

// FetchLeaderboard returns the current top-traders leaderboard. Consults
// the Leaderboard rate limiter before the request.
func (c *Client) FetchLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if err := c.limits.Leaderboard.Wait(ctx); err != nil {
		return nil, hlerr.Wrap(hlerr.TransientNetwork, "fetch leaderboard: rate limiter", err)
	}

	var dto leaderboardResponseDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&dto).
		Get("/leaderboard")
	if err != nil {
		return nil, wrapHTTPErr(hlerr.TransientNetwork, "fetch leaderboard", err)
	}
	if !resp.IsSuccess() {
		return nil, statusErr("fetch leaderboard", resp)
	}

	entries := make([]LeaderboardEntry, 0, len(dto.Entries))
	for _, e := range dto.Entries {
		addr, err := NormalizeAddress(e.Address)
		if err != nil {
			c.logger.Warn("skipping malformed leaderboard entry", "raw_address", e.Address, "err", err)
			continue
		}
		accountValue, err := parseFloat("leaderboard", "accountValue", e.AccountValue)
		if err != nil {
			c.logger.Warn("skipping leaderboard entry with malformed account value", "address", addr, "err", err)
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Address:      addr,
			Label:        e.Label,
			AccountValue: accountValue,
		})
	}
	return entries, nil
}

// FetchAddressTrades returns an address's trade history since since,
// auto-paginating via the upstream cursor until either the cursor is
// exhausted or the pagination cap (default 1000 records) is hit.
// Consults the Trade rate limiter before every page request.
func (c *Client) FetchAddressTrades(ctx context.Context, address string, since time.Time) ([]types.Trade, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	var all []types.Trade
	cursor := ""

	for {
		if ctx.Err() != nil {
			return all, ctx.Err()
		}
		if err := c.limits.Trade.Wait(ctx); err != nil {
			return all, hlerr.Wrap(hlerr.TransientNetwork, "fetch address trades: rate limiter", err)
		}

		req := c.http.R().SetContext(ctx).SetQueryParam("address", addr).
			SetQueryParam("startTime", fmt.Sprintf("%d", since.UnixMilli()))
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}

		var dto tradeHistoryResponseDTO
		resp, err := req.SetResult(&dto).Get("/address/trades")
		if err != nil {
			return all, wrapHTTPErr(hlerr.TransientNetwork, "fetch address trades", err)
		}
		if !resp.IsSuccess() {
			return all, statusErr("fetch address trades", resp)
		}

		for _, t := range dto.Trades {
			trade, err := t.toTrade(addr)
			if err != nil {
				c.logger.Warn("skipping malformed trade", "address", addr, "tx_hash", t.TxHash, "err", err)
				continue
			}
			all = append(all, trade)
			if len(all) >= c.maxPage {
				return all, nil
			}
		}

		if dto.Cursor == "" || len(dto.Trades) == 0 {
			break
		}
		cursor = dto.Cursor
	}

	return all, nil
}

// AddressPositions is a trader's account value and full asset-position book
// at the instant of the request.
type AddressPositions struct {
	AccountValue float64
	Positions    []types.AssetPosition
}

// FetchAddressPositions returns an address's current positions. Consults
// the Position rate limiter before the request.
func (c *Client) FetchAddressPositions(ctx context.Context, address string) (AddressPositions, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return AddressPositions{}, err
	}

	if err := c.limits.Position.Wait(ctx); err != nil {
		return AddressPositions{}, hlerr.Wrap(hlerr.TransientNetwork, "fetch address positions: rate limiter", err)
	}

	var dto positionsResponseDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("address", addr).
		SetResult(&dto).
		Get("/address/positions")
	if err != nil {
		return AddressPositions{}, wrapHTTPErr(hlerr.TransientNetwork, "fetch address positions", err)
	}
	if !resp.IsSuccess() {
		return AddressPositions{}, statusErr("fetch address positions", resp)
	}

	accountValue, err := parseFloat("positions", "accountValue", dto.AccountValue)
	if err != nil {
		return AddressPositions{}, err
	}

	positions := make([]types.AssetPosition, 0, len(dto.Positions))
	for _, p := range dto.Positions {
		pos, err := p.toAssetPosition()
		if err != nil {
			c.logger.Warn("skipping malformed position", "address", addr, "token", p.Token, "err", err)
			continue
		}
		positions = append(positions, pos)
	}

	return AddressPositions{AccountValue: accountValue, Positions: positions}, nil
}

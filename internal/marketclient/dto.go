package marketclient

import (
	"strconv"
	"time"

	"hlcopy/internal/hlerr"
	"hlcopy/pkg/types"
)

// The upstream capability returns many numeric fields as JSON strings
// (the same convention Hyperliquid's own API uses), so every DTO below
// carries them as strings and is converted to typed pkg/types values at
// this boundary.

type leaderboardEntryDTO struct {
	Address      string `json:"address"`
	Label        string `json:"label"`
	AccountValue string `json:"accountValue"`
}

type leaderboardResponseDTO struct {
	Entries []leaderboardEntryDTO `json:"leaderboard"`
}

type tradeDTO struct {
	Token       string `json:"coin"`
	Side        string `json:"side"` // "B" or "A"
	Size        string `json:"sz"`
	Price       string `json:"px"`
	ClosedPnL   string `json:"closedPnl"`
	Fee         string `json:"fee"`
	TimestampMs int64  `json:"time"`
	TxHash      string `json:"hash"`
	Dir         string `json:"dir"` // "Open Long", "Close Short", etc.
}

type tradeHistoryResponseDTO struct {
	Trades []tradeDTO `json:"fills"`
	Cursor string     `json:"cursor"`
}

type assetPositionDTO struct {
	Token            string `json:"coin"`
	Size             string `json:"szi"`
	EntryPrice       string `json:"entryPx"`
	MarkPrice        string `json:"markPx"`
	Leverage         string `json:"leverage"`
	LeverageType     string `json:"leverageType"`
	LiquidationPrice string `json:"liquidationPx"`
	UnrealizedPnL    string `json:"unrealizedPnl"`
	MarginUsed       string `json:"marginUsed"`
}

type positionsResponseDTO struct {
	AccountValue string             `json:"accountValue"`
	Positions    []assetPositionDTO `json:"assetPositions"`
}

func parseFloat(op, field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, hlerr.Wrap(hlerr.MalformedResponse, op+": field "+field+" = "+s, err)
	}
	return v, nil
}

func (d tradeDTO) toTrade(trader string) (types.Trade, error) {
	size, err := parseFloat("trade", "sz", d.Size)
	if err != nil {
		return types.Trade{}, err
	}
	price, err := parseFloat("trade", "px", d.Price)
	if err != nil {
		return types.Trade{}, err
	}
	closedPnL, err := parseFloat("trade", "closedPnl", d.ClosedPnL)
	if err != nil {
		return types.Trade{}, err
	}
	fee, err := parseFloat("trade", "fee", d.Fee)
	if err != nil {
		return types.Trade{}, err
	}

	side := types.SideFromSize(size)
	if d.Side == "A" {
		side = types.Short
	} else if d.Side == "B" {
		side = types.Long
	}

	return types.Trade{
		Trader:    trader,
		Token:     d.Token,
		Side:      side,
		Action:    actionFromDir(d.Dir),
		Size:      size,
		Price:     price,
		ValueUSD:  absF(size) * price,
		ClosedPnL: closedPnL,
		FeeUSD:    fee,
		Timestamp: time.UnixMilli(d.TimestampMs),
		TxHash:    d.TxHash,
	}, nil
}

func actionFromDir(dir string) types.TradeAction {
	switch {
	case dir == "Open Long" || dir == "Open Short":
		return types.ActionOpen
	case dir == "Close Long" || dir == "Close Short":
		return types.ActionClose
	case dir == "Add Long" || dir == "Add Short" || dir == "Buy" || dir == "Sell":
		return types.ActionAdd
	default:
		return types.ActionReduce
	}
}

func (d assetPositionDTO) toAssetPosition() (types.AssetPosition, error) {
	size, err := parseFloat("position", "szi", d.Size)
	if err != nil {
		return types.AssetPosition{}, err
	}
	entryPrice, err := parseFloat("position", "entryPx", d.EntryPrice)
	if err != nil {
		return types.AssetPosition{}, err
	}
	markPrice, err := parseFloat("position", "markPx", d.MarkPrice)
	if err != nil {
		return types.AssetPosition{}, err
	}
	leverage, err := parseFloat("position", "leverage", d.Leverage)
	if err != nil {
		return types.AssetPosition{}, err
	}
	liqPrice, err := parseFloat("position", "liquidationPx", d.LiquidationPrice)
	if err != nil {
		return types.AssetPosition{}, err
	}
	unrealized, err := parseFloat("position", "unrealizedPnl", d.UnrealizedPnL)
	if err != nil {
		return types.AssetPosition{}, err
	}
	margin, err := parseFloat("position", "marginUsed", d.MarginUsed)
	if err != nil {
		return types.AssetPosition{}, err
	}

	lt := types.LeverageCross
	if d.LeverageType == "isolated" {
		lt = types.LeverageIsolated
	}

	return types.AssetPosition{
		Token:            d.Token,
		Side:             types.SideFromSize(size),
		Size:             size,
		EntryPrice:       entryPrice,
		MarkPrice:        markPrice,
		LeverageValue:    leverage,
		LeverageType:     lt,
		LiquidationPrice: liqPrice,
		UnrealizedPnL:    unrealized,
		MarginUsed:       margin,
	}, nil
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

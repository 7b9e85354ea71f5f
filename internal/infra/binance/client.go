package binance

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"trail_bot/internal/domain"
)

// Client implements domain.Exchange against Binance: spot endpoints for
// public market data, USD-M futures endpoints for account and orders.
type Client struct {
	symbol string
	spot   *binance.Client
	fut    *futures.Client
}

// NewClient creates a client for one symbol. Testnet routing applies to the
// futures side only; spot market-data endpoints are public.
func NewClient(symbol, apiKey, apiSecret string, useTestnet bool) *Client {
	futures.UseTestnet = useTestnet
	return &Client{
		symbol: symbol,
		spot:   binance.NewClient(apiKey, apiSecret),
		fut:    futures.NewClient(apiKey, apiSecret),
	}
}

// Futures exposes the underlying futures client for the user-data stream.
func (c *Client) Futures() *futures.Client {
	return c.fut
}

func (c *Client) FetchDepth(ctx context.Context, limit int) (domain.OrderBook, error) {
	res, err := c.spot.NewDepthService().Symbol(c.symbol).Limit(limit).Do(ctx)
	if err != nil {
		return domain.OrderBook{}, domain.NewNetworkError("fetch depth", err)
	}

	book := domain.NewOrderBook()
	book.LastUpdateID = res.LastUpdateID
	for _, bid := range res.Bids {
		qty, err := decimal.NewFromString(bid.Quantity)
		if err != nil {
			return domain.OrderBook{}, fmt.Errorf("parse bid qty %q: %w", bid.Quantity, err)
		}
		book.Bids[bid.Price] = qty
	}
	for _, ask := range res.Asks {
		qty, err := decimal.NewFromString(ask.Quantity)
		if err != nil {
			return domain.OrderBook{}, fmt.Errorf("parse ask qty %q: %w", ask.Quantity, err)
		}
		book.Asks[ask.Price] = qty
	}
	return book, nil
}

func (c *Client) FetchRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	res, err := c.spot.NewRecentTradesService().Symbol(c.symbol).Limit(limit).Do(ctx)
	if err != nil {
		return nil, domain.NewNetworkError("fetch recent trades", err)
	}

	trades := make([]domain.Trade, 0, len(res))
	for _, t := range res {
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			return nil, fmt.Errorf("parse trade price %q: %w", t.Price, err)
		}
		qty, err := decimal.NewFromString(t.Quantity)
		if err != nil {
			return nil, fmt.Errorf("parse trade qty %q: %w", t.Quantity, err)
		}
		trades = append(trades, domain.Trade{
			Price:        price,
			Qty:          qty,
			Time:         t.Time,
			IsBuyerMaker: t.IsBuyerMaker,
			Side:         domain.TradeSide(t.IsBuyerMaker),
		})
	}
	return trades, nil
}

func (c *Client) FetchTickerChangePct(ctx context.Context) (decimal.Decimal, error) {
	stats, err := c.fut.NewListPriceChangeStatsService().Symbol(c.symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("fetch ticker stats", err)
	}
	if len(stats) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker stats for %s", c.symbol)
	}
	pct, err := decimal.NewFromString(stats[0].PriceChangePercent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse change pct %q: %w", stats[0].PriceChangePercent, err)
	}
	return pct, nil
}

// FetchAvailableBalance returns the available USDT margin balance.
func (c *Client) FetchAvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	balances, err := c.fut.NewGetBalanceService().Do(ctx)
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("fetch balance", err)
	}
	for _, b := range balances {
		if b.Asset != "USDT" {
			continue
		}
		avail, err := decimal.NewFromString(b.AvailableBalance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse balance %q: %w", b.AvailableBalance, err)
		}
		return avail, nil
	}
	return decimal.Zero, fmt.Errorf("no USDT balance entry")
}

func (c *Client) FetchMarkPrice(ctx context.Context) (decimal.Decimal, error) {
	prices, err := c.fut.NewListPricesService().Symbol(c.symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, domain.NewNetworkError("fetch price", err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("no price for %s", c.symbol)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", prices[0].Price, err)
	}
	return price, nil
}

func (c *Client) PlaceMarketOrder(ctx context.Context, side string, qty decimal.Decimal) (domain.OrderResult, error) {
	res, err := c.fut.NewCreateOrderService().
		Symbol(c.symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty.String()).
		Do(ctx)
	if err != nil {
		return domain.FailedOrder(), domain.NewNetworkError("create market order", err)
	}
	return domain.OrderResult{OrderID: res.OrderID, Status: string(res.Status)}, nil
}

// PlaceStopOrder submits a reduce-only stop-market order. The stop price is
// rounded to the exchange's two-decimal price tick.
func (c *Client) PlaceStopOrder(ctx context.Context, side string, qty, stopPrice decimal.Decimal) (domain.OrderResult, error) {
	res, err := c.fut.NewCreateOrderService().
		Symbol(c.symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeStopMarket).
		Quantity(qty.String()).
		StopPrice(stopPrice.Round(2).String()).
		ReduceOnly(true).
		Do(ctx)
	if err != nil {
		return domain.FailedOrder(), domain.NewNetworkError("create stop order", err)
	}
	return domain.OrderResult{OrderID: res.OrderID, Status: string(res.Status)}, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	_, err := c.fut.NewCancelOrderService().Symbol(c.symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return domain.NewNetworkError("cancel order", err)
	}
	return nil
}

func (c *Client) SetMarginType(ctx context.Context, marginType string) error {
	err := c.fut.NewChangeMarginTypeService().
		Symbol(c.symbol).
		MarginType(futures.MarginType(marginType)).
		Do(ctx)
	if err != nil {
		return domain.NewNetworkError("change margin type", err)
	}
	return nil
}

func (c *Client) SetLeverage(ctx context.Context, leverage int) error {
	_, err := c.fut.NewChangeLeverageService().
		Symbol(c.symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return domain.NewNetworkError("change leverage", err)
	}
	return nil
}

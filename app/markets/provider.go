package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lysyi3m/reddit-digest/app/digest"
	"github.com/lysyi3m/reddit-digest/app/sources"
)

const (
	defaultAlphaVantageURL = "https://www.alphavantage.co/query"
	defaultGoldAPIURL      = "https://www.goldapi.io/api"
	defaultWeatherURL      = "https://api.openweathermap.org/data/2.5/weather"
)

// goldSymbols maps configured commodity names to GoldAPI metal codes.
var goldSymbols = map[string]string{
	"Gold":      "XAU",
	"Silver":    "XAG",
	"Platinum":  "XPT",
	"Palladium": "XPD",
}

// Provider fetches the optional reference block (stock quotes, commodity
// prices, FX rates, weather). Every lookup is best effort: a failed quote is
// kept with Valid=false so the rendered block keeps a stable shape.
type Provider struct {
	// Base URLs are overridable for tests.
	AlphaVantageURL string
	GoldAPIURL      string
	WeatherURL      string

	httpClient *http.Client
	config     sources.ReferenceConfig
}

var _ digest.ReferenceProvider = (*Provider)(nil)

func NewProvider(httpClient *http.Client, config sources.ReferenceConfig) *Provider {
	return &Provider{
		AlphaVantageURL: defaultAlphaVantageURL,
		GoldAPIURL:      defaultGoldAPIURL,
		WeatherURL:      defaultWeatherURL,
		httpClient:      httpClient,
		config:          config,
	}
}

// Enabled reports whether any reference section is configured.
func (p *Provider) Enabled() bool {
	return (p.config.Stocks.Enabled && len(p.config.Stocks.Symbols) > 0) ||
		(p.config.Commodities.Enabled && len(p.config.Commodities.Items) > 0) ||
		(p.config.FX.Enabled && len(p.config.FX.Pairs) > 0) ||
		p.config.Weather.Enabled
}

func (p *Provider) Fetch(ctx context.Context) *digest.Reference {
	if !p.Enabled() {
		return nil
	}

	ref := &digest.Reference{}

	if p.config.Stocks.Enabled && p.config.Stocks.APIKey != "" {
		for _, symbol := range p.config.Stocks.Symbols {
			ref.Stocks = append(ref.Stocks, p.fetchStockQuote(ctx, symbol))
		}
	}

	if p.config.Commodities.Enabled && p.config.Commodities.Token != "" {
		for _, item := range p.config.Commodities.Items {
			ref.Commodities = append(ref.Commodities, p.fetchCommodity(ctx, item))
		}
	}

	if p.config.FX.Enabled && p.config.FX.APIKey != "" {
		for _, pair := range p.config.FX.Pairs {
			ref.FX = append(ref.FX, p.fetchFXRate(ctx, pair))
		}
	}

	if p.config.Weather.Enabled && p.config.Weather.APIKey != "" {
		ref.Weather = p.fetchWeather(ctx)
	}

	return ref
}

func (p *Provider) fetchStockQuote(ctx context.Context, symbol string) digest.Quote {
	q := url.Values{}
	q.Set("function", "GLOBAL_QUOTE")
	q.Set("symbol", symbol)
	q.Set("apikey", p.config.Stocks.APIKey)

	var payload struct {
		GlobalQuote struct {
			Price string `json:"05. price"`
		} `json:"Global Quote"`
	}
	if err := p.getJSON(ctx, p.AlphaVantageURL+"?"+q.Encode(), nil, &payload); err != nil {
		slog.Warn("Stock quote lookup failed", "symbol", symbol, "error", err)
		return digest.Quote{Symbol: symbol}
	}

	price, err := strconv.ParseFloat(payload.GlobalQuote.Price, 64)
	if err != nil {
		slog.Warn("Stock quote had no parsable price", "symbol", symbol)
		return digest.Quote{Symbol: symbol}
	}

	return digest.Quote{Symbol: symbol, Price: price, Valid: true}
}

func (p *Provider) fetchCommodity(ctx context.Context, item string) digest.Quote {
	code, ok := goldSymbols[item]
	if !ok {
		slog.Warn("Unknown commodity", "item", item)
		return digest.Quote{Symbol: item}
	}

	headers := map[string]string{"x-access-token": p.config.Commodities.Token}
	var payload struct {
		Price float64 `json:"price"`
	}
	u := fmt.Sprintf("%s/%s/USD", p.GoldAPIURL, code)
	if err := p.getJSON(ctx, u, headers, &payload); err != nil {
		slog.Warn("Commodity price lookup failed", "item", item, "error", err)
		return digest.Quote{Symbol: item}
	}

	return digest.Quote{Symbol: item, Price: payload.Price, Valid: payload.Price > 0}
}

func (p *Provider) fetchFXRate(ctx context.Context, pair string) digest.Quote {
	from, to, ok := strings.Cut(pair, "/")
	if !ok {
		slog.Warn("Invalid FX pair, expected FROM/TO", "pair", pair)
		return digest.Quote{Symbol: pair}
	}

	q := url.Values{}
	q.Set("function", "CURRENCY_EXCHANGE_RATE")
	q.Set("from_currency", from)
	q.Set("to_currency", to)
	q.Set("apikey", p.config.FX.APIKey)

	var payload struct {
		Rate struct {
			ExchangeRate string `json:"5. Exchange Rate"`
		} `json:"Realtime Currency Exchange Rate"`
	}
	if err := p.getJSON(ctx, p.AlphaVantageURL+"?"+q.Encode(), nil, &payload); err != nil {
		slog.Warn("FX rate lookup failed", "pair", pair, "error", err)
		return digest.Quote{Symbol: pair}
	}

	rate, err := strconv.ParseFloat(payload.Rate.ExchangeRate, 64)
	if err != nil {
		slog.Warn("FX rate had no parsable value", "pair", pair)
		return digest.Quote{Symbol: pair}
	}

	return digest.Quote{Symbol: pair, Price: rate, Valid: true}
}

func (p *Provider) fetchWeather(ctx context.Context) *digest.Weather {
	cfg := p.config.Weather

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(cfg.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(cfg.Lon, 'f', -1, 64))
	q.Set("units", cfg.Units)
	q.Set("appid", cfg.APIKey)

	var payload struct {
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := p.getJSON(ctx, p.WeatherURL+"?"+q.Encode(), nil, &payload); err != nil {
		slog.Warn("Weather lookup failed", "error", err)
		return nil
	}

	weather := &digest.Weather{
		Temp:      payload.Main.Temp,
		Humidity:  payload.Main.Humidity,
		WindSpeed: payload.Wind.Speed,
		Units:     cfg.Units,
	}
	if len(payload.Weather) > 0 {
		weather.Summary = titleCase(payload.Weather[0].Description)
	}

	return weather
}

// titleCase uppercases the first letter of every word, e.g. "broken clouds"
// becomes "Broken Clouds".
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func (p *Provider) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

package markets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lysyi3m/reddit-digest/app/sources"
)

func TestProvider_Enabled(t *testing.T) {
	cases := []struct {
		name     string
		config   sources.ReferenceConfig
		expected bool
	}{
		{"empty config", sources.ReferenceConfig{}, false},
		{"stocks without symbols", sources.ReferenceConfig{
			Stocks: sources.StocksConfig{Enabled: true},
		}, false},
		{"stocks with symbols", sources.ReferenceConfig{
			Stocks: sources.StocksConfig{Enabled: true, Symbols: []string{"SPY"}},
		}, true},
		{"weather only", sources.ReferenceConfig{
			Weather: sources.WeatherConfig{Enabled: true},
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProvider(http.DefaultClient, tc.config)
			if p.Enabled() != tc.expected {
				t.Errorf("Expected Enabled() = %v", tc.expected)
			}
		})
	}
}

func TestProvider_Fetch_StockQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("Expected GLOBAL_QUOTE function, got %q", got)
		}
		switch r.URL.Query().Get("symbol") {
		case "SPY":
			fmt.Fprint(w, `{"Global Quote": {"05. price": "512.3400"}}`)
		case "FAIL":
			fmt.Fprint(w, `{"Note": "rate limit reached"}`)
		default:
			t.Errorf("Unexpected symbol %q", r.URL.Query().Get("symbol"))
		}
	}))
	defer server.Close()

	p := NewProvider(server.Client(), sources.ReferenceConfig{
		Stocks: sources.StocksConfig{Enabled: true, Symbols: []string{"SPY", "FAIL"}, APIKey: "key"},
	})
	p.AlphaVantageURL = server.URL

	ref := p.Fetch(context.Background())
	if ref == nil || len(ref.Stocks) != 2 {
		t.Fatalf("Expected 2 stock quotes, got %+v", ref)
	}

	if !ref.Stocks[0].Valid || ref.Stocks[0].Price != 512.34 {
		t.Errorf("Expected valid SPY quote at 512.34, got %+v", ref.Stocks[0])
	}
	if ref.Stocks[1].Valid {
		t.Errorf("Expected failed lookup to yield an invalid quote, got %+v", ref.Stocks[1])
	}
	if ref.Stocks[1].Symbol != "FAIL" {
		t.Errorf("Expected the invalid quote to keep its symbol, got %q", ref.Stocks[1].Symbol)
	}
}

func TestProvider_Fetch_Commodities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-access-token"); got != "gold-token" {
			t.Errorf("Expected access token header, got %q", got)
		}
		if r.URL.Path != "/XAU/USD" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"price": 2350.5}`)
	}))
	defer server.Close()

	p := NewProvider(server.Client(), sources.ReferenceConfig{
		Commodities: sources.CommoditiesConfig{Enabled: true, Items: []string{"Gold"}, Token: "gold-token"},
	})
	p.GoldAPIURL = server.URL

	ref := p.Fetch(context.Background())
	if len(ref.Commodities) != 1 {
		t.Fatalf("Expected 1 commodity quote, got %d", len(ref.Commodities))
	}
	quote := ref.Commodities[0]
	if !quote.Valid || quote.Price != 2350.5 || quote.Symbol != "Gold" {
		t.Errorf("Unexpected quote %+v", quote)
	}
}

func TestProvider_Fetch_UnknownCommodity(t *testing.T) {
	p := NewProvider(http.DefaultClient, sources.ReferenceConfig{
		Commodities: sources.CommoditiesConfig{Enabled: true, Items: []string{"Copper"}, Token: "gold-token"},
	})

	ref := p.Fetch(context.Background())
	if len(ref.Commodities) != 1 || ref.Commodities[0].Valid {
		t.Errorf("Expected unmapped commodity to yield an invalid quote, got %+v", ref.Commodities)
	}
}

func TestProvider_Fetch_FXRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("from_currency"); got != "EUR" {
			t.Errorf("Expected from_currency EUR, got %q", got)
		}
		if got := r.URL.Query().Get("to_currency"); got != "USD" {
			t.Errorf("Expected to_currency USD, got %q", got)
		}
		fmt.Fprint(w, `{"Realtime Currency Exchange Rate": {"5. Exchange Rate": "1.0845"}}`)
	}))
	defer server.Close()

	p := NewProvider(server.Client(), sources.ReferenceConfig{
		FX: sources.FXConfig{Enabled: true, Pairs: []string{"EUR/USD"}, APIKey: "key"},
	})
	p.AlphaVantageURL = server.URL

	ref := p.Fetch(context.Background())
	if len(ref.FX) != 1 {
		t.Fatalf("Expected 1 FX quote, got %d", len(ref.FX))
	}
	if !ref.FX[0].Valid || ref.FX[0].Price != 1.0845 {
		t.Errorf("Unexpected FX quote %+v", ref.FX[0])
	}
}

func TestProvider_Fetch_Weather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("appid"); got != "owm-key" {
			t.Errorf("Expected api key in query, got %q", got)
		}
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("Expected metric units, got %q", got)
		}
		fmt.Fprint(w, `{
			"weather": [{"description": "broken clouds"}],
			"main": {"temp": 18.4, "humidity": 62},
			"wind": {"speed": 4.1}
		}`)
	}))
	defer server.Close()

	p := NewProvider(server.Client(), sources.ReferenceConfig{
		Weather: sources.WeatherConfig{Enabled: true, APIKey: "owm-key", Lat: 52.52, Lon: 13.4, Units: "metric"},
	})
	p.WeatherURL = server.URL

	ref := p.Fetch(context.Background())
	if ref.Weather == nil {
		t.Fatalf("Expected weather data")
	}
	if ref.Weather.Summary != "Broken Clouds" {
		t.Errorf("Expected title-cased summary, got %q", ref.Weather.Summary)
	}
	if ref.Weather.Temp != 18.4 || ref.Weather.Humidity != 62 || ref.Weather.WindSpeed != 4.1 {
		t.Errorf("Unexpected weather %+v", ref.Weather)
	}
}

func TestProvider_Fetch_WeatherFailureOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewProvider(server.Client(), sources.ReferenceConfig{
		Weather: sources.WeatherConfig{Enabled: true, APIKey: "bad-key"},
	})
	p.WeatherURL = server.URL

	ref := p.Fetch(context.Background())
	if ref.Weather != nil {
		t.Errorf("Expected weather omitted on lookup failure, got %+v", ref.Weather)
	}
}

func TestProvider_Fetch_DisabledReturnsNil(t *testing.T) {
	p := NewProvider(http.DefaultClient, sources.ReferenceConfig{})

	if ref := p.Fetch(context.Background()); ref != nil {
		t.Errorf("Expected nil reference when nothing is configured, got %+v", ref)
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"broken clouds": "Broken Clouds",
		"clear sky":     "Clear Sky",
		"rain":          "Rain",
		"":              "",
	}
	for input, expected := range cases {
		if got := titleCase(input); got != expected {
			t.Errorf("Expected titleCase(%q) = %q, got %q", input, expected, got)
		}
	}
}

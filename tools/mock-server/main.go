// Package main implements a mock quote service for local development. It
// answers GET /v1/quotes from a JSON fixture so the tracker can run without
// a real provider.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type fixtureQuote struct {
	Hotel    string          `json:"hotel"`
	Location string          `json:"location"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type fixture struct {
	Provider string         `json:"provider"`
	Quotes   []fixtureQuote `json:"quotes"`
}

type quoteResponse struct {
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Provider   string          `json:"provider"`
	ObservedAt time.Time       `json:"observed_at"`
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/quotes.json", "path to quotes fixture")
	apiKey := flag.String("api-key", "", "require this X-API-Key when set")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fx, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "quotes", len(fx.Quotes))

	book := newQuoteBook(fx)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/quotes", quoteHandler(logger, book, *apiKey, time.Now))
	mux.HandleFunc("PUT /v1/quotes", overrideHandler(logger, book))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock quote server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	if fx.Provider == "" {
		fx.Provider = "MockHub"
	}
	return &fx, nil
}

// quoteBook holds the current price per hotel. Prices can be replaced at
// runtime to simulate drops.
type quoteBook struct {
	mu       sync.RWMutex
	provider string
	quotes   map[string]fixtureQuote
}

func newQuoteBook(fx *fixture) *quoteBook {
	b := &quoteBook{provider: fx.Provider, quotes: make(map[string]fixtureQuote, len(fx.Quotes))}
	for _, q := range fx.Quotes {
		b.quotes[bookKey(q.Hotel, q.Location)] = q
	}
	return b
}

func bookKey(hotel, location string) string {
	return strings.ToLower(strings.TrimSpace(hotel)) + "|" + strings.ToLower(strings.TrimSpace(location))
}

func (b *quoteBook) get(hotel, location string) (fixtureQuote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[bookKey(hotel, location)]
	return q, ok
}

func (b *quoteBook) set(q fixtureQuote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[bookKey(q.Hotel, q.Location)] = q
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func quoteHandler(logger *slog.Logger, book *quoteBook, apiKey string, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if apiKey != "" && r.Header.Get("X-API-Key") != apiKey {
			logger.Warn("quote request with bad API key")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}

		params := r.URL.Query()
		hotel := params.Get("hotel")
		if hotel == "" || params.Get("check_in") == "" || params.Get("check_out") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hotel, check_in and check_out are required"})
			return
		}

		q, ok := book.get(hotel, params.Get("location"))
		if !ok {
			logger.Info("no quote", "hotel", hotel)
			w.WriteHeader(http.StatusNotFound)
			return
		}

		currency := q.Currency
		if c := params.Get("currency"); c != "" && !strings.EqualFold(c, currency) {
			// Converting is out of scope for the mock; report the mismatch.
			logger.Info("currency mismatch", "hotel", hotel, "want", c, "have", currency)
		}

		writeJSON(w, http.StatusOK, quoteResponse{
			Price:      q.Price,
			Currency:   currency,
			Provider:   book.provider,
			ObservedAt: now().UTC(),
		})
		logger.Info("quote", "hotel", hotel, "price", q.Price.String(), "currency", currency)
	}
}

// overrideHandler replaces the price for one hotel.
func overrideHandler(logger *slog.Logger, book *quoteBook) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q fixtureQuote
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.Hotel == "" || q.Currency == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hotel, price and currency are required"})
			return
		}
		book.set(q)
		logger.Info("price updated", "hotel", q.Hotel, "price", q.Price.String())
		writeJSON(w, http.StatusOK, q)
	}
}

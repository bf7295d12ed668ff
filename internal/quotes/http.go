package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

const (
	quotesPath       = "/v1/quotes"
	apiKeyHeader     = "X-API-Key"
	dateLayout       = "2006-01-02"
	instrumentation  = "github.com/donaldgifford/hotel-price-tracker/internal/quotes"
	maxErrorBodySize = 4096
)

// HTTPSource implements Source against a JSON quote service.
type HTTPSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
	tracer  trace.Tracer
	latency metric.Float64Histogram
	nowFunc func() time.Time
}

// HTTPOption configures the HTTPSource.
type HTTPOption func(*HTTPSource)

// WithAPIKey sets the key sent in the X-API-Key header.
func WithAPIKey(key string) HTTPOption {
	return func(s *HTTPSource) {
		s.apiKey = key
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = hc
	}
}

// NewHTTPSource creates a quote client for the service at baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		tracer:  otel.Tracer(instrumentation),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// A failed instrument falls back to the no-op histogram returned alongside it.
	s.latency, _ = otel.Meter(instrumentation).Float64Histogram(
		"hpt.quote.latency",
		metric.WithUnit("s"),
		metric.WithDescription("Latency of quote service calls."),
	)
	return s
}

type quoteResponse struct {
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Provider   string          `json:"provider"`
	ObservedAt *time.Time      `json:"observed_at,omitempty"`
}

// GetQuote implements Source. 404 and 204 responses mean no quote exists.
func (s *HTTPSource) GetQuote(ctx context.Context, req QuoteRequest) (*domain.Quote, error) {
	ctx, span := s.tracer.Start(ctx, "quotes.GetQuote", trace.WithAttributes(
		attribute.String("hotel.name", req.HotelName),
		attribute.String("hotel.location", req.Location),
	))
	defer span.End()

	start := time.Now()
	q, status, err := s.fetch(ctx, req)
	s.latency.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.Int("http.status_code", status)))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("quote.price", q.Price.String()))
	return q, nil
}

func (s *HTTPSource) fetch(ctx context.Context, req QuoteRequest) (*domain.Quote, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.buildURL(req), http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set(apiKeyHeader, s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("executing quote request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, resp.StatusCode, ErrUnavailable
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, resp.StatusCode, fmt.Errorf(
			"%w: quote API error (status %d): %s", ErrUnavailable, resp.StatusCode, string(body),
		)
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding quote response: %w", err)
	}

	observed := s.nowFunc()
	if qr.ObservedAt != nil {
		observed = *qr.ObservedAt
	}

	return &domain.Quote{
		Price:      qr.Price,
		Currency:   qr.Currency,
		Provider:   qr.Provider,
		ObservedAt: observed,
	}, resp.StatusCode, nil
}

func (s *HTTPSource) buildURL(req QuoteRequest) string {
	params := url.Values{}
	params.Set("hotel", req.HotelName)
	params.Set("location", req.Location)
	params.Set("check_in", req.CheckIn.Format(dateLayout))
	params.Set("check_out", req.CheckOut.Format(dateLayout))
	if req.Currency != "" {
		params.Set("currency", req.Currency)
	}
	if req.Guests > 0 {
		params.Set("guests", strconv.Itoa(req.Guests))
	}
	return s.baseURL + quotesPath + "?" + params.Encode()
}

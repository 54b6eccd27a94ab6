//nolint:whitespace //can't make both the linter and editor happy :(
package standings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/model"
)

const (
	DefaultBaseURL      = "https://v1.formula-1.api-sports.io"
	DefaultAPIKeyHeader = "x-apisports-key"
)

var (
	ErrProviderStatus   = errors.New("unexpected status from standings provider")
	ErrProviderResponse = errors.New("invalid response from standings provider")
)

var meter = otel.Meter("standings")

// Fetcher retrieves the current championship standings for a season.
type Fetcher interface {
	DriverStandings(ctx context.Context, season int) ([]model.DriverStanding, error)
	ConstructorStandings(ctx context.Context, season int) (
		[]model.ConstructorStanding, error)
}

// Paths describes where the standings are located in a provider response.
// List is evaluated against the whole document, Key and Points against
// each element selected by List.
type Paths struct {
	Endpoint string
	List     string
	Key      string
	Points   string
}

var (
	DefaultDriverPaths = Paths{
		Endpoint: "/rankings/drivers",
		List:     "$.response[*]",
		Key:      "$.driver.abbr",
		Points:   "$.points",
	}
	DefaultConstructorPaths = Paths{
		Endpoint: "/rankings/teams",
		List:     "$.response[*]",
		Key:      "$.team.name",
		Points:   "$.points",
	}
	defaultErrorsPath = "$.errors"
)

type compiledPaths struct {
	endpoint string
	list     jp.Expr
	key      jp.Expr
	points   jp.Expr
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithAPIKeyHeader(header string) Option {
	return func(c *Client) {
		c.apiKeyHeader = header
	}
}

// WithHTTPClient replaces the default client. The transport of the given
// client is used as is, no instrumentation is added.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout limits a single request. A zero value means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithDriverPaths(p Paths) Option {
	return func(c *Client) {
		c.driverPaths = p
	}
}

func WithConstructorPaths(p Paths) Option {
	return func(c *Client) {
		c.constructorPaths = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

type Client struct {
	baseURL          string
	apiKey           string
	apiKeyHeader     string
	httpClient       *http.Client
	timeout          time.Duration
	driverPaths      Paths
	constructorPaths Paths
	log              *log.Logger

	drivers      compiledPaths
	constructors compiledPaths
	errorsExpr   jp.Expr
	fetchCounter metric.Int64Counter
	fetchLatency metric.Float64Histogram
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a standings client. Invalid JSON paths are reported here
// instead of on first use.
func NewClient(opts ...Option) (*Client, error) {
	ret := &Client{
		baseURL:          DefaultBaseURL,
		apiKeyHeader:     DefaultAPIKeyHeader,
		driverPaths:      DefaultDriverPaths,
		constructorPaths: DefaultConstructorPaths,
		log:              log.Default().Named("standings"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.httpClient == nil {
		ret.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	var err error
	if ret.drivers, err = compile(ret.driverPaths); err != nil {
		return nil, fmt.Errorf("driver paths: %w", err)
	}
	if ret.constructors, err = compile(ret.constructorPaths); err != nil {
		return nil, fmt.Errorf("constructor paths: %w", err)
	}
	if ret.errorsExpr, err = jp.ParseString(defaultErrorsPath); err != nil {
		return nil, err
	}
	ret.fetchCounter, _ = meter.Int64Counter("standings_fetch",
		metric.WithDescription("number of standings requests by kind and outcome"))
	ret.fetchLatency, _ = meter.Float64Histogram("standings_fetch_duration",
		metric.WithDescription("duration of standings requests"),
		metric.WithUnit("s"))
	return ret, nil
}

func compile(p Paths) (compiledPaths, error) {
	ret := compiledPaths{endpoint: p.Endpoint}
	var err error
	if ret.list, err = jp.ParseString(p.List); err != nil {
		return ret, fmt.Errorf("list %q: %w", p.List, err)
	}
	if ret.key, err = jp.ParseString(p.Key); err != nil {
		return ret, fmt.Errorf("key %q: %w", p.Key, err)
	}
	if ret.points, err = jp.ParseString(p.Points); err != nil {
		return ret, fmt.Errorf("points %q: %w", p.Points, err)
	}
	return ret, nil
}

func (c *Client) DriverStandings(ctx context.Context, season int) (
	[]model.DriverStanding, error,
) {
	entries, err := c.fetch(ctx, "drivers", &c.drivers, season)
	if err != nil {
		return nil, err
	}
	ret := make([]model.DriverStanding, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, model.DriverStanding{Abbr: e.key, Points: e.points})
	}
	return ret, nil
}

func (c *Client) ConstructorStandings(ctx context.Context, season int) (
	[]model.ConstructorStanding, error,
) {
	entries, err := c.fetch(ctx, "constructors", &c.constructors, season)
	if err != nil {
		return nil, err
	}
	ret := make([]model.ConstructorStanding, 0, len(entries))
	for _, e := range entries {
		ret = append(ret, model.ConstructorStanding{Name: e.key, Points: e.points})
	}
	return ret, nil
}

type entry struct {
	key    string
	points float64
}

func (c *Client) fetch(
	ctx context.Context,
	kind string,
	paths *compiledPaths,
	season int,
) (ret []entry, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome))
		c.fetchCounter.Add(ctx, 1, attrs)
		c.fetchLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, err := c.get(ctx, paths.endpoint, season)
	if err != nil {
		return nil, err
	}
	ret, err = c.extract(body, paths)
	if err != nil {
		return nil, err
	}
	c.log.Debug("fetched standings",
		log.String("kind", kind),
		log.Int("season", season),
		log.Int("entries", len(ret)))
	return ret, nil
}

func (c *Client) get(ctx context.Context, endpoint string, season int) ([]byte, error) {
	u := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint,
		url.Values{"season": []string{strconv.Itoa(season)}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("standings provider returned an error",
			log.String("endpoint", endpoint),
			log.Int("status", resp.StatusCode),
			log.ByteString("body", truncate(body, 512)))
		return nil, fmt.Errorf("%w: %s returned %d",
			ErrProviderStatus, endpoint, resp.StatusCode)
	}
	return body, nil
}

func (c *Client) extract(body []byte, paths *compiledPaths) ([]entry, error) {
	doc, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderResponse, err)
	}
	if errs := c.errorsExpr.Get(doc); len(errs) > 0 && !isEmpty(errs[0]) {
		return nil, fmt.Errorf("%w: %s", ErrProviderResponse, oj.JSON(errs[0]))
	}
	items := paths.list.Get(doc)
	ret := make([]entry, 0, len(items))
	for _, item := range items {
		key, ok := firstString(paths.key.Get(item))
		if !ok {
			continue
		}
		points, err := firstNumber(paths.points.Get(item))
		if err != nil {
			return nil, fmt.Errorf("%w: points of %q: %w", ErrProviderResponse, key, err)
		}
		ret = append(ret, entry{key: key, points: points})
	}
	return ret, nil
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case string:
		return x == ""
	default:
		return false
	}
}

func firstString(values []any) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	s, ok := values[0].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// missing and null points count as zero
func firstNumber(values []any) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	switch x := values[0].(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", x)
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

package nav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"navexport/internal/models"
)

const (
	queryInvoiceDigestPath = "/queryInvoiceDigest"
	defaultTimeout         = 30 * time.Second
)

// ErrIncompletePagination is returned in strict mode when a response omits a page counter.
var ErrIncompletePagination = errors.New("response is missing currentPage or availablePage")

// FetchError is a failed page request. Request and Response hold the exact
// bytes sent and received, untruncated.
type FetchError struct {
	Message    string
	Page       int
	StatusCode int
	Request    []byte
	Response   []byte
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("page %d: %s", e.Page, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PageObserver is told the outcome ("success" or "failed") of every page request.
type PageObserver interface {
	PageRequested(status string)
}

type Client struct {
	client       *http.Client
	observer     PageObserver
	timeout      time.Duration
	direction    Direction
	software     Software
	limiter      *rate.Limiter
	strict       bool
	now          func() time.Time
	newRequestID func() string
	logger       *zap.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithDirection(d Direction) Option {
	return func(c *Client) {
		c.direction = d
	}
}

func WithSoftware(s Software) Option {
	return func(c *Client) {
		c.software = s
	}
}

// WithRateLimit spaces page requests; rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithStrictPagination turns a missing page counter into a fetch error
// instead of treating the response as a single page.
func WithStrictPagination(strict bool) Option {
	return func(c *Client) {
		c.strict = strict
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.newRequestID = gen
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithPageObserver(o PageObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		timeout:      defaultTimeout,
		direction:    DirectionOutbound,
		software:     DefaultSoftware(),
		now:          time.Now,
		newRequestID: NewRequestID,
		logger:       zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{Timeout: c.timeout}
	return c
}

// UseDefaultClient routes requests through http.DefaultClient. The per-call
// timeout still applies through the request context.
func (c *Client) UseDefaultClient() {
	c.client = http.DefaultClient
}

// FetchAll requests pages 1..n for the company until the response reports the
// last page. Any failing page discards everything fetched so far.
func (c *Client) FetchAll(ctx context.Context, company models.Company, window models.QueryWindow) ([]Record, error) {
	var rows []Record
	page := 1

	for {
		res, err := c.QueryInvoiceDigest(ctx, company, page, window)
		if err != nil {
			return nil, err
		}

		rows = append(rows, res.Records...)

		c.logger.Debug("fetched digest page",
			zap.String("company_code", company.CompanyCode),
			zap.Int("page", page),
			zap.Int("current_page", res.CurrentPage),
			zap.Int("available_page", res.AvailablePage),
			zap.Int("records", len(res.Records)),
		)

		// the requested page also bounds the loop so a server stuck on
		// currentPage=1 cannot keep us here forever
		if res.CurrentPage >= res.AvailablePage || page >= res.AvailablePage {
			break
		}
		page++
	}

	return rows, nil
}

// QueryInvoiceDigest issues one signed page request.
func (c *Client) QueryInvoiceDigest(ctx context.Context, company models.Company, page int, window models.QueryWindow) (*DigestPage, error) {
	res, err := c.queryPage(ctx, company, page, window)
	if c.observer != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		c.observer.PageRequested(status)
	}
	return res, err
}

func (c *Client) queryPage(ctx context.Context, company models.Company, page int, window models.QueryWindow) (*DigestPage, error) {
	body, err := BuildQueryInvoiceDigest(QueryParams{
		RequestID: c.newRequestID(),
		Timestamp: FormatTimestamp(c.now()),
		Company:   company,
		Page:      page,
		Window:    window,
		Direction: c.direction,
		Software:  c.software,
	})
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("build request: %v", err), Page: page, Err: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Message: fmt.Sprintf("rate limiter: %v", err), Page: page, Request: body, Err: err}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := strings.TrimRight(company.BaseURL, "/") + queryInvoiceDigestPath
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("build http request: %v", err), Page: page, Request: body, Err: err}
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Message: fmt.Sprintf("request failed: %v", err), Page: page, Request: body, Err: err}
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{
			Message:    fmt.Sprintf("read response: %v", err),
			Page:       page,
			StatusCode: resp.StatusCode,
			Request:    body,
			Err:        err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), u)
		if detail := summarizeErrorBody(buf); detail != "" {
			msg += " (" + detail + ")"
		}
		return nil, &FetchError{
			Message:    msg,
			Page:       page,
			StatusCode: resp.StatusCode,
			Request:    body,
			Response:   buf,
		}
	}

	res, err := ParseDigestResponse(buf)
	if err != nil {
		return nil, &FetchError{
			Message:    err.Error(),
			Page:       page,
			StatusCode: resp.StatusCode,
			Request:    body,
			Response:   buf,
			Err:        err,
		}
	}

	if res.CountersMissing {
		if c.strict {
			return nil, &FetchError{
				Message:    ErrIncompletePagination.Error(),
				Page:       page,
				StatusCode: resp.StatusCode,
				Request:    body,
				Response:   buf,
				Err:        ErrIncompletePagination,
			}
		}
		c.logger.Warn("digest response without page counters, treating as last page",
			zap.String("company_code", company.CompanyCode),
			zap.Int("page", page),
		)
	}

	return res, nil
}

// summarizeErrorBody pulls funcCode/errorCode/message out of a NAV error
// document, or the title of an HTML error page from a gateway. The body is
// parsed leniently since it is often not well-formed XML.
func summarizeErrorBody(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	found := map[string]string{}
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if idx := strings.LastIndex(name, ":"); idx >= 0 {
			name = name[idx+1:]
		}
		switch name {
		case "funccode", "errorcode", "message", "title":
			if _, ok := found[name]; !ok {
				if text := strings.TrimSpace(s.Text()); text != "" {
					found[name] = text
				}
			}
		}
	})

	var parts []string
	for _, key := range []string{"funccode", "errorcode", "message"} {
		if v, ok := found[key]; ok {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return found["title"]
	}
	return strings.Join(parts, ": ")
}

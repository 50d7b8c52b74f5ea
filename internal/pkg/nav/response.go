package nav

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	tagInvoiceDigest = "invoiceDigest"
	tagCurrentPage   = "currentPage"
	tagAvailablePage = "availablePage"
)

// ParseError reports a response body that is not a usable digest document.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse digest response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse digest response: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DigestPage is one decoded page of a queryInvoiceDigest response.
type DigestPage struct {
	Records       []Record
	CurrentPage   int
	AvailablePage int

	// CountersMissing is set when either page counter was absent and defaulted to 1.
	CountersMissing bool
}

// ParseDigestResponse walks the response and collects every invoiceDigest
// element. Page counters default to 1 when absent.
func ParseDigestResponse(body []byte) (*DigestPage, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel

	page := &DigestPage{}
	var (
		depth       int
		roots       int
		digest      *Record
		digestDepth int
		field       string
		fieldText   strings.Builder
		counter     string
		counterText strings.Builder
		current     *int
		available   *int
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Reason: "malformed document", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return nil, &ParseError{Reason: "more than one root element"}
				}
			}
			depth++
			name := t.Name.Local

			switch {
			case digest == nil && name == tagInvoiceDigest:
				digest = &Record{}
				digestDepth = depth
			case digest != nil && depth == digestDepth+1:
				field = name
				fieldText.Reset()
			case digest == nil && (name == tagCurrentPage || name == tagAvailablePage):
				counter = name
				counterText.Reset()
			}

		case xml.CharData:
			if field != "" {
				fieldText.Write(t)
			}
			if counter != "" {
				counterText.Write(t)
			}

		case xml.EndElement:
			name := t.Name.Local

			switch {
			case digest != nil && depth == digestDepth:
				page.Records = append(page.Records, *digest)
				digest = nil
			case digest != nil && field != "" && depth == digestDepth+1:
				digest.Set(field, strings.TrimSpace(fieldText.String()))
				field = ""
			case counter != "" && name == counter:
				n, err := strconv.Atoi(strings.TrimSpace(counterText.String()))
				if err != nil {
					return nil, &ParseError{Reason: fmt.Sprintf("invalid %s", counter), Err: err}
				}
				if counter == tagCurrentPage {
					current = &n
				} else {
					available = &n
				}
				counter = ""
			}
			depth--
		}
	}

	if roots == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}
	if depth != 0 {
		return nil, &ParseError{Reason: "unexpected end of document"}
	}

	page.CurrentPage, page.AvailablePage = 1, 1
	if current != nil {
		page.CurrentPage = *current
	}
	if available != nil {
		page.AvailablePage = *available
	}
	page.CountersMissing = current == nil || available == nil

	return page, nil
}

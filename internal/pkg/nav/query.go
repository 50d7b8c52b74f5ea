package nav

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"navexport/internal/models"
)

const (
	requestVersion = "3.0"
	headerVersion  = "1.0"

	requestIDLength = 30
)

type Direction string

const (
	DirectionOutbound = Direction("OUTBOUND")
	DirectionInbound  = Direction("INBOUND")
)

// ParseDirection accepts INBOUND or OUTBOUND in any case.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case DirectionOutbound, DirectionInbound:
		return d, nil
	}
	return "", fmt.Errorf("invalid invoice direction %q", s)
}

// Software identifies the calling system to NAV.
type Software struct {
	ID          string `xml:"softwareId"`
	Name        string `xml:"softwareName"`
	Operation   string `xml:"softwareOperation"`
	MainVersion string `xml:"softwareMainVersion"`
	DevName     string `xml:"softwareDevName"`
	DevContact  string `xml:"softwareDevContact"`
}

func DefaultSoftware() Software {
	return Software{
		ID:          "MULTI_COMPANY_EXPORT",
		Name:        "WeeklyInvoiceExport",
		Operation:   "ONLINE_SERVICE",
		MainVersion: "1.0",
		DevName:     "Internal",
		DevContact:  "noreply@example.com",
	}
}

// QueryParams are the inputs of one page request. RequestID and Timestamp
// must be fresh for every page.
type QueryParams struct {
	RequestID string
	Timestamp string
	Company   models.Company
	Page      int
	Window    models.QueryWindow
	Direction Direction
	Software  Software
}

type queryInvoiceDigestRequest struct {
	XMLName            xml.Name           `xml:"QueryInvoiceDigestRequest"`
	Header             requestHeader      `xml:"header"`
	User               userHeader         `xml:"user"`
	Software           Software           `xml:"software"`
	Page               int                `xml:"page"`
	InvoiceDirection   Direction          `xml:"invoiceDirection"`
	InvoiceQueryParams invoiceQueryParams `xml:"invoiceQueryParams"`
}

type requestHeader struct {
	RequestID      string `xml:"requestId"`
	Timestamp      string `xml:"timestamp"`
	RequestVersion string `xml:"requestVersion"`
	HeaderVersion  string `xml:"headerVersion"`
}

type cryptoValue struct {
	CryptoType string `xml:"cryptoType,attr"`
	Value      string `xml:",chardata"`
}

type userHeader struct {
	Login            string      `xml:"login"`
	PasswordHash     cryptoValue `xml:"passwordHash"`
	TaxNumber        string      `xml:"taxNumber"`
	RequestSignature cryptoValue `xml:"requestSignature"`
}

type invoiceQueryParams struct {
	MandatoryQueryParams mandatoryQueryParams `xml:"mandatoryQueryParams"`
}

type mandatoryQueryParams struct {
	InvoiceIssueDate dateInterval `xml:"invoiceIssueDate"`
}

type dateInterval struct {
	DateFrom string `xml:"dateFrom"`
	DateTo   string `xml:"dateTo"`
}

// NewRequestID returns a random 30 character lowercase hex token.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:requestIDLength]
}

// BuildQueryInvoiceDigest renders the signed queryInvoiceDigest document for one page.
func BuildQueryInvoiceDigest(p QueryParams) ([]byte, error) {
	if p.Page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", p.Page)
	}

	signature, err := RequestSignature(p.RequestID, p.Timestamp, p.Company.SignatureKey)
	if err != nil {
		return nil, err
	}

	direction := p.Direction
	if direction == "" {
		direction = DirectionOutbound
	}

	doc := queryInvoiceDigestRequest{
		Header: requestHeader{
			RequestID:      p.RequestID,
			Timestamp:      p.Timestamp,
			RequestVersion: requestVersion,
			HeaderVersion:  headerVersion,
		},
		User: userHeader{
			Login:            p.Company.Login,
			PasswordHash:     cryptoValue{CryptoType: "SHA-512", Value: PasswordHash(p.Company.Password)},
			TaxNumber:        p.Company.TaxNumber,
			RequestSignature: cryptoValue{CryptoType: "SHA3-512", Value: signature},
		},
		Software:         p.Software,
		Page:             p.Page,
		InvoiceDirection: direction,
		InvoiceQueryParams: invoiceQueryParams{
			MandatoryQueryParams: mandatoryQueryParams{
				InvoiceIssueDate: dateInterval{
					DateFrom: p.Window.FromString(),
					DateTo:   p.Window.ToString(),
				},
			},
		},
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}

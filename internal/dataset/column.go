package dataset

// Kind selects how a column's raw value is coerced.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindNumber:
		return "number"
	default:
		return "text"
	}
}

type Column struct {
	Name string
	Kind Kind
}

func Text(name string) Column   { return Column{Name: name, Kind: KindText} }
func Date(name string) Column   { return Column{Name: name, Kind: KindDate} }
func Number(name string) Column { return Column{Name: name, Kind: KindNumber} }

const (
	ColumnPeriodFrom = "period_from"
	ColumnPeriodTo   = "period_to"
)

// InvoiceColumns is the canonical layout of a company dataset. Digest fields
// outside this list are dropped on write.
var InvoiceColumns = []Column{
	Text("invoiceNumber"),
	Text("invoiceOperation"),
	Text("invoiceCategory"),
	Date("invoiceIssueDate"),
	Text("supplierTaxNumber"),
	Text("supplierGroupMemberTaxNumber"),
	Text("supplierName"),
	Text("customerTaxNumber"),
	Text("customerName"),
	Text("paymentMethod"),
	Date("paymentDate"),
	Text("invoiceAppearance"),
	Text("source"),
	Date("invoiceDeliveryDate"),
	Text("currency"),
	Number("invoiceNetAmount"),
	Number("invoiceNetAmountHUF"),
	Number("invoiceVatAmount"),
	Number("invoiceVatAmountHUF"),
	Text("transactionId"),
	Number("index"),
	Text("originalInvoiceNumber"),
	Number("modificationIndex"),
	Text("insDate"),
	Text("completenessIndicator"),
	Date(ColumnPeriodFrom),
	Date(ColumnPeriodTo),
}

// ColumnNames returns the names in order.
func ColumnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

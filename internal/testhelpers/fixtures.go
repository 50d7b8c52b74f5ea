package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/xuri/excelize/v2"
)

func LoadFixture(name string) ([]byte, error) {
	_, filename, _, _ := runtime.Caller(0)
	return os.ReadFile(filepath.Join(filepath.Dir(filename), "fixtures", name))
}

// DigestPageXML renders a queryInvoiceDigest response with one invoiceDigest
// per invoice number.
func DigestPageXML(current, available int, invoiceNumbers ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<QueryInvoiceDigestResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api" xmlns:common="http://schemas.nav.gov.hu/NTCA/1.0/common">`)
	b.WriteString(`<common:header><common:requestId>x</common:requestId></common:header>`)
	b.WriteString(`<common:result><common:funcCode>OK</common:funcCode></common:result>`)
	b.WriteString(`<invoiceDigestResult>`)
	fmt.Fprintf(&b, `<currentPage>%d</currentPage><availablePage>%d</availablePage>`, current, available)
	for _, number := range invoiceNumbers {
		fmt.Fprintf(&b, `<invoiceDigest><invoiceNumber>%s</invoiceNumber><invoiceOperation>CREATE</invoiceOperation>`+
			`<supplierTaxNumber>12345678</supplierTaxNumber><invoiceIssueDate>2024-01-09</invoiceIssueDate>`+
			`<invoiceNetAmount>1000.50</invoiceNetAmount><currency>HUF</currency></invoiceDigest>`, number)
	}
	b.WriteString(`</invoiceDigestResult></QueryInvoiceDigestResponse>`)
	return b.String()
}

// CompanyWorkbook builds an xlsx file with a single sheet of string cells.
func CompanyWorkbook(sheet string, header []string, rows ...[]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	all := append([][]string{header}, rows...)
	for i, row := range all {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var CompanyHeader = []string{
	"company_code", "nav_login", "nav_password", "nav_tax_number",
	"nav_signature_key", "nav_base_url", "target_folder_id", "active",
}

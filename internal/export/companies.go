package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"navexport/internal/dataset"
	"navexport/internal/models"
	"navexport/internal/storage"
)

// CompanySheet is the worksheet of the configuration workbook that lists companies.
const CompanySheet = "companies"

const (
	colCompanyCode  = "company_code"
	colLogin        = "nav_login"
	colPassword     = "nav_password"
	colTaxNumber    = "nav_tax_number"
	colSignatureKey = "nav_signature_key"
	colBaseURL      = "nav_base_url"
	colTargetFolder = "target_folder_id"
	colActive       = "active"
)

var requiredCompanyColumns = []string{
	colCompanyCode, colLogin, colPassword, colTaxNumber,
	colSignatureKey, colBaseURL, colTargetFolder, colActive,
}

// SchemaError is a configuration workbook that cannot be used at all.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "company config: " + e.Reason
}

// LoadCompanies downloads the configuration workbook and parses it.
func LoadCompanies(ctx context.Context, store storage.DocumentStore, fileID string) ([]models.Company, error) {
	data, err := store.Download(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("download company config %s: %w", fileID, err)
	}
	return ParseCompanies(data)
}

// ParseCompanies reads every row of the companies sheet, active or not.
// Structural problems are reported as *SchemaError; field values are not
// validated here.
func ParseCompanies(data []byte) ([]models.Company, error) {
	rows, err := dataset.ReadSheet(data, CompanySheet)
	if err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Reason: "sheet has no header row"}
	}

	index := map[string]int{}
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredCompanyColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaError{Reason: "missing columns: " + strings.Join(missing, ", ")}
	}

	var companies []models.Company
	seen := map[string]int{}

	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		line := i + 2
		cell := func(col string) string {
			j := index[col]
			if j >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[j])
		}

		code := cell(colCompanyCode)
		if code == "" {
			return nil, &SchemaError{Reason: fmt.Sprintf("row %d: company_code is empty", line)}
		}
		if prev, dup := seen[code]; dup {
			return nil, &SchemaError{Reason: fmt.Sprintf("company_code must be unique: %q on rows %d and %d", code, prev, line)}
		}
		seen[code] = line

		active, err := parseActive(cell(colActive))
		if err != nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("row %d: %v", line, err)}
		}

		companies = append(companies, models.Company{
			CompanyCode:  code,
			Login:        cell(colLogin),
			Password:     cell(colPassword),
			TaxNumber:    cell(colTaxNumber),
			SignatureKey: cell(colSignatureKey),
			BaseURL:      cell(colBaseURL),
			TargetFolder: cell(colTargetFolder),
			Active:       active,
		})
	}

	if len(companies) == 0 {
		return nil, &SchemaError{Reason: "contains no rows"}
	}
	return companies, nil
}

var errActiveNotBoolean = errors.New("active column must contain TRUE/FALSE only")

func parseActive(s string) (bool, error) {
	switch strings.ToUpper(s) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	}
	return false, fmt.Errorf("%w, got %q", errActiveNotBoolean, s)
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

package models

// Company is one row of the company configuration workbook. TaxNumber is
// sent to NAV as written.
type Company struct {
	CompanyCode  string `validate:"required"`
	Login        string `validate:"required"`
	Password     string `validate:"required"`
	TaxNumber    string `validate:"required"`
	SignatureKey string `validate:"required"`
	BaseURL      string `validate:"required,url"`
	TargetFolder string `validate:"required"`
	Active       bool
}

// ActiveCompanies returns the companies flagged active, keeping their configuration order.
func ActiveCompanies(companies []Company) []Company {
	active := make([]Company, 0, len(companies))
	for _, c := range companies {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}

package export

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"navexport/internal/dataset"
	"navexport/internal/storage"
)

// DatasetFilename is the name of a company's dataset inside its target folder.
func DatasetFilename(companyCode string) string {
	return companyCode + "_invoices.xlsx"
}

// MergeResult describes one completed append.
type MergeResult struct {
	Document *storage.Document
	Created  bool
	Existing int
	Appended int
}

func (r *MergeResult) Total() int {
	return r.Existing + r.Appended
}

// Merger appends rows to spreadsheet documents in a store. Existing rows are
// kept as stored and new rows follow in the given order; nothing is removed
// or deduplicated.
type Merger struct {
	store  storage.DocumentStore
	logger *zap.Logger
}

func NewMerger(store storage.DocumentStore, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{store: store, logger: logger}
}

// Upsert appends a company's newly fetched rows to its dataset, creating the
// dataset on first use.
func (m *Merger) Upsert(ctx context.Context, companyCode, folder string, rows *dataset.Table) (*MergeResult, error) {
	return m.Append(ctx, folder, DatasetFilename(companyCode), dataset.InvoiceColumns, rows)
}

// Append loads folder/name if present, concatenates rows after its rows,
// projects the result onto columns and writes it back, even when rows is
// empty. Updates are conditional on the version that was read.
func (m *Merger) Append(ctx context.Context, folder, name string, columns []dataset.Column, rows *dataset.Table) (*MergeResult, error) {
	incoming := dataset.Project(rows, columns)

	doc, err := m.store.Find(ctx, folder, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return m.create(ctx, folder, name, incoming)
	case err != nil:
		return nil, fmt.Errorf("find %s: %w", name, err)
	}

	data, err := m.store.Download(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}

	stored, err := dataset.ReadXLSX(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	final := dataset.Project(stored, columns)
	existing := final.Len()
	final.Append(incoming)

	out, err := dataset.WriteXLSX(final, "")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	updated, err := m.store.Update(ctx, doc.ID, out, doc.Version)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", name, err)
	}

	m.logger.Info("appended to document",
		zap.String("document", updated.ID),
		zap.Int("existing_rows", existing),
		zap.Int("appended_rows", incoming.Len()),
	)

	return &MergeResult{Document: updated, Existing: existing, Appended: incoming.Len()}, nil
}

func (m *Merger) create(ctx context.Context, folder, name string, rows *dataset.Table) (*MergeResult, error) {
	out, err := dataset.WriteXLSX(rows, "")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	doc, err := m.store.Create(ctx, folder, name, out)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	m.logger.Info("created document",
		zap.String("document", doc.ID),
		zap.Int("appended_rows", rows.Len()),
	)

	return &MergeResult{Document: doc, Created: true, Appended: rows.Len()}, nil
}

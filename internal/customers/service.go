package customers

import (
	"context"
	"io"
	"time"

	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

// Backend is the persistence the service and handler need.
type Backend interface {
	Upsert(ctx context.Context, c *Customer) error
	UpsertMany(ctx context.Context, storeID string, list []Customer) (int, error)
	Get(ctx context.Context, storeID, id string) (*Customer, error)
	List(ctx context.Context, storeID, search string, limit int) ([]Customer, error)
	Delete(ctx context.Context, storeID, id string) error
}

// Importer loads CRM CSV exports into a store's customer list.
type Importer struct {
	repo   Backend
	loc    *time.Location
	logger *logging.Logger
}

func NewImporter(repo Backend, loc *time.Location, logger *logging.Logger) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Importer{repo: repo, loc: loc, logger: logger}
}

// Import parses the CSV and upserts every valid row in one transaction.
func (i *Importer) Import(ctx context.Context, storeID string, r io.Reader) (*ImportResult, error) {
	list, rowErrs, err := ParseCSV(r, i.loc)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{Skipped: len(rowErrs), Errors: rowErrs}
	if result.Errors == nil {
		result.Errors = []RowError{}
	}
	if len(list) > 0 {
		n, err := i.repo.UpsertMany(ctx, storeID, list)
		if err != nil {
			return nil, err
		}
		result.Imported = n
	}
	i.logger.Info("customers: csv imported", "store_id", storeID, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

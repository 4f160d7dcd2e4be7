package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/logging"
)

const listSeparator = ";"

var requiredColumns = []string{"name", "description", "price", "category", "stock"}

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV exports and inserts or updates products.
// Header: id,name,description,price,originalPrice,category,brand,stock,featured,tags,images
// with tags and images separated by semicolons. Rows with an id overwrite that
// product; rows without one are inserted.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      *zap.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logging.OrNop(logger).Named("importer"),
	}
}

// Run upserts every data row and returns how many were written. It stops at the
// first invalid row.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q: %w", col, domain.ErrValidation)
		}
	}

	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)
		if blank(record) {
			continue
		}

		p, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		saved, err := i.productRepo.Upsert(ctx, p)
		if err != nil {
			return imported, fmt.Errorf("line %d: upsert product %q: %w", line, p.Name, err)
		}
		i.logger.Debug("imported", zap.Int("line", line), zap.String("productID", saved.ID))
		imported++
	}

	i.logger.Info("import finished", zap.Int("products", imported))
	return imported, nil
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	p := domain.Product{
		ID:          pick(record, index, "id"),
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Category:    domain.Category(strings.ToLower(pick(record, index, "category"))),
		Brand:       pick(record, index, "brand"),
		Tags:        splitList(strings.ToLower(pick(record, index, "tags"))),
		IsActive:    true,
	}
	if p.ID != "" && !domain.ValidID(p.ID) {
		return p, fmt.Errorf("invalid id %q: %w", p.ID, domain.ErrValidation)
	}

	var err error
	if p.Price, err = parseDecimal(pick(record, index, "price"), "price"); err != nil {
		return p, err
	}
	if p.OriginalPrice, err = parseDecimal(pick(record, index, "originalPrice"), "originalPrice"); err != nil {
		return p, err
	}
	if p.Stock, err = strconv.Atoi(pick(record, index, "stock")); err != nil {
		return p, fmt.Errorf("stock must be an integer: %w", domain.ErrValidation)
	}
	if raw := pick(record, index, "featured"); raw != "" {
		if p.IsFeatured, err = strconv.ParseBool(raw); err != nil {
			return p, fmt.Errorf("featured must be true or false: %w", domain.ErrValidation)
		}
	}
	for _, url := range splitList(pick(record, index, "images")) {
		p.Images = append(p.Images, domain.ProductImage{URL: url})
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a number: %w", field, domain.ErrValidation)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

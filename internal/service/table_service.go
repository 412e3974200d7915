package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/datavines/warn-console/internal/config"
	"github.com/datavines/warn-console/internal/logging"
	"github.com/datavines/warn-console/internal/model"
	"github.com/datavines/warn-console/internal/storage"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ItemRequest is the body accepted when creating or renaming a row.
type ItemRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// TableService serves the warning, warning metric and notice tables.
type TableService struct {
	store           storage.Store
	validate        *validator.Validate
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
}

// NewTableService constructs TableService.
func NewTableService(store storage.Store, cfg *config.Config, logger *zap.Logger) *TableService {
	defaultSize, maxSize := cfg.Table.DefaultPageSize, cfg.Table.MaxPageSize
	if defaultSize <= 0 {
		defaultSize = 10
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	return &TableService{
		store:           store,
		validate:        validator.New(),
		logger:          logging.OrNop(logger),
		defaultPageSize: defaultSize,
		maxPageSize:     maxSize,
	}
}

// Query returns one page of rows, newest first, filtered by a
// case-insensitive name substring. Total counts every matching row.
func (s *TableService) Query(ctx context.Context, kind model.TableKind, q model.TableQuery) (model.TableData[model.TableItem], error) {
	records, err := s.store.ListItems(ctx, kind)
	if err != nil {
		return model.TableData[model.TableItem]{}, fmt.Errorf("list %s: %w", kind, err)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Name))
	matches := make([]*model.TableRecord, 0, len(records))
	for _, rec := range records {
		if needle != "" && !strings.Contains(strings.ToLower(rec.Name), needle) {
			continue
		}
		matches = append(matches, rec)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID > matches[j].ID
	})

	total := len(matches)
	if q.PageSize <= 0 {
		q.PageSize = s.defaultPageSize
	}
	if q.PageSize > s.maxPageSize {
		q.PageSize = s.maxPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	// Compare in page units so a huge page number cannot overflow start.
	start := total
	if q.Page-1 <= total/q.PageSize {
		start = min((q.Page-1)*q.PageSize, total)
	}
	end := total
	if total-start > q.PageSize {
		end = start + q.PageSize
	}

	items := make([]model.TableItem, 0, end-start)
	for _, rec := range matches[start:end] {
		items = append(items, rec.Item())
	}
	return model.NewTableData(items, total), nil
}

// Warnings returns a page of the warning table.
func (s *TableService) Warnings(ctx context.Context, q model.TableQuery) (model.WarnTableData, error) {
	page, err := s.Query(ctx, model.KindWarning, q)
	if err != nil {
		return model.WarnTableData{}, err
	}
	return model.WarnTableData(model.ConvertTable(page, func(i model.TableItem) model.WarnTableItem {
		return model.WarnTableItem(i)
	})), nil
}

// WarnMetrics returns a page of the warning metric table.
func (s *TableService) WarnMetrics(ctx context.Context, q model.TableQuery) (model.WarnMetricTableData, error) {
	page, err := s.Query(ctx, model.KindWarnMetric, q)
	if err != nil {
		return model.WarnMetricTableData{}, err
	}
	return model.WarnMetricTableData(model.ConvertTable(page, func(i model.TableItem) model.WarnMetricTableItem {
		return model.WarnMetricTableItem(i)
	})), nil
}

// Notices returns a page of the notice table.
func (s *TableService) Notices(ctx context.Context, q model.TableQuery) (model.NoticeTableData, error) {
	page, err := s.Query(ctx, model.KindNotice, q)
	if err != nil {
		return model.NoticeTableData{}, err
	}
	return model.NoticeTableData(model.ConvertTable(page, func(i model.TableItem) model.NoticeTableItem {
		return model.NoticeTableItem(i)
	})), nil
}

// Create adds a row to the table.
func (s *TableService) Create(ctx context.Context, kind model.TableKind, req ItemRequest) (model.TableItem, error) {
	name, err := s.cleanName(req)
	if err != nil {
		return model.TableItem{}, err
	}
	rec, err := s.store.CreateItem(ctx, kind, name)
	if err != nil {
		return model.TableItem{}, fmt.Errorf("create %s: %w", kind, err)
	}
	s.logger.Info("table item created",
		zap.String("kind", string(kind)),
		zap.Uint64("id", rec.ID),
		zap.String("name", rec.Name),
	)
	return rec.Item(), nil
}

// Get returns a single row.
func (s *TableService) Get(ctx context.Context, kind model.TableKind, id model.ItemID) (model.TableItem, error) {
	key, err := storageKey(id)
	if err != nil {
		return model.TableItem{}, err
	}
	rec, err := s.store.GetItem(ctx, kind, key)
	if err != nil {
		return model.TableItem{}, fmt.Errorf("get %s %d: %w", kind, key, err)
	}
	return rec.Item(), nil
}

// Rename changes the name of an existing row.
func (s *TableService) Rename(ctx context.Context, kind model.TableKind, id model.ItemID, req ItemRequest) (model.TableItem, error) {
	key, err := storageKey(id)
	if err != nil {
		return model.TableItem{}, err
	}
	name, err := s.cleanName(req)
	if err != nil {
		return model.TableItem{}, err
	}
	rec, err := s.store.UpdateItem(ctx, kind, key, name)
	if err != nil {
		return model.TableItem{}, fmt.Errorf("rename %s %d: %w", kind, key, err)
	}
	s.logger.Info("table item renamed",
		zap.String("kind", string(kind)),
		zap.Uint64("id", rec.ID),
		zap.String("name", rec.Name),
	)
	return rec.Item(), nil
}

// Delete removes a row.
func (s *TableService) Delete(ctx context.Context, kind model.TableKind, id model.ItemID) error {
	key, err := storageKey(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, kind, key); err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, key, err)
	}
	s.logger.Info("table item deleted", zap.String("kind", string(kind)), zap.Uint64("id", key))
	return nil
}

func (s *TableService) cleanName(req ItemRequest) (string, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return "", err
	}
	return req.Name, nil
}

func storageKey(id model.ItemID) (uint64, error) {
	n, ok := id.Int()
	if !ok || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id.String())
	}
	return uint64(n), nil
}

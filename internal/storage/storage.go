package storage

import (
	"context"

	"github.com/datavines/warn-console/internal/model"
)

// Store abstracts table persistence. Every table kind has its own
// id sequence.
type Store interface {
	CreateItem(ctx context.Context, kind model.TableKind, name string) (*model.TableRecord, error)
	GetItem(ctx context.Context, kind model.TableKind, id uint64) (*model.TableRecord, error)
	UpdateItem(ctx context.Context, kind model.TableKind, id uint64, name string) (*model.TableRecord, error)
	DeleteItem(ctx context.Context, kind model.TableKind, id uint64) error
	ListItems(ctx context.Context, kind model.TableKind) ([]*model.TableRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

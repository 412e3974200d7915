package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ItemID identifies a table row. Clients send either a JSON number or a
// JSON string; the variant is kept so it round-trips unchanged.
type ItemID struct {
	num   int64
	str   string
	isStr bool
}

// IntID builds a numeric identifier.
func IntID(v int64) ItemID {
	return ItemID{num: v}
}

// StringID builds a textual identifier.
func StringID(v string) ItemID {
	return ItemID{str: v, isStr: true}
}

// IsString reports whether the identifier was given as text.
func (id ItemID) IsString() bool {
	return id.isStr
}

// Int returns the numeric value. String identifiers holding a base-10
// integer are converted as well.
func (id ItemID) Int() (int64, bool) {
	if !id.isStr {
		return id.num, true
	}
	v, err := strconv.ParseInt(id.str, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (id ItemID) String() string {
	if id.isStr {
		return id.str
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON writes the identifier in the form it was created with.
func (id ItemID) MarshalJSON() ([]byte, error) {
	if id.isStr {
		return json.Marshal(id.str)
	}
	return []byte(strconv.FormatInt(id.num, 10)), nil
}

// UnmarshalJSON accepts a JSON string or a JSON integer.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("id must be a string or integer, got %s", data)
	}
	*id = IntID(v)
	return nil
}

// TableItem is a single row of any console table.
type TableItem struct {
	ID   ItemID `json:"id"`
	Name string `json:"name"`
}

// TableData is one page of rows plus the number of rows available
// server-side, which can exceed len(List).
type TableData[T any] struct {
	List  []T `json:"list"`
	Total int `json:"total"`
}

// NewTableData never yields a nil List so empty pages encode as [].
func NewTableData[T any](list []T, total int) TableData[T] {
	if list == nil {
		list = []T{}
	}
	return TableData[T]{List: list, Total: total}
}

// ConvertTable maps a generic page onto a domain item type.
func ConvertTable[T any](data TableData[TableItem], conv func(TableItem) T) TableData[T] {
	list := make([]T, 0, len(data.List))
	for _, item := range data.List {
		list = append(list, conv(item))
	}
	return NewTableData(list, data.Total)
}

// Warning tables.
type (
	WarnTableItem TableItem
	WarnTableData TableData[WarnTableItem]
)

// Warning metric tables.
type (
	WarnMetricTableItem TableItem
	WarnMetricTableData TableData[WarnMetricTableItem]
)

// Notice tables.
type (
	NoticeTableItem TableItem
	NoticeTableData TableData[NoticeTableItem]
)

// TableKind names the table a record belongs to.
type TableKind string

const (
	KindWarning    TableKind = "warning"
	KindWarnMetric TableKind = "warn_metric"
	KindNotice     TableKind = "notice"
)

// Kinds lists every known table kind.
var Kinds = []TableKind{KindWarning, KindWarnMetric, KindNotice}

// Valid reports whether k is a known table kind.
func (k TableKind) Valid() bool {
	switch k {
	case KindWarning, KindWarnMetric, KindNotice:
		return true
	}
	return false
}

// TableRecord is the persisted form of a table row.
type TableRecord struct {
	ID        uint64    `json:"id"`
	Kind      TableKind `json:"kind"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item projects the record onto the table row shape.
func (r *TableRecord) Item() TableItem {
	return TableItem{ID: IntID(int64(r.ID)), Name: r.Name}
}

// TableQuery describes list parameters.
type TableQuery struct {
	Name     string
	Page     int
	PageSize int
}

package wallet

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxAddressLen bounds the stored address column.
	MaxAddressLen = 100
	// MaxPageSize is the largest page a listing may request.
	MaxPageSize = 50
	// DefaultPageSize is used when the caller does not ask for a size.
	DefaultPageSize = 10
)

var (
	// ErrStore marks any failure of the record store.
	ErrStore = errors.New("record store failure")

	// ErrAddressRequired is returned for an empty lookup address.
	ErrAddressRequired = errors.New("address is required")

	// ErrInvalidPage is returned for page < 1 or a size outside [1, MaxPageSize].
	ErrInvalidPage = errors.New("invalid page")
)

// AccountInfo holds the resource metrics of one address at lookup time.
type AccountInfo struct {
	Energy    int64
	Bandwidth int64
	Balance   decimal.Decimal
}

// RecordInput is a lookup ready to be persisted.
type RecordInput struct {
	Address string
	AccountInfo
}

// Record is a persisted lookup. ID and CreatedAt are assigned by the store.
type Record struct {
	ID      int64
	Address string
	AccountInfo
	CreatedAt time.Time
}

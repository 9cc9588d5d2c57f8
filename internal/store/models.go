package store

import (
	"context"
	"fmt"
)

// AccessRecord maps an access code to the company/position it unlocks.
// Question and Doc are set only when a question was provisioned for the pair.
type AccessRecord struct {
	AccessCode string `json:"access_code"`
	Company    string `json:"company"`
	Position   string `json:"position"`
	Question   string `json:"question,omitempty"`
	Doc        string `json:"doc,omitempty"`
}

// AccessStore is the persisted access-code table. GetAccessRecord returns
// (nil, nil) when the code is unknown.
type AccessStore interface {
	GetAccessRecord(ctx context.Context, accessCode string) (*AccessRecord, error)
	UpsertAccessRecords(ctx context.Context, records []AccessRecord) (int, error)
	Close() error
}

// Open returns the store implementation selected by driver.
func Open(driver, dataSourceName string) (AccessStore, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteStore(dataSourceName)
	case "bolt":
		return NewBoltStore(dataSourceName)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

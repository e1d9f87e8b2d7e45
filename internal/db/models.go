// internal/db/models.go
package db

import "time"

// product_links – produkty sklepu po SKU (cache Woo + stan synchronizacji)
type ProductLink struct {
	WooID        uint   `gorm:"primaryKey;autoIncrement:false"`
	SKU          string `gorm:"index;size:191"`
	SupplierID   string `gorm:"index;size:191"` // _silverbene_product_id
	Name         string
	Type         string // simple / variable
	Status       string // publish/draft/trash
	PayloadHash  string `gorm:"size:64"`
	SyncStatus   string `gorm:"index;size:32"` // created/updated/unchanged/primed
	SyncedAt     *time.Time
	DateModified string
}

// media_assets – URL obrazka dostawcy -> attachment w WordPressie
type MediaAsset struct {
	URLHash    string `gorm:"primaryKey;size:64"`
	URL        string `gorm:"type:text"`
	WooMediaID int64  `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// order_forwards – zamówienia Woo przekazane do dostawcy
type OrderForward struct {
	WooOrderID      uint   `gorm:"primaryKey;autoIncrement:false"`
	OrderNumber     string `gorm:"size:64"`
	SupplierOrderID string `gorm:"size:191"`
	Status          string `gorm:"index;size:16"` // sent / failed
	Attempts        int
	LastError       string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const (
	ForwardSent   = "sent"
	ForwardFailed = "failed"
)

// sync_runs – historia przebiegów synchronizacji
type SyncRun struct {
	RunID      string `gorm:"primaryKey;size:36"`
	Kind       string `gorm:"index;size:32"` // products / orders
	Forced     bool
	StartedAt  time.Time `gorm:"index"`
	FinishedAt *time.Time
	Pages      int
	Fetched    int
	Groups     int
	Created    int
	Updated    int
	Unchanged  int
	Deleted    int
	Failed     int
	Status     string `gorm:"index;size:16"` // running/done/error
	LastError  string `gorm:"type:text"`
}

const (
	RunRunning = "running"
	RunDone    = "done"
	RunError   = "error"
)

// link_issues – diagnostyka powiązań dostawca <-> sklep
type LinkIssue struct {
	ID        uint   `gorm:"primaryKey"`
	SKU       string `gorm:"size:191;uniqueIndex:uniq_issue_key"`
	Reason    string `gorm:"size:64;uniqueIndex:uniq_issue_key"`
	WooIDs    string `gorm:"size:191;uniqueIndex:uniq_issue_key"` // JSON: [123,456]
	Details   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type KV struct {
	K string `gorm:"primaryKey;size:191"`
	V string `gorm:"type:text"`
}

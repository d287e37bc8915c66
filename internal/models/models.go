package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RootNamespace is the prefix every realtime store path lives under.
const RootNamespace = "alltech"

// Kind identifies one inventory collection together with its mirrored
// search index and the order ledgers that sales of that kind write to.
type Kind struct {
	Name         string // "screen" or "accessory"
	StorePath    string // collection under the root namespace
	IndexUID     string // search index collection
	CompletePath string // finalized sales ledger
	ReceiptPath  string // append-only receipt history
}

var (
	Screens = Kind{
		Name:         "screen",
		StorePath:    "LCD",
		IndexUID:     "LCD",
		CompletePath: "Complete",
		ReceiptPath:  "Receipt",
	}
	Accessories = Kind{
		Name:         "accessory",
		StorePath:    "Accessory",
		IndexUID:     "Shop1Accessory",
		CompletePath: "CompleteAccessory",
		ReceiptPath:  "ReceiptAccessory",
	}
)

// PathSaved holds in-progress screen sales. Accessory sales complete
// immediately and never pass through it.
const PathSaved = "Saved"

// KindFromParam resolves the URL form of a kind ("lcd", "accessories").
func KindFromParam(p string) (Kind, bool) {
	switch strings.ToLower(p) {
	case "lcd", "screens":
		return Screens, true
	case "accessories", "accessory":
		return Accessories, true
	}
	return Kind{}, false
}

// Path joins path segments under the root namespace.
func Path(parts ...string) string {
	return RootNamespace + "/" + strings.Join(parts, "/")
}

// InventoryItem is a stock record. Timestamp is server-assigned in epoch
// milliseconds; a zero value on write requests a fresh server timestamp.
type InventoryItem struct {
	ID          string          `json:"id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Timestamp   int64           `json:"timestamp"`
}

// IndexDocument is the search index mirror of an InventoryItem. The
// timestamp is deliberately excluded from the index.
type IndexDocument struct {
	ID          string          `json:"id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// IndexDocument builds the mirror document for the item under the given key.
func (i InventoryItem) IndexDocument(id string) IndexDocument {
	return IndexDocument{
		ID:          id,
		ProductName: i.ProductName,
		Quantity:    i.Quantity,
		Price:       i.Price,
	}
}

// Order is a sale record. The same shape backs Saved, Complete* and
// Receipt* entries; ProductID points back at the source InventoryItem.
type Order struct {
	ID           string          `json:"id,omitempty"`
	ProductName  string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	CustomerName string          `json:"customer_name"`
	Timestamp    int64           `json:"timestamp"`
	ProductID    string          `json:"product_id"`
}

// UserProfile lives in the Firestore users/{uid} collection. Existence of
// the document is the access gate; Role additionally gates the reports.
type UserProfile struct {
	Email               string        `firestore:"email" json:"email"`
	DisplayName         string        `firestore:"displayName" json:"displayName"`
	PhotoURL            string        `firestore:"photoURL" json:"photoURL"`
	Role                string        `firestore:"role" json:"role,omitempty"`
	WebAuthnCredentials []interface{} `firestore:"webAuthnCredentials" json:"webAuthnCredentials,omitempty"`
	CreatedAt           time.Time     `firestore:"createdAt" json:"createdAt"`
	LastLogin           time.Time     `firestore:"lastLogin" json:"lastLogin"`
}

const RoleAdmin = "admin"

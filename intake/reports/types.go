package reports

import (
	"whistlevault/whistlevault"
)

// User is keyed by wallet address in the user store. Addresses are
// case-sensitive as supplied, never rewritten.
type User struct {
	ReportedIssues []string `json:"reported_issues"`
}

type Report struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Organization  string    `json:"organization,omitempty"`
	Description   string    `json:"description,omitempty"`
	Title         string    `json:"title,omitempty"`
	Category      string    `json:"category,omitempty"`
	DocumentURL   string    `json:"document_url,omitempty"`
	Status        string    `json:"status"`
	Date          string    `json:"date"`
	Comments      []Comment `json:"comments"`
}

// Comment is immutable once minted and never deleted.
type Comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
}

// Pinner is the content-addressed storage gateway. A non-success response is a
// hard failure, there is no retry or chunking.
type Pinner interface {
	PinJSON(payload interface{}) (string, error)
	PinFile(data []byte, filename string) (string, error)
	RetrievalURL(contentID string) string
}

// Ledger builds unsigned submitReport transactions and reads reports back from
// the contract.
type Ledger interface {
	BuildSubmitTransaction(contentID, sender string) (whistlevault.UnsignedTx, error)
	Report(id int64) (whistlevault.LedgerReport, error)
}

type RegisterOutcome struct {
	Registered bool
	Message    string
}

type CreateRequest struct {
	WalletAddress string
	Organization  string
	Description   string
	Document      []byte
	Filename      string
}

type CreateResult struct {
	Report      Report
	UnsignedTx  whistlevault.UnsignedTx
	ContentID   string
	DocumentURL string
}

// ConcernRequest is the fixed schema accepted by the JSON concern route.
// Anything else in the body is dropped.
type ConcernRequest struct {
	WalletAddress string `json:"wallet_address"`
	Organization  string `json:"organization"`
	Description   string `json:"description"`
	Title         string `json:"title"`
	Category      string `json:"category"`
}

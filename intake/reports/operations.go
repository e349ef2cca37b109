package reports

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"whistlevault/whistlevault"
)

var pinner Pinner
var ledger Ledger

// SetGateways wires the external collaborators. Must be called before any
// operation that uploads or touches the chain.
func SetGateways(p Pinner, l Ledger) {
	pinner = p
	ledger = l
}

// RegisterUser creates a user record for the wallet address. Registering the
// same address twice is a no-op reported as "already registered".
func RegisterUser(walletAddress string) (RegisterOutcome, error) {
	if walletAddress == "" {
		return RegisterOutcome{}, whistlevault.ValidationError{Field: "walletAddress"}
	}
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	if _, exists := currentState.users[walletAddress]; exists {
		return RegisterOutcome{Registered: false, Message: "User already registered"}, nil
	}
	currentState.users[walletAddress] = User{ReportedIssues: []string{}}
	currentState.persistUsers()
	return RegisterOutcome{Registered: true, Message: "User registered successfully"}, nil
}

// CreateReport runs the full intake path: validate, pin the optional document,
// pin the serialized record, commit it locally, then build the unsigned
// submission transaction for the caller to sign.
//
// The record is pinned before it is persisted locally, so a gateway failure
// leaves no half-committed report. The sequence number reserved for a failed
// attempt is burned; ids stay unique and strictly increasing, with gaps.
func CreateReport(req CreateRequest) (CreateResult, error) {
	if req.WalletAddress == "" {
		return CreateResult{}, whistlevault.ValidationError{Field: "walletAddress"}
	}
	if req.Organization == "" {
		return CreateResult{}, whistlevault.ValidationError{Field: "organization"}
	}
	if req.Description == "" {
		return CreateResult{}, whistlevault.ValidationError{Field: "description"}
	}

	var documentURL string
	if len(req.Document) > 0 {
		cid, err := pinner.PinFile(req.Document, req.Filename)
		if err != nil {
			return CreateResult{}, err
		}
		documentURL = pinner.RetrievalURL(cid)
	}

	record := Report{
		ID:            reserveID(),
		WalletAddress: req.WalletAddress,
		Organization:  req.Organization,
		Description:   req.Description,
		DocumentURL:   documentURL,
		Status:        "Pending",
		Date:          time.Now().Format("2006-01-02"),
		Comments:      []Comment{},
	}

	contentID, err := pinner.PinJSON(record)
	if err != nil {
		return CreateResult{}, err
	}

	currentState.mutex.Lock()
	currentState.reports = append(currentState.reports, record)
	if user, registered := currentState.users[record.WalletAddress]; registered {
		user.ReportedIssues = append(user.ReportedIssues, record.ID)
		currentState.users[record.WalletAddress] = user
		currentState.persistUsers()
	}
	currentState.persistReports()
	currentState.mutex.Unlock()

	tx, err := ledger.BuildSubmitTransaction(contentID, record.WalletAddress)
	if err != nil {
		return CreateResult{}, err
	}

	return CreateResult{
		Report:      record,
		UnsignedTx:  tx,
		ContentID:   contentID,
		DocumentURL: documentURL,
	}, nil
}

// CreateConcern is the lightweight JSON-route creation: a fixed schema, no
// gateway calls, the record goes straight into the store.
func CreateConcern(req ConcernRequest) Report {
	category := req.Category
	if category == "" {
		category = req.Title
	}
	if category == "" {
		category = "Uncategorized"
	}
	record := Report{
		ID:            reserveID(),
		WalletAddress: req.WalletAddress,
		Organization:  req.Organization,
		Description:   req.Description,
		Title:         req.Title,
		Category:      category,
		Status:        "Pending",
		Date:          time.Now().Format("2006-01-02"),
		Comments:      []Comment{},
	}
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.reports = append(currentState.reports, record)
	currentState.persistReports()
	return record
}

// reserveID hands out the next report id and persists the counter immediately,
// so a crash or a failed upload can never cause the same id to be minted twice.
func reserveID() string {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	id := fmt.Sprintf("#WB%d", 1000+currentState.sequence)
	currentState.sequence++
	currentState.persistReports()
	return id
}

// ListReports returns every report, or only those whose wallet address matches
// exactly when one is given. Creation order is preserved.
func ListReports(walletAddress string) []Report {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	list := make([]Report, 0, len(currentState.reports))
	for _, r := range currentState.reports {
		if walletAddress == "" || r.WalletAddress == walletAddress {
			list = append(list, r)
		}
	}
	return list
}

// UpdateStatus mutates a report's status in place and persists the store.
func UpdateStatus(reportID, newStatus string) (Report, error) {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	for i := range currentState.reports {
		if currentState.reports[i].ID == reportID {
			if newStatus == "" {
				return Report{}, whistlevault.ValidationError{Field: "status"}
			}
			currentState.reports[i].Status = newStatus
			currentState.persistReports()
			return currentState.reports[i], nil
		}
	}
	return Report{}, whistlevault.NotFoundError{ID: reportID}
}

// LedgerReport reads a report back from the contract. Gateway failures come
// back as a LookupError carrying the underlying message, never retried.
func LedgerReport(numericID int64) (whistlevault.LedgerReport, error) {
	return ledger.Report(numericID)
}

// AppendComment mints a comment and appends it to the target report. The
// second return is false if the report does not exist.
func AppendComment(reportID, text, author string) (Comment, bool) {
	comment := Comment{
		ID:        uuid.New().String(),
		Text:      text,
		Author:    author,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	for i := range currentState.reports {
		if currentState.reports[i].ID == reportID {
			currentState.reports[i].Comments = append(currentState.reports[i].Comments, comment)
			currentState.persistReports()
			return comment, true
		}
	}
	return Comment{}, false
}

// RegisteredWallets lists every registered wallet address and how many issues
// each has reported.
func RegisteredWallets() []string {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	wallets := make([]string, 0, len(currentState.users))
	for wallet, user := range currentState.users {
		wallets = append(wallets, fmt.Sprintf("%s (%d reported issues)", wallet, len(user.ReportedIssues)))
	}
	return wallets
}

// Comments returns a snapshot of a report's comment thread for history replay.
func Comments(reportID string) ([]Comment, bool) {
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	for _, r := range currentState.reports {
		if r.ID == reportID {
			snapshot := make([]Comment, len(r.Comments))
			copy(snapshot, r.Comments)
			return snapshot, true
		}
	}
	return nil, false
}

package reports

import (
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sasha-s/go-deadlock"

	"whistlevault/database"
	"whistlevault/whistlevault"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// db is the single source of truth for reports and users, shared by the HTTP
// handlers and the comment relay. All read-modify-persist sequences go through
// the one mutex; the mutex is never held across a network call.
type db struct {
	reports  []Report
	users    map[string]User
	sequence int64
	mutex    *deadlock.Mutex
}

var currentState = db{
	users: make(map[string]User),
	mutex: &deadlock.Mutex{},
}

// reportsFile is the on-disk shape of the report list. The sequence counter is
// persisted alongside the list so that ids stay unique across restarts even
// when a reserved id was burned by a failed upload.
type reportsFile struct {
	Sequence int64    `json:"sequence"`
	Reports  []Report `json:"reports"`
}

// StartDb starts the report store. It blocks until the store is ready to use.
func StartDb(terminate chan struct{}, wg *sync.WaitGroup) {
	// we need a channel to listen for a successful database start
	ready := make(chan struct{})
	// now we can start the database in a new goroutine
	go start(terminate, wg, ready)
	// when the database has started, the goroutine will close the `ready` channel.
	<-ready
	whistlevault.LogCLI("Report store has started", 4)
}

// start opens the flat files from disk (or treats them as empty state). It
// closes the `ready` channel once the store can handle queries, and shuts down
// safely when the terminate channel is closed. Upstream waits on the provided
// waitgroup to know the store has been flushed.
func start(terminate chan struct{}, wg *sync.WaitGroup, ready chan struct{}) {
	wg.Add(1)
	currentState.load()
	close(ready)
	<-terminate
	currentState.mutex.Lock()
	defer currentState.mutex.Unlock()
	currentState.persistReports()
	currentState.persistUsers()
	wg.Done()
	whistlevault.LogCLI("Report store has shut down", 4)
}

func (s *db) load() {
	if f, ok := database.Open("reports", "reports"); ok {
		s.restoreReports(f)
	}
	if f, ok := database.Open("reports", "users"); ok {
		s.restoreUsers(f)
	}
}

func (s *db) restoreReports(f *os.File) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var stored reportsFile
	err := json.NewDecoder(f).Decode(&stored)
	if err != nil {
		if err.Error() != "EOF" {
			whistlevault.LogCLI(err.Error(), 0)
		}
	}
	s.reports = stored.Reports
	s.sequence = stored.Sequence
	err = f.Close()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
}

func (s *db) restoreUsers(f *os.File) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	err := json.NewDecoder(f).Decode(&s.users)
	if err != nil {
		if err.Error() != "EOF" {
			whistlevault.LogCLI(err.Error(), 0)
		}
	}
	err = f.Close()
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
}

// persistReports rewrites the reports flat file. Callers hold the mutex.
func (s *db) persistReports() {
	b, err := json.MarshalIndent(reportsFile{Sequence: s.sequence, Reports: s.reports}, "", " ")
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
	database.Write("reports", "reports", b)
}

// persistUsers rewrites the users flat file. Callers hold the mutex.
func (s *db) persistUsers() {
	b, err := json.MarshalIndent(s.users, "", " ")
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
	database.Write("reports", "users", b)
}

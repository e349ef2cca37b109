package database

import (
	"os"
	"time"

	dircopy "github.com/otiai10/copy"
	"whistlevault/whistlevault"
)

// Flat-file persistence. Every component gets its own directory under the
// flatFileDir and stores one JSON blob per key, rewritten in full on every
// mutation. There is no append-only log and no partial-write protection, the
// last write wins.

func dataDir() string {
	return whistlevault.MakeOrGetConfig().GetString("rootDir") +
		whistlevault.MakeOrGetConfig().GetString("flatFileDir")
}

func path(component, key string) string {
	return dataDir() + component + "/" + key + ".json"
}

// Open returns a handle to the flat file for the given component and key. The
// second return is false if the file does not exist yet, which callers treat
// as empty state. The caller closes the file.
func Open(component, key string) (*os.File, bool) {
	f, err := os.Open(path(component, key))
	if err != nil {
		return nil, false
	}
	return f, true
}

// Write rewrites the flat file for the given component and key, creating the
// component directory if needed.
func Write(component, key string, data []byte) {
	err := os.MkdirAll(dataDir()+component, 0755)
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
	err = os.WriteFile(path(component, key), data, 0644)
	if err != nil {
		whistlevault.LogCLI(err.Error(), 0)
	}
}

// Backup copies the whole flat-file directory to a timestamped sibling so an
// operator can snapshot state before doing something risky.
func Backup() {
	_, err := os.Stat(dataDir())
	if os.IsNotExist(err) {
		whistlevault.LogCLI("nothing to back up yet", 2)
		return
	}
	dest := whistlevault.MakeOrGetConfig().GetString("rootDir") +
		"backup-" + time.Now().Format("20060102-150405") + "/"
	err = dircopy.Copy(dataDir(), dest)
	if err != nil {
		whistlevault.LogCLI(err.Error(), 1)
		return
	}
	whistlevault.LogCLI("backed up data dir to "+dest, 4)
}

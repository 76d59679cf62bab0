package drive

import (
	"net/http"
	"sort"
)

// Operation names, used as policy keys and in log and error output.
const (
	OpDownloadContent    = "DownloadContent"
	OpGetItemInfo        = "GetItemInfo"
	OpListChildren       = "ListChildren"
	OpListFileStreams    = "ListFileStreams"
	OpExists             = "Exists"
	OpCreateDriveItem    = "CreateDriveItem"
	OpDeleteItem         = "DeleteItem"
	OpCopy               = "Copy"
	OpMove               = "Move"
	OpImportFiles        = "ImportFiles"
	OpListFileMetadata   = "ListFileMetadata"
	OpClearFileMetadata  = "ClearFileMetadata"
	OpRemoveFileMetadata = "RemoveFileMetadata"
	OpUpsertFileMetadata = "UpsertFileMetadata"
	OpCreateDrive        = "CreateDrive"
	OpListDrives         = "ListDrives"
	OpListPartitions     = "ListPartitions"
)

const (
	acceptJSON   = "application/json, application/problem+json"
	acceptStream = "application/octet-stream, application/problem+json"
)

// shape is what the decoder does with a response of a given status.
type shape int

const (
	shapeUnexpected shape = iota
	shapeValue
	shapeEmpty
	shapeUnit
	shapeStream
	shapeError
)

// outcome maps documented status codes to shapes. Undocumented statuses are
// shapeUnexpected.
type outcome map[int]shape

func (o outcome) lookup(status int) shape {
	return o[status]
}

var (
	valueOutcome = outcome{
		http.StatusOK:                  shapeValue,
		http.StatusNoContent:           shapeEmpty,
		http.StatusBadRequest:          shapeError,
		http.StatusInternalServerError: shapeError,
	}
	unitOutcome = outcome{
		http.StatusOK:                  shapeUnit,
		http.StatusNoContent:           shapeUnit,
		http.StatusBadRequest:          shapeError,
		http.StatusInternalServerError: shapeError,
	}
	streamOutcome = outcome{
		http.StatusOK:                  shapeStream,
		http.StatusNoContent:           shapeEmpty,
		http.StatusBadRequest:          shapeError,
		http.StatusInternalServerError: shapeError,
	}
)

// Operation is an immutable catalog entry describing one remote operation.
type Operation struct {
	name    string
	method  string
	path    string
	accept  string
	outcome outcome
}

// Name returns the operation name, e.g. "ListChildren".
func (o Operation) Name() string { return o.name }

// Method returns the HTTP verb.
func (o Operation) Method() string { return o.method }

// Path returns the request path relative to the base URL.
func (o Operation) Path() string { return o.path }

// qualified is the name used in UnexpectedStatusError.
func (o Operation) qualified() string { return "DriveClient." + o.name }

var catalog = map[string]Operation{
	OpDownloadContent:    {OpDownloadContent, http.MethodGet, "cmd/download", acceptStream, streamOutcome},
	OpGetItemInfo:        {OpGetItemInfo, http.MethodGet, "cmd/info", acceptJSON, valueOutcome},
	OpListChildren:       {OpListChildren, http.MethodGet, "cmd/dir", acceptJSON, valueOutcome},
	OpListFileStreams:    {OpListFileStreams, http.MethodGet, "cmd/streams", acceptJSON, valueOutcome},
	OpExists:             {OpExists, http.MethodGet, "cmd/exists", acceptJSON, valueOutcome},
	OpCreateDriveItem:    {OpCreateDriveItem, http.MethodPost, "cmd/create", acceptJSON, valueOutcome},
	OpDeleteItem:         {OpDeleteItem, http.MethodPost, "cmd/delete", acceptJSON, unitOutcome},
	OpCopy:               {OpCopy, http.MethodPost, "cmd/copy", acceptJSON, unitOutcome},
	OpMove:               {OpMove, http.MethodPost, "cmd/move", acceptJSON, unitOutcome},
	OpImportFiles:        {OpImportFiles, http.MethodPost, "cmd/import", acceptJSON, valueOutcome},
	OpListFileMetadata:   {OpListFileMetadata, http.MethodGet, "cmd/list-metadata", acceptJSON, valueOutcome},
	OpClearFileMetadata:  {OpClearFileMetadata, http.MethodPost, "cmd/clear-metadata", acceptJSON, unitOutcome},
	OpRemoveFileMetadata: {OpRemoveFileMetadata, http.MethodPost, "cmd/remove-metadata", acceptJSON, unitOutcome},
	OpUpsertFileMetadata: {OpUpsertFileMetadata, http.MethodPost, "cmd/upsert-metadata", acceptJSON, unitOutcome},
	OpCreateDrive:        {OpCreateDrive, http.MethodPost, "drives", acceptJSON, valueOutcome},
	OpListDrives:         {OpListDrives, http.MethodGet, "drives", acceptJSON, valueOutcome},
	OpListPartitions:     {OpListPartitions, http.MethodGet, "partitions", acceptJSON, valueOutcome},
}

// LookupOperation returns the catalog entry for name.
func LookupOperation(name string) (Operation, bool) {
	op, ok := catalog[name]
	return op, ok
}

// OperationNames returns every operation name in sorted order.
func OperationNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func mustOperation(name string) Operation {
	op, ok := catalog[name]
	if !ok {
		panic("drive: unknown operation " + name)
	}

	return op
}

package drive

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// CloudPath addresses an item as "label:/path", where label names a
// partition. String returns the NFC-normalized form.
type CloudPath string

var cloudPathPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*:/`)

// ParseCloudPath trims and normalizes s and checks its form.
func ParseCloudPath(s string) (CloudPath, error) {
	p := CloudPath(norm.NFC.String(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("drive: parsing cloud path %q: %w", s, err)
	}

	return p, nil
}

// Validate checks that p has the form label:/path.
func (p CloudPath) Validate() error {
	return validation.Validate(string(p),
		validation.Required,
		validation.Match(cloudPathPattern).Error("must have the form label:/path"),
	)
}

func (p CloudPath) String() string {
	return norm.NFC.String(string(p))
}

// Label returns the partition label before the colon.
func (p CloudPath) Label() string {
	label, _, _ := strings.Cut(string(p), ":")
	return label
}

// Path returns the slash-rooted path after the colon.
func (p CloudPath) Path() string {
	_, path, ok := strings.Cut(string(p), ":")
	if !ok {
		return ""
	}

	return path
}

// Join appends a child name to p.
func (p CloudPath) Join(name string) CloudPath {
	name = strings.Trim(name, "/")
	if name == "" {
		return p
	}

	if strings.HasSuffix(string(p), "/") {
		return p + CloudPath(name)
	}

	return p + "/" + CloudPath(name)
}

// ItemType discriminates file and directory items.
type ItemType string

// Item types reported by the service.
const (
	ItemTypeFile      ItemType = "file"
	ItemTypeDirectory ItemType = "directory"
)

// ItemInfo describes a file or directory. Exactly one of File and Directory
// is set when Type is known; both are nil for unrecognized types.
type ItemInfo struct {
	Type           ItemType
	ID             uuid.UUID
	TenantID       uuid.UUID
	PartitionID    uuid.UUID
	FullPath       string
	Name           string
	Attributes     string
	CreatedOn      time.Time
	LastAccessedOn time.Time
	LastModifiedOn time.Time

	File      *FileDetails
	Directory *DirectoryDetails
}

// FileDetails holds the members specific to file items.
type FileDetails struct {
	ParentDirectoryID uuid.UUID
	Length            int64
	ContentType       string
	IsShortcut        *bool
	AlternateID       string
}

// DirectoryDetails holds the members specific to directory items. A
// partition's root directory has no parent.
type DirectoryDetails struct {
	ParentDirectoryID *uuid.UUID
	HasChildren       bool
}

// IsDir reports whether the item is a directory.
func (i ItemInfo) IsDir() bool { return i.Type == ItemTypeDirectory }

// Size returns the file length, or zero for directories.
func (i ItemInfo) Size() int64 {
	if i.File != nil {
		return i.File.Length
	}

	return 0
}

// itemInfoWire is the flat JSON form of ItemInfo.
type itemInfoWire struct {
	Type              ItemType   `json:"type"`
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenantId"`
	PartitionID       uuid.UUID  `json:"partitionId"`
	FullPath          string     `json:"fullPath,omitempty"`
	CreatedOn         time.Time  `json:"createdOn"`
	LastAccessedOn    time.Time  `json:"lastAccessedOn"`
	LastModifiedOn    time.Time  `json:"lastModifiedOn"`
	Name              string     `json:"name"`
	Attributes        string     `json:"attributes,omitempty"`
	ParentDirectoryID *uuid.UUID `json:"parentDirectoryId,omitempty"`
	Length            *int64     `json:"length,omitempty"`
	ContentType       string     `json:"contentType,omitempty"`
	IsShortcut        *bool      `json:"isShortcut,omitempty"`
	AlternateID       string     `json:"alternateId,omitempty"`
	HasChildren       *bool      `json:"hasChildren,omitempty"`
}

// UnmarshalJSON selects the variant from the "type" member.
func (i *ItemInfo) UnmarshalJSON(data []byte) error {
	var w itemInfoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*i = ItemInfo{
		Type:           w.Type,
		ID:             w.ID,
		TenantID:       w.TenantID,
		PartitionID:    w.PartitionID,
		FullPath:       w.FullPath,
		Name:           w.Name,
		Attributes:     w.Attributes,
		CreatedOn:      w.CreatedOn,
		LastAccessedOn: w.LastAccessedOn,
		LastModifiedOn: w.LastModifiedOn,
	}

	switch w.Type {
	case ItemTypeFile:
		f := &FileDetails{
			ContentType: w.ContentType,
			IsShortcut:  w.IsShortcut,
			AlternateID: w.AlternateID,
		}
		if w.ParentDirectoryID != nil {
			f.ParentDirectoryID = *w.ParentDirectoryID
		}

		if w.Length != nil {
			f.Length = *w.Length
		}

		i.File = f
	case ItemTypeDirectory:
		d := &DirectoryDetails{ParentDirectoryID: w.ParentDirectoryID}
		if w.HasChildren != nil {
			d.HasChildren = *w.HasChildren
		}

		i.Directory = d
	}

	return nil
}

// MarshalJSON writes the flat form with the "type" discriminator.
func (i ItemInfo) MarshalJSON() ([]byte, error) {
	w := itemInfoWire{
		Type:           i.Type,
		ID:             i.ID,
		TenantID:       i.TenantID,
		PartitionID:    i.PartitionID,
		FullPath:       i.FullPath,
		Name:           i.Name,
		Attributes:     i.Attributes,
		CreatedOn:      i.CreatedOn,
		LastAccessedOn: i.LastAccessedOn,
		LastModifiedOn: i.LastModifiedOn,
	}

	switch {
	case i.File != nil:
		parent := i.File.ParentDirectoryID
		length := i.File.Length
		w.ParentDirectoryID = &parent
		w.Length = &length
		w.ContentType = i.File.ContentType
		w.IsShortcut = i.File.IsShortcut
		w.AlternateID = i.File.AlternateID
	case i.Directory != nil:
		hasChildren := i.Directory.HasChildren
		w.ParentDirectoryID = i.Directory.ParentDirectoryID
		w.HasChildren = &hasChildren
	}

	return json.Marshal(w)
}

// ExistsResponse is the body of the exists operation.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// ImportRecord describes one file to import from an external store.
type ImportRecord struct {
	Name        string `json:"name"`
	AlternateID string `json:"alternateId"`
	Length      int64  `json:"length,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	ImportPath  string `json:"importPath,omitempty"`
	Overwrite   bool   `json:"overwrite,omitempty"`
}

// Validate checks the members the service requires.
func (r ImportRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.AlternateID, validation.Required),
		validation.Field(&r.Length, validation.Min(int64(0))),
	)
}

// CreateDriveRequest is the body of the create-drive operation.
type CreateDriveRequest struct {
	DriveControllerID uuid.UUID `json:"driveControllerId"`
	Name              string    `json:"name"`
	DriverInfo        string    `json:"driverInfo"`
	TrustLevel        string    `json:"trustLevel,omitempty"`
	PartitionLabel    string    `json:"partitionLabel,omitempty"`
}

// Validate checks the members the service requires.
func (r CreateDriveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DriveControllerID, validation.By(nonNilUUID)),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.DriverInfo, validation.Required),
	)
}

// Drive is a storage drive registered with the service.
type Drive struct {
	ID                uuid.UUID `json:"id"`
	TenantID          uuid.UUID `json:"tenantId"`
	Name              string    `json:"name"`
	DriveControllerID uuid.UUID `json:"driveControllerId"`
	TrustLevel        string    `json:"trustLevel,omitempty"`
}

// Partition is a labelled region of a drive with its own root directory.
type Partition struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenantId"`
	Label           string    `json:"label"`
	DriveID         uuid.UUID `json:"driveId"`
	RootDirectoryID uuid.UUID `json:"rootDirectoryId"`
}

// FileParameter is a file upload. Data must implement io.Seeker for the
// request to be retried.
type FileParameter struct {
	Data        io.Reader
	FileName    string
	ContentType string
}

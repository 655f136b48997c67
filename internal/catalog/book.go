package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
)

// Book is a row of the local catalog.
type Book struct {
	ID          int64
	Title       string
	Author      string
	ISBN        string
	Description string
	Filename    string
	Filepath    string
	Uploader    string
	// CoverPath is a file under the library's cover directory, or the
	// remote URL when the cover was not downloaded.
	CoverPath string
	// Origin is the source the entry came from: "uploaded" for files,
	// the external source tag for imported records.
	Origin     string
	UploadDate time.Time
}

// ToRecord projects the row onto a search record tagged uploaded.
func (b Book) ToRecord() book.Record {
	return book.Record{
		ID:            strconv.FormatInt(b.ID, 10),
		Title:         b.Title,
		Author:        b.Author,
		Description:   b.Description,
		Thumbnail:     b.CoverURL(),
		PublishedDate: "",
		ISBN13:        isbn13(b.ISBN),
		Filename:      b.Filename,
		Filepath:      b.Filepath,
		Source:        book.SourceUploaded,
	}.Normalize()
}

// CoverRoute is the API path serving a downloaded cover.
const CoverRoute = "/api/books/%d/cover"

// HasLocalCover reports whether the cover was downloaded to disk.
func (b Book) HasLocalCover() bool {
	return b.CoverPath != "" && !isRemoteURL(b.CoverPath)
}

// CoverURL is the address clients load the cover from. Local files are
// never exposed by path.
func (b Book) CoverURL() string {
	if b.HasLocalCover() {
		return fmt.Sprintf(CoverRoute, b.ID)
	}
	return b.CoverPath
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// HasFile reports whether the entry has an uploaded file to download.
func (b Book) HasFile() bool {
	return b.Filepath != ""
}

// isbn13 keeps isbn only when it is a 13-digit ISBN once hyphens are removed.
func isbn13(isbn string) string {
	digits := make([]rune, 0, len(isbn))
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, r)
		case r == '-' || r == ' ':
		default:
			return ""
		}
	}
	if len(digits) != 13 {
		return ""
	}
	return string(digits)
}

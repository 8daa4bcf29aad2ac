package entry

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyConfigured = errors.New("entry already configured")
	ErrNotFound          = errors.New("entry not found")
)

// Data is the account data an entry carries
type Data struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// Entry is one configured instance of the integration
type Entry struct {
	EntryID   string    `json:"entry_id"`
	Domain    string    `json:"domain"`
	UniqueID  string    `json:"unique_id"`
	Title     string    `json:"title"`
	Data      Data      `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates an entry with a fresh random id
func New(domain, uniqueID, title string, data Data) *Entry {
	return &Entry{
		EntryID:  uuid.NewString(),
		Domain:   domain,
		UniqueID: uniqueID,
		Title:    title,
		Data:     data,
	}
}

package storage

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectKey builds a unique, date-partitioned key for a label sheet:
// <prefix>/2006/01/02/<uuid>.pdf
func ObjectKey(prefix string, now time.Time) string {
	name := uuid.New().String() + ".pdf"
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format("2006/01/02"), name)
}

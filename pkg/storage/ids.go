package storage

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const jobIDPrefix = "music_"

// NewJobID mints an opaque 17-character job_id: a fixed "music_" prefix
// followed by 11 lowercase Crockford-base32 characters taken from a
// ULID, following the teacher's ulid.Make() convention in storage.go's
// custom migration seeding.
func NewJobID() string {
	id := ulid.Make().String()
	tail := strings.ToLower(id[len(id)-11:])
	return jobIDPrefix + tail
}

package replication

import (
	"time"

	"github.com/datatier/datatier/pkg/errors"
)

// Version is one candidate copy of an object's state during conflict
// resolution.
type Version struct {
	Location  string    `json:"location"`
	Timestamp time.Time `json:"timestamp"`
	Checksum  string    `json:"checksum,omitempty"`
}

// ConflictStrategy picks the winning version among conflicting copies.
// Alternate strategies (version-vector, manual queue) plug in without
// changing the resolve contract.
type ConflictStrategy interface {
	Name() string
	Resolve(versions []Version) (Version, error)
}

// LastWriteWins resolves conflicts by picking the version with the latest
// timestamp. This is the default strategy.
type LastWriteWins struct{}

// Name returns the strategy identifier.
func (LastWriteWins) Name() string { return "last_write_wins" }

// Resolve picks the most recently written version.
func (LastWriteWins) Resolve(versions []Version) (Version, error) {
	if len(versions) == 0 {
		return Version{}, errors.NewError(errors.ErrCodeInvalidInput, "no versions to resolve")
	}

	winner := versions[0]
	for _, v := range versions[1:] {
		if v.Timestamp.After(winner.Timestamp) {
			winner = v
		}
	}
	return winner, nil
}

// ConflictResolution records the outcome of one conflict-resolution pass.
type ConflictResolution struct {
	ObjectID  string    `json:"object_id"`
	Resolved  bool      `json:"conflict_resolved"`
	Strategy  string    `json:"strategy"`
	Winner    Version   `json:"resolved_version"`
	Timestamp time.Time `json:"timestamp"`
}

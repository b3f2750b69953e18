package screening

import (
	"github.com/kellatirupathi/darwinbox/internal/candidates"
)

const DefaultBatchSize = 3

// Batch is a group of candidates processed in order under one credential.
type Batch struct {
	Index      int
	Candidates []candidates.Candidate
	Credential string
}

// Partition splits list into contiguous groups of at most size, keeping order.
func Partition(list []candidates.Candidate, size int) [][]candidates.Candidate {
	if size <= 0 {
		size = DefaultBatchSize
	}

	groups := make([][]candidates.Candidate, 0, (len(list)+size-1)/size)
	for start := 0; start < len(list); start += size {
		end := min(start+size, len(list))
		groups = append(groups, list[start:end:end])
	}
	return groups
}

// AssignCredentials gives batch i the credential at i mod len(credentials).
func AssignCredentials(groups [][]candidates.Candidate, credentials []string) []Batch {
	if len(credentials) == 0 {
		return nil
	}

	batches := make([]Batch, 0, len(groups))
	for i, group := range groups {
		batches = append(batches, Batch{
			Index:      i,
			Candidates: group,
			Credential: credentials[i%len(credentials)],
		})
	}
	return batches
}

package screening

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellatirupathi/darwinbox/internal/candidates"
)

func makeCandidates(n int) []candidates.Candidate {
	list := make([]candidates.Candidate, 0, n)
	for i := 1; i <= n; i++ {
		id := strconv.Itoa(i)
		list = append(list, candidates.Candidate{ID: id, Name: "Candidate " + id, ResumeURL: "http://x/" + id + ".pdf"})
	}
	return list
}

func TestPartition(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4, 7, 9, 10} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			list := makeCandidates(n)
			groups := Partition(list, 3)

			require.Len(t, groups, (n+2)/3)

			var flat []candidates.Candidate
			for i, g := range groups {
				if i < len(groups)-1 {
					assert.Len(t, g, 3)
				}
				flat = append(flat, g...)
			}
			if n > 0 {
				last := n % 3
				if last == 0 {
					last = 3
				}
				assert.Len(t, groups[len(groups)-1], last)
			}
			assert.Equal(t, candidates.Candidates(list).IDs(), candidates.Candidates(flat).IDs())
		})
	}
}

func TestPartitionDefaultsSize(t *testing.T) {
	groups := Partition(makeCandidates(4), 0)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], DefaultBatchSize)
}

func TestPartitionGroupsDoNotAlias(t *testing.T) {
	groups := Partition(makeCandidates(4), 3)
	groups[0] = append(groups[0], candidates.Candidate{ID: "extra"})
	assert.Equal(t, "4", groups[1][0].ID)
}

func TestAssignCredentials(t *testing.T) {
	credentials := []string{"k1", "k2", "k3"}
	batches := AssignCredentials(Partition(makeCandidates(20), 3), credentials)

	require.Len(t, batches, 7)
	for i, b := range batches {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, credentials[i%len(credentials)], b.Credential)
	}
}

func TestAssignCredentialsEmpty(t *testing.T) {
	assert.Nil(t, AssignCredentials(Partition(makeCandidates(3), 3), nil))
}

package metadata

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// pqUUIDArray renders a []uuid.UUID as a driver.Valuer usable with
// `= ANY($1)`, matching lib/pq's array-literal support.
func pqUUIDArray(ids []uuid.UUID) interface{} {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}

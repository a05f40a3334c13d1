package usn

import "github.com/ram-shortage/brindex/pkg/types"

// Deduplicate collapses a polling batch by FileRef. At each change, if
// the ref's *current* accumulated state is Create and the incoming
// change is Delete, the ref is dropped entirely (born and died inside
// one poll window). Otherwise the incoming change replaces whatever
// state the ref held.
func Deduplicate(changes []types.UsnChange) []types.UsnChange {
	final := make(map[uint64]types.UsnChange, len(changes))
	order := make([]uint64, 0, len(changes))

	for _, c := range changes {
		if _, seen := final[c.FileRef]; !seen {
			order = append(order, c.FileRef)
		}

		if existing, ok := final[c.FileRef]; ok && existing.ChangeType == types.ChangeCreate && c.ChangeType == types.ChangeDelete {
			delete(final, c.FileRef)
			continue
		}
		final[c.FileRef] = c
	}

	out := make([]types.UsnChange, 0, len(final))
	for _, ref := range order {
		if c, ok := final[ref]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Package peers finds a comparable entity for gap analysis.
package peers

import (
	"fmt"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/catalog"
)

// Match is the resolved peer. ExactMatch is false when the peer was chosen by
// fallback and does not share region and size class with the entity.
type Match struct {
	Peer       *domain.Entity
	ExactMatch bool
}

// FindPeer returns the first other entity with the same region and size class,
// scanning in catalog order; otherwise the first other entity. Within each of
// the two rules, candidates of the entity's own kind are tried before the rest
// of the catalog, so an exact match of another kind beats a fallback.
func FindPeer(entity *domain.Entity, c *catalog.Catalog) (Match, error) {
	sameKind := c.OfKind(entity.Kind)
	all := c.Entities()

	for _, candidates := range [][]*domain.Entity{sameKind, all} {
		if peer := firstOther(entity, candidates, entity.SamePeerGroup); peer != nil {
			return Match{Peer: peer, ExactMatch: true}, nil
		}
	}
	for _, candidates := range [][]*domain.Entity{sameKind, all} {
		if peer := firstOther(entity, candidates, nil); peer != nil {
			return Match{Peer: peer}, nil
		}
	}
	return Match{}, fmt.Errorf("%w: %s", domain.ErrNoPeer, entity.ID)
}

// firstOther returns the first candidate other than entity accepted by match
// (any candidate when match is nil).
func firstOther(entity *domain.Entity, candidates []*domain.Entity, match func(*domain.Entity) bool) *domain.Entity {
	for _, candidate := range candidates {
		if candidate.ID == entity.ID {
			continue
		}
		if match == nil || match(candidate) {
			return candidate
		}
	}
	return nil
}

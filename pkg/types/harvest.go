package types

import (
	"fmt"
	"time"
)

// HarvestType selects which staging rows are eligible for a run. The
// numeric values match sf.harvest_events.type_id.
type HarvestType int

const (
	HarvestAll            HarvestType = 1
	HarvestRevisedSince   HarvestType = 2
	HarvestNotYetComplete HarvestType = 3
)

func (h HarvestType) String() string {
	switch h {
	case HarvestAll:
		return "all"
	case HarvestRevisedSince:
		return "revised-since"
	case HarvestNotYetComplete:
		return "not-yet-complete"
	default:
		return fmt.Sprintf("harvest-type(%d)", int(h))
	}
}

// Harvest is the classified harvest for a run.
type Harvest struct {
	Type   HarvestType
	Cutoff time.Time // only meaningful for HarvestRevisedSince
}

// NewHarvest validates a type id and cutoff pair.
func NewHarvest(typeID int, cutoff time.Time) (Harvest, error) {
	h := Harvest{Type: HarvestType(typeID), Cutoff: cutoff}
	switch h.Type {
	case HarvestAll, HarvestNotYetComplete:
		h.Cutoff = time.Time{}
		return h, nil
	case HarvestRevisedSince:
		if cutoff.IsZero() {
			return Harvest{}, fmt.Errorf("%w: revised-since harvest without cutoff date", ErrInvalidHarvest)
		}
		return h, nil
	default:
		return Harvest{}, fmt.Errorf("%w: type %d", ErrInvalidHarvest, typeID)
	}
}

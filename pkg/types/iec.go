package types

import (
	"fmt"
	"strings"
)

// IECKind selects how inclusion/exclusion criteria are stored for a source.
// The shapes are mutually exclusive.
type IECKind uint8

const (
	IECNone IECKind = iota
	IECSingleTable
	IECByYearGroupings
	IECByYears
)

// Monitor values of study_iec_storage_type.
const (
	iecSingleTableLabel     = "Single Table"
	iecByYearGroupingsLabel = "By Year Groupings"
	iecByYearsLabel         = "By Years"
)

// Year bucket bounds for the ByYears shape: one partition per relative year
// offset, both ends inclusive.
const (
	iecFirstYearBucket = 15
	iecLastYearBucket  = 30
)

var (
	iecSinglePartitions = []string{"study_iec"}

	iecGroupPartitions = []string{
		"study_iec_upto12",
		"study_iec_13to19",
		"study_iec_20on",
	}

	iecHistoricPartitions = []string{
		"study_iec_null",
		"study_iec_pre06",
		"study_iec_0608",
		"study_iec_0910",
		"study_iec_1112",
		"study_iec_1314",
	}
)

// IECStorage is the IEC storage variant of a source. The partition
// tables of the variant are derived by Partitions.
type IECStorage struct {
	Kind IECKind
}

// ParseIECStorage decodes the monitor's study_iec_storage_type value.
// An empty value yields IECNone.
func ParseIECStorage(label string) (IECStorage, error) {
	switch strings.TrimSpace(label) {
	case "":
		return IECStorage{Kind: IECNone}, nil
	case iecSingleTableLabel:
		return IECStorage{Kind: IECSingleTable}, nil
	case iecByYearGroupingsLabel:
		return IECStorage{Kind: IECByYearGroupings}, nil
	case iecByYearsLabel:
		return IECStorage{Kind: IECByYears}, nil
	default:
		return IECStorage{}, fmt.Errorf("%w: %q", ErrUnknownIECStorage, label)
	}
}

// String returns the monitor label of the storage kind.
func (s IECStorage) String() string {
	switch s.Kind {
	case IECSingleTable:
		return iecSingleTableLabel
	case IECByYearGroupings:
		return iecByYearGroupingsLabel
	case IECByYears:
		return iecByYearsLabel
	default:
		return "None"
	}
}

// Partitions returns the IEC table names for the shape, in creation order.
func (s IECStorage) Partitions() []string {
	switch s.Kind {
	case IECSingleTable:
		return append([]string(nil), iecSinglePartitions...)
	case IECByYearGroupings:
		return append([]string(nil), iecGroupPartitions...)
	case IECByYears:
		out := append([]string(nil), iecHistoricPartitions...)
		for y := iecFirstYearBucket; y <= iecLastYearBucket; y++ {
			out = append(out, fmt.Sprintf("study_iec_%d", y))
		}
		return out
	default:
		return nil
	}
}

// AllIECPartitions returns the partition names of every shape. Rebuild drops
// all of them so that a change of shape leaves nothing behind.
func AllIECPartitions() []string {
	var out []string
	for _, k := range []IECKind{IECSingleTable, IECByYearGroupings, IECByYears} {
		out = append(out, IECStorage{Kind: k}.Partitions()...)
	}
	return out
}

package types

// Source describes one data source as registered in the monitoring store.
// It is loaded once per run and never mutated.
type Source struct {
	ID           int
	DatabaseName string
	Capabilities CapabilitySet
	IEC          IECStorage
}

// Has reports whether the source carries capability c.
func (s Source) Has(c Capability) bool {
	return s.Capabilities.Has(c)
}

// HasStudyTables reports whether the source has study-level tables. Sources
// without them (e.g. bibliographic sources) only carry objects.
func (s Source) HasStudyTables() bool {
	return s.Capabilities.Has(StudyTables)
}

// ActiveIEC returns the IEC shape in effect for the source: IECNone unless
// the source has both study tables and the IEC capability.
func (s Source) ActiveIEC() IECStorage {
	if !s.Has(StudyIEC) {
		return IECStorage{Kind: IECNone}
	}
	return s.IEC
}

// Entity distinguishes the two top-level record families.
type Entity uint8

const (
	EntityStudy Entity = iota
	EntityObject
)

func (e Entity) String() string {
	if e == EntityStudy {
		return "study"
	}
	return "object"
}

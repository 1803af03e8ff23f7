package types

import (
	"errors"
	"testing"
	"time"
)

func TestCapabilityColumns(t *testing.T) {
	seen := make(map[string]Capability)
	for _, c := range AllCapabilities() {
		col := c.Column()
		if col == "" {
			t.Fatalf("capability %d has no monitor column", c)
		}
		if prev, dup := seen[col]; dup {
			t.Fatalf("column %s used by %v and %v", col, prev, c)
		}
		seen[col] = c

		back, ok := CapabilityForColumn(col)
		if !ok || back != c {
			t.Errorf("CapabilityForColumn(%q) = %v, %v", col, back, ok)
		}
	}
	if len(seen) != 27 {
		t.Errorf("got %d capabilities, want 27", len(seen))
	}
}

func TestCapabilitySetStudyGate(t *testing.T) {
	s := NewCapabilitySet(StudyTopics, ObjectDates)
	if s.Has(StudyTopics) {
		t.Error("study capability effective without StudyTables")
	}
	if !s.Has(ObjectDates) {
		t.Error("object capability should not need StudyTables")
	}
	s = s.With(StudyTables)
	if !s.Has(StudyTopics) {
		t.Error("StudyTopics should take effect with StudyTables")
	}
	want := []Capability{StudyTables, StudyTopics, ObjectDates}
	got := s.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestIECPartitions(t *testing.T) {
	tests := []struct {
		label string
		count int
		first string
		last  string
	}{
		{"", 0, "", ""},
		{"Single Table", 1, "study_iec", "study_iec"},
		{"By Year Groupings", 3, "study_iec_upto12", "study_iec_20on"},
		{"By Years", 22, "study_iec_null", "study_iec_30"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			s, err := ParseIECStorage(tt.label)
			if err != nil {
				t.Fatalf("ParseIECStorage: %v", err)
			}
			p := s.Partitions()
			if len(p) != tt.count {
				t.Fatalf("got %d partitions, want %d", len(p), tt.count)
			}
			if tt.count > 0 && (p[0] != tt.first || p[len(p)-1] != tt.last) {
				t.Errorf("partitions %v", p)
			}
		})
	}

	if _, err := ParseIECStorage("By Decade"); !errors.Is(err, ErrUnknownIECStorage) {
		t.Errorf("expected ErrUnknownIECStorage, got %v", err)
	}
	if n := len(AllIECPartitions()); n != 26 {
		t.Errorf("AllIECPartitions has %d names, want 26", n)
	}
}

func TestActiveIEC(t *testing.T) {
	src := Source{Capabilities: NewCapabilitySet(StudyIEC), IEC: IECStorage{Kind: IECByYears}}
	if src.ActiveIEC().Kind != IECNone {
		t.Error("IEC active without study tables")
	}
	src.Capabilities = src.Capabilities.With(StudyTables)
	if src.ActiveIEC().Kind != IECByYears {
		t.Error("IEC shape not active")
	}
}

func TestNewHarvest(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		typeID  int
		cutoff  time.Time
		wantErr bool
	}{
		{"all", 1, time.Time{}, false},
		{"revised since", 2, cutoff, false},
		{"revised since without cutoff", 2, time.Time{}, true},
		{"not yet complete", 3, cutoff, false},
		{"unknown", 9, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHarvest(tt.typeID, tt.cutoff)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidHarvest) {
					t.Fatalf("expected ErrInvalidHarvest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if h.Type != HarvestType(tt.typeID) {
				t.Errorf("type = %v", h.Type)
			}
			if h.Type != HarvestRevisedSince && !h.Cutoff.IsZero() {
				t.Error("cutoff kept for a harvest that ignores it")
			}
		})
	}
}

func TestImportEventRecord(t *testing.T) {
	var ev ImportEvent
	ev.Record("studies", 10)
	ev.Record("study_titles", 25)
	ev.Record("data_objects", 4)
	ev.Record("studies", 5)
	if ev.StudyCount != 15 || ev.ObjectCount != 4 {
		t.Errorf("counts = %d studies, %d objects", ev.StudyCount, ev.ObjectCount)
	}
	if ev.Total() != 44 {
		t.Errorf("Total() = %d", ev.Total())
	}
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	if err := error(&TransferError{Table: "studies", Err: cause}); !errors.Is(err, ErrChunkTransfer) || !errors.Is(err, cause) {
		t.Error("TransferError does not unwrap")
	}
	if err := error(&BridgeError{Phase: BridgeEstablish, Err: cause}); !errors.Is(err, ErrBridge) {
		t.Error("BridgeError does not unwrap")
	}
	if err := error(&SchemaBuildError{Table: "studies", Err: cause}); !errors.Is(err, ErrSchemaBuild) {
		t.Error("SchemaBuildError does not unwrap")
	}
}

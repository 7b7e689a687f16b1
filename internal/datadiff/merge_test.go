package datadiff

import (
	"reflect"
	"testing"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

func TestMergeInserts_ConcatenatesAndDedupes(t *testing.T) {
	t.Parallel()

	a := map[string]domain.InsertBatch{
		"donor": {BatchName: "first.tsv", Records: []domain.DataRecord{{"id": "D1"}, {"id": "D2"}}},
	}
	b := map[string]domain.InsertBatch{
		"donor":  {BatchName: "second.tsv", Records: []domain.DataRecord{{"id": "D2"}, {"id": "D3"}}},
		"sample": {Records: []domain.DataRecord{{"id": "S1"}}},
	}

	got := MergeInserts(a, b)

	donor := got["donor"]
	if donor.BatchName != "second.tsv" {
		t.Errorf("batch name = %q, want second.tsv", donor.BatchName)
	}
	wantDonors := []domain.DataRecord{{"id": "D1"}, {"id": "D2"}, {"id": "D3"}}
	if !reflect.DeepEqual(donor.Records, wantDonors) {
		t.Errorf("donor records = %v, want %v", donor.Records, wantDonors)
	}
	if len(got["sample"].Records) != 1 {
		t.Errorf("sample records = %v", got["sample"].Records)
	}
}

func TestMergeInserts_NoDuplicates(t *testing.T) {
	t.Parallel()

	a := map[string]domain.InsertBatch{"x": {Records: []domain.DataRecord{{"v": 1}, {"v": 2}}}}
	b := map[string]domain.InsertBatch{"x": {Records: []domain.DataRecord{{"v": 2.0}, {"v": 3}, {"v": 1}}}}

	got := MergeInserts(a, b)["x"].Records
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if RecordsEqual(got[i], got[j]) {
				t.Fatalf("duplicate records at %d and %d: %v", i, j, got)
			}
		}
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
}

func TestMergeDeletes_IdempotentAndLaterWins(t *testing.T) {
	t.Parallel()

	a := map[string][]domain.SubmittedData{
		"sample": {{SystemID: "SD1", Data: domain.DataRecord{"v": 1}}, {SystemID: "SD2"}},
	}
	b := map[string][]domain.SubmittedData{
		"sample": {{SystemID: "SD1", Data: domain.DataRecord{"v": 2}}},
	}

	once := MergeDeletes(a, b)
	twice := MergeDeletes(once, b)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("MergeDeletes not idempotent:\n once=%v\ntwice=%v", once, twice)
	}

	got := once["sample"]
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SystemID != "SD1" || got[0].Data["v"] != 2 {
		t.Errorf("later entry should replace earlier in place, got %+v", got[0])
	}
}

func TestMergeUpdates_IdempotentAndLaterWins(t *testing.T) {
	t.Parallel()

	a := map[string][]domain.UpdateRecord{
		"donor": {{SystemID: "SD1", New: domain.DataRecord{"age": 30}}},
	}
	b := map[string][]domain.UpdateRecord{
		"donor": {{SystemID: "SD1", New: domain.DataRecord{"age": 31}}, {SystemID: "SD9"}},
	}

	once := MergeUpdates(a, b)
	if !reflect.DeepEqual(once, MergeUpdates(once, b)) {
		t.Fatal("MergeUpdates not idempotent")
	}
	got := once["donor"]
	if len(got) != 2 || got[0].New["age"] != 31 || got[1].SystemID != "SD9" {
		t.Fatalf("unexpected merge result: %+v", got)
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := MergeInserts(); len(got) != 0 {
		t.Errorf("MergeInserts() = %v", got)
	}
	if got := MergeDeletes(nil, nil); len(got) != 0 {
		t.Errorf("MergeDeletes(nil, nil) = %v", got)
	}
}

package session

import (
	"testing"
)

func TestMemoryStoreCreateReplacesSession(t *testing.T) {
	store := NewMemoryStore()

	s := store.Create(42)
	if s.State != StateSelectingDocumentType || s.DocumentType != DocumentNone {
		t.Fatalf("fresh session = %+v", s)
	}

	s.DocumentType = DocumentPassport
	s.State = StateTakingPassportPhoto
	s.Images = append(s.Images, []byte("img"))
	store.Put(s)

	fresh := store.Create(42)
	if fresh.State != StateSelectingDocumentType {
		t.Errorf("Create did not reset state: %s", fresh.State)
	}
	if fresh.DocumentType != DocumentNone || len(fresh.Images) != 0 || fresh.Document != nil {
		t.Errorf("Create carried over old data: %+v", fresh)
	}

	got, ok := store.Get(42)
	if !ok || got != fresh {
		t.Error("Get must return the freshly created session")
	}
}

func TestMemoryStoreRemoveIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	store.Create(7)

	store.Remove(7)
	if _, ok := store.Get(7); ok {
		t.Error("session still present after Remove")
	}
	store.Remove(7)
	store.Remove(999)
}

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	store := NewMemoryStore()
	a := store.Create(1)
	b := store.Create(2)

	a.State = StateTakingVoice
	store.Put(a)

	got, ok := store.Get(2)
	if !ok || got.State != StateSelectingDocumentType {
		t.Errorf("user 2 affected by user 1 mutation: %+v", got)
	}
	_ = b
}

func TestRecordEnvelopeRoundTrip(t *testing.T) {
	records := []DocumentRecord{
		&PassportRecord{
			LastName:   "Иванов",
			FirstName:  "Пётр",
			MiddleName: "Сергеевич",
			Number:     "4515161589",
		},
		&LicenseRecord{FullName: "Иванов Пётр", Number: "9924621263"},
		&PatentRecord{FullName: "Иванов Пётр", Citizenship: "Узбекистан", Number: "123"},
	}

	for _, rec := range records {
		raw, err := encodeRecord(rec)
		if err != nil {
			t.Fatalf("encode %T: %v", rec, err)
		}
		back, err := decodeRecord(raw)
		if err != nil {
			t.Fatalf("decode %T: %v", rec, err)
		}
		if back.DisplayName() != rec.DisplayName() || back.DocumentNumber() != rec.DocumentNumber() {
			t.Errorf("%T round trip mismatch: %+v vs %+v", rec, back, rec)
		}
	}
}

func TestRecordEnvelopeNil(t *testing.T) {
	raw, err := encodeRecord(nil)
	if err != nil || raw != nil {
		t.Fatalf("encode nil = (%v, %v)", raw, err)
	}
	rec, err := decodeRecord(nil)
	if err != nil || rec != nil {
		t.Fatalf("decode nil = (%v, %v)", rec, err)
	}
}

func TestDisplayNameFallsBackToUnknown(t *testing.T) {
	var rec DocumentRecord = &LicenseRecord{FullName: "   "}
	if got := rec.DisplayName(); got == "" || got == "   " {
		t.Errorf("blank full name must map to the unknown sentinel, got %q", got)
	}
	rec = &PassportRecord{}
	if rec.DisplayName() == "" {
		t.Error("empty passport name parts must map to the unknown sentinel")
	}
}

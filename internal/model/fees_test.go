package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFeeNamesKeepsInsertionOrder(t *testing.T) {
	f := NewFeeNames(DefaultFeeNames...)
	if f.Add("Grundpreis") {
		t.Fatal("Add of an existing name should report no change")
	}
	if !f.Add("Ticketversand") {
		t.Fatal("Add of a new name should report a change")
	}

	want := append(append([]string{}, DefaultFeeNames...), "Ticketversand")
	if got := f.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if !f.Contains("Sys-Geb.") {
		t.Fatal("expected Sys-Geb. in set")
	}
}

func TestFeeNamesZeroValue(t *testing.T) {
	var f FeeNames
	if f.Contains("x") {
		t.Fatal("zero value should be empty")
	}
	f.Add("x")
	if f.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", f.Len())
	}
}

func TestFeeValuesJSONPreservesOrder(t *testing.T) {
	var fv FeeValues
	fv.Set("Einzel Endpreis", 10)
	fv.Set("Anzahl Tickets", 5)
	fv.Set("Grundpreis", 8.5)

	data, err := json.Marshal(fv)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"Einzel Endpreis":10,"Anzahl Tickets":5,"Grundpreis":8.5}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestFeeValuesEmptyJSON(t *testing.T) {
	data, err := json.Marshal(FeeValues{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("got %s, want {}", data)
	}
}

func TestReportRowCount(t *testing.T) {
	r := Report{Events: []Event{
		{Rows: make([]Row, 2)},
		{Rows: make([]Row, 3)},
		{},
	}}
	if got := r.RowCount(); got != 5 {
		t.Fatalf("RowCount() = %d, want 5", got)
	}
}

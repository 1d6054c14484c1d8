package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/crimson-sun/eventimx/internal/model"
)

type nopConnector struct{}

func (nopConnector) Stream(context.Context, ConnectorConfig) (<-chan model.Document, error) {
	ch := make(chan model.Document)
	close(ch)
	return ch, nil
}

func (nopConnector) Query(context.Context, ConnectorConfig, QueryParams) ([]model.Document, error) {
	return nil, nil
}

func TestRegisterAndGet(t *testing.T) {
	Register("test-nop", func() Connector { return nopConnector{} })

	ctor, err := Get("test-nop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ctor().(nopConnector); !ok {
		t.Fatal("constructor returned wrong type")
	}

	found := false
	for _, p := range Providers() {
		if p == "test-nop" {
			found = true
		}
	}
	if !found {
		t.Fatalf("test-nop missing from %v", Providers())
	}
}

func TestGetUnknownProvider(t *testing.T) {
	_, err := Get("does-not-exist")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestProvidersSorted(t *testing.T) {
	Register("test-b", func() Connector { return nopConnector{} })
	Register("test-a", func() Connector { return nopConnector{} })
	names := Providers()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("providers not sorted: %v", names)
		}
	}
}

func TestQueryParamsApply(t *testing.T) {
	docs := []model.Document{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	if got := (QueryParams{}).Apply(docs); len(got) != 3 {
		t.Errorf("no limit: got %d", len(got))
	}
	if got := (QueryParams{Limit: 2}).Apply(docs); len(got) != 2 || got[1].Name != "b" {
		t.Errorf("limit 2: got %v", got)
	}
	if got := (QueryParams{Limit: 5}).Apply(docs); len(got) != 3 {
		t.Errorf("limit 5: got %d", len(got))
	}
}

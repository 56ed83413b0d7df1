package dns

import (
	"context"
	"errors"
	"testing"
)

func TestMockResolverMXSortedByPreference(t *testing.T) {
	r := MockResolver{
		MX: map[string][]MX{
			"example.com": {
				{Host: "backup.example.com", Pref: 20},
				{Host: "primary.example.com", Pref: 10},
				{Host: "primary2.example.com", Pref: 10},
			},
		},
	}

	records, err := r.LookupMX(context.Background(), "example.com")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"primary.example.com", "primary2.example.com", "backup.example.com"}
	if len(records) != len(want) {
		t.Fatalf("records = %v", records)
	}
	for i, host := range want {
		if records[i].Host != host {
			t.Errorf("records[%d] = %q, want %q", i, records[i].Host, host)
		}
	}
}

func TestMockResolverNotFound(t *testing.T) {
	r := MockResolver{}
	if _, err := r.LookupMX(context.Background(), "nomx.example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMockResolverFailure(t *testing.T) {
	r := MockResolver{
		MX:   map[string][]MX{"example.com": {{Host: "mx", Pref: 10}}},
		Fail: []string{"mx example.com"},
	}
	if _, err := r.LookupMX(context.Background(), "example.com"); !errors.Is(err, ErrServFail) {
		t.Errorf("err = %v, want ErrServFail", err)
	}
}

func TestMockResolverHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := MockResolver{MX: map[string][]MX{"example.com": {{Host: "mx", Pref: 10}}}}
	if _, err := r.LookupMX(ctx, "example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMockResolverIP(t *testing.T) {
	r := MockResolver{
		A: map[string][]string{"mx.example.com": {"192.0.2.1", "2001:db8::1"}},
	}
	ips, err := r.LookupIP(context.Background(), "mx.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(ips) != 2 {
		t.Fatalf("ips = %v", ips)
	}
	if ips[0].String() != "192.0.2.1" {
		t.Errorf("ips[0] = %v", ips[0])
	}
}

func TestSortMXStable(t *testing.T) {
	records := []MX{
		{Host: "c", Pref: 5},
		{Host: "a", Pref: 5},
		{Host: "b", Pref: 1},
	}
	sortMX(records)
	if records[0].Host != "b" {
		t.Errorf("records[0] = %v", records[0])
	}
	// Equal preferences keep their input order.
	if records[1].Host != "c" || records[2].Host != "a" {
		t.Errorf("equal-pref order not stable: %v", records)
	}
}

package playlist

import "testing"

func master() *MasterPlaylist {
	return &MasterPlaylist{Variants: []Variant{
		{URI: "low", Bandwidth: 500000, Resolution: &Resolution{Width: 426, Height: 240}},
		{URI: "mid", Bandwidth: 1500000, Resolution: &Resolution{Width: 1280, Height: 720}},
		{URI: "high", Bandwidth: 3000000, Resolution: &Resolution{Width: 1920, Height: 1080}},
	}}
}

func TestSelectVariantByResolution(t *testing.T) {
	v, err := SelectVariant(master(), Preference{ResolutionHeight: 720})
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if v.URI != "mid" {
		t.Errorf("selected %q, want mid", v.URI)
	}
}

func TestSelectVariantByResolutionFallsBackWhenNoneQualify(t *testing.T) {
	v, err := SelectVariant(master(), Preference{ResolutionHeight: 100})
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if v.URI != "high" {
		t.Errorf("selected %q, want highest bandwidth fallback 'high'", v.URI)
	}
}

func TestSelectVariantByBandwidth(t *testing.T) {
	v, err := SelectVariant(master(), Preference{Bandwidth: 2000000})
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if v.URI != "mid" {
		t.Errorf("selected %q, want mid", v.URI)
	}
}

func TestSelectVariantByBandwidthBelowAllPicksLowest(t *testing.T) {
	v, err := SelectVariant(master(), Preference{Bandwidth: 100})
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if v.URI != "low" {
		t.Errorf("selected %q, want lowest-bandwidth fallback 'low'", v.URI)
	}
}

func TestSelectVariantNoPreferencePicksHighestBandwidth(t *testing.T) {
	v, err := SelectVariant(master(), Preference{})
	if err != nil {
		t.Fatalf("SelectVariant failed: %v", err)
	}
	if v.URI != "high" {
		t.Errorf("selected %q, want high", v.URI)
	}
}

func TestSelectVariantEmptyMasterIsNoVariantError(t *testing.T) {
	_, err := SelectVariant(&MasterPlaylist{}, Preference{})
	if err == nil {
		t.Fatal("expected NoVariantError for empty master playlist")
	}
}

func TestSelectVariantIsDeterministic(t *testing.T) {
	m := master()
	first, _ := SelectVariant(m, Preference{ResolutionHeight: 720})
	for i := 0; i < 5; i++ {
		again, _ := SelectVariant(m, Preference{ResolutionHeight: 720})
		if again.URI != first.URI {
			t.Fatalf("SelectVariant is not idempotent: %q vs %q", again.URI, first.URI)
		}
	}
}

package capability

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/erd"
)

type recordingListener struct {
	demoted   []erd.ID
	activated []erd.ID
}

func (l *recordingListener) ElementsDemoted(_ string, ids []erd.ID) {
	l.demoted = append(l.demoted, ids...)
}

func (l *recordingListener) ElementActivated(_ string, id erd.ID) {
	l.activated = append(l.activated, id)
}

func setupNegotiator(t *testing.T) (*Negotiator, *appliance.Store) {
	t.Helper()

	cat, err := LoadCatalog("testdata/appliance_api.json")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	store := appliance.NewStore()
	if err := store.AddDevice("test", "h1"); err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}
	return NewNegotiator(cat, store), store
}

func supported(store *appliance.Store, device string) []erd.ID {
	snap, err := store.Snapshot(device)
	if err != nil {
		return nil
	}
	return snap.SupportedIDs()
}

func commonManifest(version, features uint32) []byte {
	return []byte{
		byte(version >> 24), byte(version >> 16), byte(version >> 8), byte(version),
		byte(features >> 24), byte(features >> 16), byte(features >> 8), byte(features),
	}
}

func TestProcessCommon_V1PrimaryFeature(t *testing.T) {
	n, store := setupNegotiator(t)

	res, err := n.ProcessCommon("test", commonManifest(1, 0x1))
	if err != nil {
		t.Fatalf("ProcessCommon() error = %v", err)
	}

	want := []erd.ID{1, 2, 3, 4, 5, 6, 7, 8, 9}
	if got := supported(store, "test"); !reflect.DeepEqual(got, want) {
		t.Errorf("supported = %v, want %v", got, want)
	}
	if store.IsSupported("test", 0x000A) {
		t.Error("0x000A supported, but its group mask 0x2 was not announced")
	}
	if res.Version != 1 || res.Features != 0x1 || len(res.Activated) != 9 {
		t.Errorf("Result = %+v", res)
	}
}

func TestProcessCommon_Idempotent(t *testing.T) {
	n, store := setupNegotiator(t)
	payload := commonManifest(1, 0x3)

	if _, err := n.ProcessCommon("test", payload); err != nil {
		t.Fatalf("first ProcessCommon() error = %v", err)
	}
	store.Write("test", 0x0004, []byte{0xF0}) //nolint:errcheck // supported after negotiation
	first := supported(store, "test")

	if _, err := n.ProcessCommon("test", payload); err != nil {
		t.Fatalf("second ProcessCommon() error = %v", err)
	}
	if second := supported(store, "test"); !reflect.DeepEqual(first, second) {
		t.Errorf("supported after repeat = %v, want %v", second, first)
	}
	// Re-activated elements wait for the appliance to send their value again.
	if got, _ := store.Read("test", 0x0004); got != nil {
		t.Errorf("payload after repeat = %x, want nil", got)
	}
}

func TestProcessCommon_Renegotiate(t *testing.T) {
	n, store := setupNegotiator(t)
	l := &recordingListener{}
	n.SetListener(l)

	n.ProcessCommon("test", commonManifest(1, 0x1)) //nolint:errcheck // setup
	l.demoted, l.activated = nil, nil

	if _, err := n.ProcessCommon("test", commonManifest(1, 0x2)); err != nil {
		t.Fatalf("ProcessCommon() error = %v", err)
	}

	if got := supported(store, "test"); !reflect.DeepEqual(got, []erd.ID{1, 2, 3, 0x000A}) {
		t.Errorf("supported = %v", got)
	}
	if !reflect.DeepEqual(l.demoted, []erd.ID{1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Errorf("demoted = %v", l.demoted)
	}
	if !reflect.DeepEqual(l.activated, []erd.ID{1, 2, 3, 0x000A}) {
		t.Errorf("activated = %v", l.activated)
	}
}

func TestProcessCommon_UnknownVersion(t *testing.T) {
	n, store := setupNegotiator(t)
	n.ProcessCommon("test", commonManifest(1, 0x1)) //nolint:errcheck // setup
	before := supported(store, "test")

	_, err := n.ProcessCommon("test", commonManifest(2, 0x1))
	if !errors.Is(err, ErrUnknownManifestVersion) {
		t.Fatalf("ProcessCommon() error = %v, want ErrUnknownManifestVersion", err)
	}
	if after := supported(store, "test"); !reflect.DeepEqual(before, after) {
		t.Errorf("state changed on unknown version: %v -> %v", before, after)
	}
}

func TestProcessCommon_Malformed(t *testing.T) {
	n, store := setupNegotiator(t)

	if _, err := n.ProcessCommon("test", []byte{0x00, 0x01}); !errors.Is(err, ErrMalformedManifest) {
		t.Errorf("ProcessCommon() error = %v, want ErrMalformedManifest", err)
	}
	if got := supported(store, "test"); len(got) != 0 {
		t.Errorf("supported = %v, want none", got)
	}
}

func TestProcessCommon_UnknownDevice(t *testing.T) {
	n, _ := setupNegotiator(t)

	if _, err := n.ProcessCommon("ghost", commonManifest(1, 0)); !errors.Is(err, appliance.ErrDeviceNotFound) {
		t.Errorf("ProcessCommon() error = %v, want ErrDeviceNotFound", err)
	}
}

// Each feature bit activates exactly the group carrying that mask.
func TestProcessCommon_MaskGating(t *testing.T) {
	groups := make([]FeatureGroup, 32)
	for bit := 0; bit < 32; bit++ {
		groups[bit] = FeatureGroup{
			Mask:     1 << bit,
			Required: []ElementRef{{ID: erd.ID(0x1000 + bit)}},
		}
	}
	cat := NewCatalog(map[uint32]Version{1: {Required: []ElementRef{{ID: 1}}, Features: groups}}, nil)

	for bit := 0; bit < 32; bit++ {
		store := appliance.NewStore()
		store.AddDevice("d", "h") //nolint:errcheck // fresh store
		n := NewNegotiator(cat, store)

		if _, err := n.ProcessCommon("d", commonManifest(1, 1<<bit)); err != nil {
			t.Fatalf("bit %d: ProcessCommon() error = %v", bit, err)
		}
		want := []erd.ID{1, erd.ID(0x1000 + bit)}
		if got := supported(store, "d"); !reflect.DeepEqual(got, want) {
			t.Errorf("bit %d: supported = %v, want %v", bit, got, want)
		}
	}
}

func TestProcessFeature(t *testing.T) {
	n, store := setupNegotiator(t)
	store.AddUnsupported("test", 0x4047, []byte{0x00, 0x28, 0x00, 0x64}) //nolint:errcheck // setup

	payload := []byte{0x00, 0x05, 0x00, 0x02, 0x00, 0x00, 0x00, 0x04}
	res, err := n.ProcessFeature("test", payload)
	if err != nil {
		t.Fatalf("ProcessFeature() error = %v", err)
	}
	if res.Category != FeatureCategory(5) {
		t.Errorf("Category = %v, want feature:5", res.Category)
	}
	if got := supported(store, "test"); !reflect.DeepEqual(got, []erd.ID{0x4024, 0x4047}) {
		t.Errorf("supported = %v", got)
	}
	if got, _ := store.Read("test", 0x4047); len(got) != 4 || got[1] != 0x28 {
		t.Errorf("cached payload not carried over: %x", got)
	}

	// Common renegotiation leaves feature elements alone.
	n.ProcessCommon("test", commonManifest(1, 0)) //nolint:errcheck // checked elsewhere
	if !store.IsSupported("test", 0x4024) {
		t.Error("common manifest demoted a feature element")
	}
}

func TestProcessFeature_Unknown(t *testing.T) {
	n, store := setupNegotiator(t)

	_, err := n.ProcessFeature("test", []byte{0x00, 0x05, 0x00, 0x09, 0, 0, 0, 0})
	if !errors.Is(err, ErrUnknownFeatureManifest) {
		t.Errorf("ProcessFeature() error = %v, want ErrUnknownFeatureManifest", err)
	}
	if got := supported(store, "test"); len(got) != 0 {
		t.Errorf("supported = %v, want none", got)
	}
}

package capability

import (
	"fmt"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// Logger defines the logging interface used by the Negotiator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ElementStore is the part of the appliance store the negotiator mutates.
type ElementStore interface {
	Demote(name string, ids ...erd.ID) ([]erd.ID, error)
	Activate(name string, id erd.ID) (bool, error)
}

// Listener is told about support changes after they are applied to the store.
type Listener interface {
	ElementsDemoted(device string, ids []erd.ID)
	ElementActivated(device string, id erd.ID)
}

// Result summarises one applied manifest.
type Result struct {
	Category  Category
	Version   uint32
	Features  uint32
	Demoted   []erd.ID
	Activated []erd.ID
}

// Negotiator applies capability manifests to appliances.
//
// Thread Safety:
//   - Callers must serialise calls for the same device; concurrent calls
//     for different devices are safe.
type Negotiator struct {
	catalog  *Catalog
	store    ElementStore
	listener Listener
	logger   Logger
}

// NewNegotiator creates a negotiator over catalog and store.
func NewNegotiator(catalog *Catalog, store ElementStore) *Negotiator {
	return &Negotiator{
		catalog: catalog,
		store:   store,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the negotiator.
func (n *Negotiator) SetLogger(logger Logger) {
	n.logger = logger
}

// SetListener registers the support change listener.
func (n *Negotiator) SetListener(l Listener) {
	n.listener = l
}

// ProcessCommon applies a common manifest payload to device.
//
// Returns:
//   - Result: What changed
//   - error: ErrMalformedManifest or ErrUnknownManifestVersion; the device is untouched
func (n *Negotiator) ProcessCommon(device string, payload []byte) (Result, error) {
	hdr, err := DecodeCommonHeader(payload)
	if err != nil {
		return Result{}, err
	}

	ver, ok := n.catalog.CommonVersion(hdr.Version)
	if !ok {
		return Result{}, fmt.Errorf("%w: version %d", ErrUnknownManifestVersion, hdr.Version)
	}
	return n.apply(device, Common, hdr.Version, hdr.Features, ver)
}

// ProcessFeature applies a feature manifest payload to device.
//
// Returns:
//   - Result: What changed
//   - error: ErrMalformedManifest or ErrUnknownFeatureManifest; the device is untouched
func (n *Negotiator) ProcessFeature(device string, payload []byte) (Result, error) {
	hdr, err := DecodeFeatureHeader(payload)
	if err != nil {
		return Result{}, err
	}

	ver, ok := n.catalog.FeatureVersion(hdr.Type, hdr.Version)
	if !ok {
		return Result{}, fmt.Errorf("%w: type %d version %d", ErrUnknownFeatureManifest, hdr.Type, hdr.Version)
	}
	return n.apply(device, FeatureCategory(hdr.Type), uint32(hdr.Version), hdr.Features, ver)
}

// apply demotes the category then activates the announced element set.
func (n *Negotiator) apply(device string, cat Category, version, features uint32, ver Version) (Result, error) {
	res := Result{Category: cat, Version: version, Features: features}

	demoted, err := n.moveAllToUnsupported(device, cat)
	if err != nil {
		return res, err
	}
	res.Demoted = demoted
	if n.listener != nil && len(demoted) > 0 {
		n.listener.ElementsDemoted(device, demoted)
	}

	for _, id := range ver.Elements(features) {
		activated, err := n.store.Activate(device, id)
		if err != nil {
			return res, fmt.Errorf("activating %s: %w", id, err)
		}
		if !activated {
			continue
		}
		res.Activated = append(res.Activated, id)
		if n.listener != nil {
			n.listener.ElementActivated(device, id)
		}
	}

	n.logger.Info("manifest applied",
		"device", device,
		"category", cat.String(),
		"version", version,
		"features", fmt.Sprintf("0x%08x", features),
		"demoted", len(res.Demoted),
		"activated", len(res.Activated),
	)
	return res, nil
}

// moveAllToUnsupported demotes every supported element belonging to cat.
func (n *Negotiator) moveAllToUnsupported(device string, cat Category) ([]erd.ID, error) {
	demoted, err := n.store.Demote(device, n.catalog.CategoryElements(cat)...)
	if err != nil {
		return nil, fmt.Errorf("demoting %s elements: %w", cat, err)
	}
	return demoted, nil
}

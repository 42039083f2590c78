package gea

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gea-bridge/internal/appliance"
	"github.com/nerrad567/gea-bridge/internal/capability"
	"github.com/nerrad567/gea-bridge/internal/discovery"
	"github.com/nerrad567/gea-bridge/internal/entity"
	"github.com/nerrad567/gea-bridge/internal/erd"
	"github.com/nerrad567/gea-bridge/internal/meta"
)

const pipelineAPI = `{
  "common": {"versions": {"1": {
    "required": [{"erd": "0x0001", "name": "Setpoint", "length": 1}],
    "features": [{"mask": "0x00000001", "name": "Limits", "required": [
      {"erd": "0x0004", "name": "Setpoint Min", "length": 1}
    ]}]
  }}},
  "featureApis": {}
}`

const pipelineDefinitions = `{"erds":[
 {"name":"Setpoint","id":"0x0001","operations":["read","write"],"data":[{"name":"Setpoint","type":"u8","offset":0,"size":1}]},
 {"name":"Setpoint Min","id":"0x0004","operations":["read"],"data":[{"name":"Setpoint Min","type":"u8","offset":0,"size":1}]}
]}`

type pipeline struct {
	bridge   *Bridge
	client   *MockMQTTClient
	store    *appliance.Store
	entities *entity.Registry
	history  *recordingHistory
}

// newPipeline wires the bridge to a real router the way main does.
func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	defs, err := erd.ParseDefinitions([]byte(pipelineDefinitions), false)
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := capability.ParseCatalog([]byte(pipelineAPI), false)
	if err != nil {
		t.Fatal(err)
	}
	table := meta.Table{
		0x0004: {{Field: "Setpoint Min", Kind: meta.KindSetMin, Targets: []meta.Target{{ERD: 0x0001, Field: "Setpoint"}}}},
	}

	store := appliance.NewStore()
	coord := meta.NewCoordinator(table, defs, store)
	entities := entity.NewRegistry(store, defs)
	entities.SetTransformApplier(coord)
	coord.SetPresenter(entities)

	router := discovery.New(store, catalog, coord)
	router.AddListener(entities)

	history := &recordingHistory{}
	b, client := newTestBridge(t, router, history)
	store.SetPublisher(b)
	store.SetWriteObserver(b.RecordWrite)

	if err := b.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return &pipeline{bridge: b, client: client, store: store, entities: entities, history: history}
}

func TestPipeline_DiscoveryToWrite(t *testing.T) {
	p := newPipeline(t)

	p.client.SimulateMessage("geappliances/oven", nil)
	p.client.SimulateMessage("geappliances/oven/erd/0x0001/value", []byte{50})
	p.client.SimulateMessage("geappliances/oven/erd/0x0004/value", []byte{40})
	p.client.SimulateMessage("geappliances/oven/erd/0x0092/value",
		[]byte{0, 0, 0, 1, 0, 0, 0, 1})

	if !p.store.IsSupported("oven", 0x0001) || !p.store.IsSupported("oven", 0x0004) {
		t.Fatal("manifest did not activate announced elements")
	}

	e, err := p.entities.Get("oven_0001_Setpoint")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	st := e.State()
	if st.Min == nil || *st.Min != 40 {
		t.Errorf("Min = %v, want 40", st.Min)
	}
	if st.Value != int64(50) {
		t.Errorf("Value = %v (%T), want 50", st.Value, st.Value)
	}

	if err := p.entities.Set("oven_0001_Setpoint", 45); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	pubs := p.client.GetPublished()
	if len(pubs) != 1 || pubs[0].Topic != "geappliances/oven/erd/0x0001/write" || pubs[0].Payload[0] != 45 {
		t.Fatalf("published = %+v", pubs)
	}

	if err := p.entities.Set("oven_0001_Setpoint", 30); !errors.Is(err, entity.ErrOutOfRange) {
		t.Errorf("Set(30) error = %v, want ErrOutOfRange", err)
	}
	if len(p.client.GetPublished()) != 1 {
		t.Error("out-of-range write was published")
	}
}

func TestPipeline_HistoryRecordsSupportedWritesOnly(t *testing.T) {
	p := newPipeline(t)

	// Unsupported until the manifest arrives.
	p.client.SimulateMessage("geappliances/oven/erd/0x0001/value", []byte{50})
	if len(p.history.points) != 0 {
		t.Fatalf("history = %+v, want nothing before activation", p.history.points)
	}

	p.client.SimulateMessage("geappliances/oven/erd/0x0092/value",
		[]byte{0, 0, 0, 1, 0, 0, 0, 0})
	p.client.SimulateMessage("geappliances/oven/erd/0x0001/value", []byte{51})

	if len(p.history.points) != 1 || p.history.points[0].erd != 0x0001 {
		t.Errorf("history = %+v, want one 0x0001 point", p.history.points)
	}
}

func TestPipeline_MalformedTopicCounted(t *testing.T) {
	p := newPipeline(t)

	p.client.SimulateMessage("geappliances/oven/erd", []byte{1})

	if p.store.DeviceExists("oven") {
		t.Error("malformed topic created a device")
	}
	if m := p.bridge.GetMetrics(); m.RouteErrors != 1 {
		t.Errorf("RouteErrors = %d, want 1", m.RouteErrors)
	}
}

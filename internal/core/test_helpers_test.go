package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lejeunel/image-db-app/internal/blob"
)

type captureLogger struct {
	mu    sync.Mutex
	calls []string
}

func (c *captureLogger) add(level, msg string) {
	c.mu.Lock()
	c.calls = append(c.calls, level+":"+msg)
	c.mu.Unlock()
}

func (c *captureLogger) Debug(msg string, _ ...any) { c.add("d", msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.add("i", msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.add("w", msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.add("e", msg) }

func (c *captureLogger) has(entry string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call == entry {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type mapCache struct {
	data   map[string][]byte
	gets   int
	getErr error
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, data []byte) error {
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = data
	return nil
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	svc     *Service
	objects *blob.MemoryStore
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	objects := blob.NewMemory("mem")
	reader := blob.NewReader([]string{"mem"}, objects)
	opts = append([]Option{WithObjectReader(reader)}, opts...)
	return &harness{
		t:       t,
		ctx:     context.Background(),
		svc:     NewInMemoryService(NewDefaultRulesEngine(), opts...),
		objects: objects,
	}
}

// put stores empty objects under bucket b.
func (h *harness) put(keys ...string) {
	for _, k := range keys {
		h.objects.Put("b", k, []byte("img:"+k), "")
	}
}

// gridKeys returns one file name per well of rows x 1..cols under prefix.
func gridKeys(prefix, rows string, cols int) []string {
	var out []string
	for _, r := range rows {
		for c := 1; c <= cols; c++ {
			out = append(out, fmt.Sprintf("%s%c%02d_s1_w1.tif", prefix, r, c))
		}
	}
	return out
}

func (h *harness) plate(name string) Plate {
	h.t.Helper()
	p, _, err := h.svc.CreatePlate(h.ctx, Plate{Name: name})
	if err != nil {
		h.t.Fatalf("create plate %s: %v", name, err)
	}
	return p
}

func (h *harness) ingest(plateID, prefix string) Ingestion {
	h.t.Helper()
	ing, _, err := h.svc.CreateTimePoint(h.ctx, TimePoint{PlateID: plateID, URI: "mem://b/" + prefix})
	if err != nil {
		h.t.Fatalf("ingest %s: %v", prefix, err)
	}
	return ing
}

type annotations struct {
	cell     Cell
	compound CompoundView
	stack    Stack
}

func (h *harness) annotations() annotations {
	h.t.Helper()
	var a annotations
	var err error
	if _, _, err = h.svc.CreateModality(h.ctx, Modality{Name: "DAPI", Target: "DNA"}); err != nil {
		h.t.Fatalf("modality: %v", err)
	}
	if a.stack, _, err = h.svc.CreateStack(h.ctx, StackInput{Name: "std", Modalities: []string{"DAPI"}, Channels: []int{1}}); err != nil {
		h.t.Fatalf("stack: %v", err)
	}
	if a.cell, _, err = h.svc.CreateCell(h.ctx, Cell{Name: "HeLa", Code: "CCL-2"}); err != nil {
		h.t.Fatalf("cell: %v", err)
	}
	if a.compound, _, err = h.svc.CreateCompound(h.ctx, Compound{Name: "DMSO"}); err != nil {
		h.t.Fatalf("compound: %v", err)
	}
	return a
}

func (a annotations) section(plateID, rowStart, rowEnd string, colStart, colEnd int) Section {
	return Section{
		PlateID: plateID, CellID: a.cell.ID, CompoundID: a.compound.ID, StackID: a.stack.ID,
		RowStart: rowStart, RowEnd: rowEnd, ColStart: colStart, ColEnd: colEnd,
	}
}

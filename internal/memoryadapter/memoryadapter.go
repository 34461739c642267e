// Package memoryadapter is a thin, standalone reference implementation
// of the tool surface's store_memory/retrieve_memory operations. It is
// deliberately isolated from the Pipeline Orchestrator, Thinking Engine,
// and Token Optimizer/Ephemeral Cache: none of those subsystems import
// it, matching the spec's note that persistent cross-session memory is
// an optional surface rather than a dependency of the core engine.
//
// Grounded on the teacher's internal/store/worker.go single-goroutine,
// channel-request pattern, narrowed to only the vector upsert/search
// operations that store_memory/retrieve_memory need.
package memoryadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/harunnryd/cogproc/internal/concurrency"
)

type operation int

const (
	opStore operation = iota
	opRetrieve
)

type storePayload struct {
	Collection string
	ID         string
	Embedding  []float32
	Content    string
	Metadata   map[string]string
}

type retrievePayload struct {
	Collection string
	Embedding  []float32
	Limit      int
}

type request struct {
	op       operation
	payload  interface{}
	result   chan error
	response chan interface{}
}

// Item is one retrieved memory record (spec §6 retrieve_memory result).
type Item struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Adapter serializes every vector-store operation through a single
// goroutine so the underlying chromem-go collections are never touched
// concurrently, mirroring the teacher's store worker idiom.
type Adapter struct {
	db    *chromem.DB
	inbox chan request
	quit  chan struct{}
	wg    sync.WaitGroup
}

// New opens (or creates) a persistent chromem-go database rooted at
// persistPath and starts its serializing worker loop.
func New(persistPath string) (*Adapter, error) {
	db, err := chromem.NewPersistentDB(persistPath, false)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	a := &Adapter{
		db:    db,
		inbox: make(chan request, 32),
		quit:  make(chan struct{}),
	}
	a.wg.Add(1)
	concurrency.SafeGo(a.loop, nil)
	return a, nil
}

func (a *Adapter) loop() {
	defer a.wg.Done()
	for {
		select {
		case req := <-a.inbox:
			a.handle(req)
		case <-a.quit:
			return
		}
	}
}

func (a *Adapter) handle(req request) {
	switch req.op {
	case opStore:
		p := req.payload.(storePayload)
		req.result <- a.store(p)
	case opRetrieve:
		p := req.payload.(retrievePayload)
		items, err := a.retrieve(p)
		if req.response != nil {
			req.response <- items
		}
		req.result <- err
	}
}

func (a *Adapter) store(p storePayload) error {
	col, err := a.db.GetOrCreateCollection(p.Collection, nil, nil)
	if err != nil {
		return err
	}
	return col.AddDocuments(context.Background(), []chromem.Document{
		{ID: p.ID, Embedding: p.Embedding, Content: p.Content, Metadata: p.Metadata},
	}, 1)
}

func (a *Adapter) retrieve(p retrievePayload) ([]Item, error) {
	col := a.db.GetCollection(p.Collection, nil)
	if col == nil {
		return nil, nil
	}
	docs, err := col.QueryEmbedding(context.Background(), p.Embedding, p.Limit, nil, nil)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, Item{ID: d.ID, Score: d.Similarity, Content: d.Content, Metadata: d.Metadata})
	}
	return items, nil
}

// StoreMemory upserts one embedded memory record into collection (spec
// §6 store_memory).
func (a *Adapter) StoreMemory(ctx context.Context, collection, id string, embedding []float32, content string, metadata map[string]string) error {
	res := make(chan error, 1)
	req := request{
		op:      opStore,
		payload: storePayload{Collection: collection, ID: id, Embedding: embedding, Content: content, Metadata: metadata},
		result:  res,
	}
	select {
	case a.inbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetrieveMemory returns the limit nearest records to embedding in
// collection, or an empty slice if the collection has never been
// written to (spec §6 retrieve_memory).
func (a *Adapter) RetrieveMemory(ctx context.Context, collection string, embedding []float32, limit int) ([]Item, error) {
	res := make(chan error, 1)
	resp := make(chan interface{}, 1)
	req := request{
		op:       opRetrieve,
		payload:  retrievePayload{Collection: collection, Embedding: embedding, Limit: limit},
		result:   res,
		response: resp,
	}
	select {
	case a.inbox <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var items []Item
	select {
	case v := <-resp:
		items, _ = v.([]Item)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case err := <-res:
		return items, err
	case <-ctx.Done():
		return items, ctx.Err()
	}
}

// Stop halts the worker loop. It does not close the underlying
// chromem-go database, which has no explicit close operation.
func (a *Adapter) Stop() {
	close(a.quit)
	a.wg.Wait()
}

// Package testserver provides an in-memory catalog service and a fully
// wired local stack for end-to-end tests.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// Default credentials accepted by a Catalog.
const (
	DefaultTenant = "diku"
	DefaultToken  = "catalog-token"
)

// Call is one request seen by the fake catalog.
type Call struct {
	Method string
	Path   string
	Query  string
}

type collection struct {
	key     string
	paths   []string
	records map[string]map[string]any
	order   []string
}

// Catalog is an in-memory catalog service. It serves the storage and
// inventory endpoints the resolver and classifier use, type lists, and
// full-document mutations.
type Catalog struct {
	Server *httptest.Server
	Tenant string
	Token  string

	mu     sync.Mutex
	kinds  map[record.RecordKind]*collection
	types  map[record.TypeKind]*collection
	calls  []Call
	faults map[string][]int
}

// NewCatalog starts a fake catalog accepting DefaultTenant and DefaultToken.
func NewCatalog(t *testing.T) *Catalog {
	t.Helper()

	c := &Catalog{
		Tenant: DefaultTenant,
		Token:  DefaultToken,
		kinds: map[record.RecordKind]*collection{
			record.KindItem:     newCollection("items", "/item-storage/items", "/inventory/items"),
			record.KindInstance: newCollection("instances", "/instance-storage/instances", "/inventory/instances"),
			record.KindHoldings: newCollection("holdingsRecords", "/holdings-storage/holdings"),
			record.KindLoan:     newCollection("loans", "/circulation/loans"),
			record.KindUser:     newCollection("users", "/users"),
		},
		types:  make(map[record.TypeKind]*collection, len(record.TypeKinds)),
		faults: make(map[string][]int),
	}
	for _, kind := range record.TypeKinds {
		c.types[kind] = newCollection(typeListKey(kind), kind.Path())
	}

	c.Server = httptest.NewServer(c.routes())
	t.Cleanup(c.Server.Close)
	return c
}

func newCollection(key string, paths ...string) *collection {
	return &collection{key: key, paths: paths, records: make(map[string]map[string]any)}
}

// typeListKey mimics the service's habit of naming list keys after the
// category, e.g. loantypes.
func typeListKey(kind record.TypeKind) string {
	return strings.ReplaceAll(string(kind), "_", "")
}

// URL is the base URL to configure the catalog client with.
func (c *Catalog) URL() string { return c.Server.URL }

func (c *Catalog) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(c.logCalls, c.requireCredentials, c.injectFaults)

	all := make([]*collection, 0, len(c.kinds)+len(c.types))
	for _, col := range c.kinds {
		all = append(all, col)
	}
	for _, col := range c.types {
		all = append(all, col)
	}
	for _, col := range all {
		for _, path := range col.paths {
			r.Get(path, c.list(col, path))
			r.Get(path+"/{id}", c.get(col, path))
			r.Post(path, c.create(col, path))
			r.Put(path+"/{id}", c.update(col))
			r.Delete(path+"/{id}", c.remove(col))
		}
	}
	return r
}

func (c *Catalog) logCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.calls = append(c.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query().Get("query")})
		c.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (c *Catalog) requireCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-okapi-tenant") != c.Tenant || r.Header.Get("x-okapi-token") != c.Token {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Catalog) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		queue := c.faults[r.URL.Path]
		status := 0
		if len(queue) > 0 {
			status, c.faults[r.URL.Path] = queue[0], queue[1:]
		}
		c.mu.Unlock()
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes the next times requests to path answer with status.
func (c *Catalog) Fail(path string, status, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for range times {
		c.faults[path] = append(c.faults[path], status)
	}
}

// Calls returns the requests seen so far.
func (c *Catalog) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallCount counts requests with the given method and path.
func (c *Catalog) CallCount(method, path string) int {
	n := 0
	for _, call := range c.Calls() {
		if call.Method == method && call.Path == path {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (c *Catalog) ResetCalls() {
	c.mu.Lock()
	c.calls = nil
	c.mu.Unlock()
}

// Add stores records of kind. Records without an id get a random one.
func (c *Catalog) Add(kind record.RecordKind, docs ...map[string]any) {
	col := c.kinds[kind]
	if col == nil {
		panic(fmt.Sprintf("testserver: no collection for %s", kind))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		col.put(doc)
	}
}

// AddTypes stores entries of a type list.
func (c *Catalog) AddTypes(kind record.TypeKind, docs ...map[string]any) {
	col := c.types[kind]
	if col == nil {
		panic(fmt.Sprintf("testserver: no type list %s", kind))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range docs {
		col.put(doc)
	}
}

// Get returns a copy of the stored record, if present.
func (c *Catalog) Get(kind record.RecordKind, id string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.kinds[kind].records[id]
	if !ok {
		return nil, false
	}
	return copyDoc(doc), true
}

func (col *collection) put(doc map[string]any) string {
	doc = copyDoc(doc)
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["id"] = id
	}
	if _, exists := col.records[id]; !exists {
		col.order = append(col.order, id)
	}
	col.records[id] = doc
	return id
}

func (col *collection) drop(id string) bool {
	if _, ok := col.records[id]; !ok {
		return false
	}
	delete(col.records, id)
	for i, v := range col.order {
		if v == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Catalog) list(col *collection, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		match, err := parseQuery(q.Get("query"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit, err := intParam(q.Get("limit"), 10)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		offset, err := intParam(q.Get("offset"), 0)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c.mu.Lock()
		var hits []map[string]any
		for _, id := range col.order {
			if doc := col.records[id]; match(doc) {
				hits = append(hits, present(path, copyDoc(doc)))
			}
		}
		c.mu.Unlock()

		page := []map[string]any{}
		if offset < len(hits) {
			page = hits[offset:min(len(hits), offset+limit)]
		}
		writeJSON(w, http.StatusOK, map[string]any{col.key: page, "totalRecords": len(hits)})
	}
}

func (c *Catalog) get(col *collection, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		doc, ok := col.records[chi.URLParam(r, "id")]
		if ok {
			doc = present(path, copyDoc(doc))
		}
		c.mu.Unlock()
		if !ok {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func (c *Catalog) create(col *collection, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		if id, _ := doc["id"].(string); id != "" {
			if _, exists := col.records[id]; exists {
				c.mu.Unlock()
				http.Error(w, "id already exists", http.StatusUnprocessableEntity)
				return
			}
		}
		id := col.put(doc)
		stored := copyDoc(col.records[id])
		c.mu.Unlock()

		w.Header().Set("Location", path+"/"+id)
		writeJSON(w, http.StatusCreated, stored)
	}
}

func (c *Catalog) update(col *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		if bodyID, _ := doc["id"].(string); bodyID != "" && bodyID != id {
			http.Error(w, "id mismatch", http.StatusUnprocessableEntity)
			return
		}
		doc["id"] = id

		c.mu.Lock()
		_, exists := col.records[id]
		if exists {
			col.put(doc)
		}
		c.mu.Unlock()
		if !exists {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *Catalog) remove(col *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		ok := col.drop(chi.URLParam(r, "id"))
		c.mu.Unlock()
		if !ok {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// present shapes a stored document for path. Inventory endpoints answer with
// the computed view, which expands type references such as materialTypeId
// into objects and drops the raw id.
func present(path string, doc map[string]any) map[string]any {
	if !strings.HasPrefix(path, "/inventory/") {
		return doc
	}
	for key, v := range doc {
		name, ok := strings.CutSuffix(key, "TypeId")
		if !ok {
			continue
		}
		delete(doc, key)
		doc[name+"Type"] = map[string]any{"id": v}
	}
	return doc
}

// parseQuery understands the two CQL shapes the client sends: an exact
// field=="value" match and cql.allRecords=1.
func parseQuery(cql string) (func(map[string]any) bool, error) {
	cql = strings.TrimSpace(cql)
	if cql == "" || cql == "cql.allRecords=1" {
		return func(map[string]any) bool { return true }, nil
	}
	field, quoted, ok := strings.Cut(cql, "==")
	if !ok || len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
		return nil, fmt.Errorf("unsupported query %q", cql)
	}
	want := unescapeCQL(quoted[1 : len(quoted)-1])
	field = strings.TrimSpace(field)
	return func(doc map[string]any) bool {
		v, ok := lookup(doc, field)
		return ok && fmt.Sprint(v) == want
	}, nil
}

func unescapeCQL(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid paging value %q", v)
	}
	return n, nil
}

func copyDoc(doc map[string]any) map[string]any {
	data, _ := json.Marshal(doc)
	var out map[string]any
	_ = json.Unmarshal(data, &out)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

//go:build cgo

package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store on an embedded, in-memory KuzuDB instance.
// It requires CGO because go-kuzu wraps KuzuDB's C library. Nothing is
// written to disk. Queries on the single connection are serialized.
type KuzuStore struct {
	mu   sync.Mutex
	db   *kuzu.Database
	conn *kuzu.Connection
}

var errKuzuClosed = errors.New("kuzu: store closed")

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore opens an empty in-memory database.
func NewKuzuStore() (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(":memory:", kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the connection and the database.
func (s *KuzuStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema ----------

var nodeTables = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(path STRING, size INT64, entrypoint BOOLEAN, PRIMARY KEY(path))`,
	`CREATE NODE TABLE IF NOT EXISTS Package(name STRING, kind STRING, PRIMARY KEY(name))`,
	`CREATE NODE TABLE IF NOT EXISTS Cluster(name STRING, cohesion DOUBLE, PRIMARY KEY(name))`,
}

// relTable describes one relationship table. Every relationship starts at a
// File; to and key name the target table and its primary key.
type relTable struct {
	name string
	kind EdgeKind
	to   string
	key  string
}

var relTables = []relTable{
	{name: "IMPORTS", kind: EdgeKindImports, to: "File", key: "path"},
	{name: "USES", kind: EdgeKindUses, to: "Package", key: "name"},
	{name: "BELONGS_TO", kind: EdgeKindBelongs, to: "Cluster", key: "name"},
}

func (r relTable) ddl() string {
	return fmt.Sprintf("CREATE REL TABLE IF NOT EXISTS %s(FROM File TO %s)", r.name, r.to)
}

func (r relTable) insert() string {
	return fmt.Sprintf("MATCH (a:File {path: $src}), (b:%s {%s: $dst}) CREATE (a)-[:%s]->(b)", r.to, r.key, r.name)
}

func (r relTable) list() string {
	return fmt.Sprintf("MATCH (a:File)-[:%s]->(b:%s) RETURN a.path, b.%s", r.name, r.to, r.key)
}

func relTableFor(kind EdgeKind) (relTable, error) {
	for _, r := range relTables {
		if r.kind == kind {
			return r, nil
		}
	}
	return relTable{}, fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
}

// InitSchema creates the node tables, then the relationship tables. It is
// idempotent.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	stmts := append([]string(nil), nodeTables...)
	for _, r := range relTables {
		stmts = append(stmts, r.ddl())
	}
	for _, stmt := range stmts {
		if _, err := s.query(stmt, nil); err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
	}
	return nil
}

// ---------- Writes ----------

// AddFile inserts or updates a File node.
func (s *KuzuStore) AddFile(_ context.Context, node FileNode) error {
	_, err := s.query("MERGE (f:File {path: $path}) SET f.size = $size, f.entrypoint = $entry",
		map[string]any{"path": node.Path, "size": node.Size, "entry": node.Entrypoint})
	return err
}

// AddPackage inserts or updates a Package node.
func (s *KuzuStore) AddPackage(_ context.Context, node PackageNode) error {
	_, err := s.query("MERGE (p:Package {name: $name}) SET p.kind = $kind",
		map[string]any{"name": node.Name, "kind": string(node.Kind)})
	return err
}

// AddCluster inserts a Cluster node. Membership is stored as BELONGS edges.
func (s *KuzuStore) AddCluster(_ context.Context, node ClusterNode) error {
	_, err := s.query("CREATE (c:Cluster {name: $name, cohesion: $cohesion})",
		map[string]any{"name": node.Name, "cohesion": node.CohesionScore})
	return err
}

// AddEdge links two existing nodes in the table matching edge.Kind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	r, err := relTableFor(edge.Kind)
	if err != nil {
		return err
	}
	_, err = s.query(r.insert(), map[string]any{"src": edge.SourceID, "dst": edge.TargetID})
	return err
}

// ---------- Reads ----------

const fileColumns = "f.path, f.size, f.entrypoint"

func rowToFile(r []any) FileNode {
	return FileNode{Path: col[string](r[0]), Size: col[int64](r[1]), Entrypoint: col[bool](r[2])}
}

// GetFile returns the File stored under path, or nil.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query("MATCH (f:File {path: $path}) RETURN "+fileColumns, map[string]any{"path": path})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	f := rowToFile(rows[0])
	return &f, nil
}

// QueryFiles returns files whose path contains query (case-insensitive),
// sorted by path. A limit <= 0 returns all matches.
func (s *KuzuStore) QueryFiles(_ context.Context, query string, limit int) ([]FileNode, error) {
	cypher := "MATCH (f:File) WHERE lower(f.path) CONTAINS lower($q) RETURN " + fileColumns + " ORDER BY f.path"
	if limit > 0 {
		cypher += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.query(cypher, map[string]any{"q": query})
	if err != nil {
		return nil, err
	}
	out := make([]FileNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToFile(r))
	}
	return out, nil
}

// PackageUsers returns the files using the named package, sorted by path.
func (s *KuzuStore) PackageUsers(_ context.Context, name string) ([]string, error) {
	return s.paths("MATCH (f:File)-[:USES]->(:Package {name: $name}) RETURN DISTINCT f.path ORDER BY f.path",
		map[string]any{"name": name})
}

// ---------- Traversal ----------

func (s *KuzuStore) GetDependencies(_ context.Context, nodeID string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	next, err := s.hop(dir)
	if err != nil {
		return nil, err
	}
	return walkChains(nodeID, maxDepth, next)
}

// hop returns a one-step IMPORTS lookup in direction dir. Neighbors come
// back sorted by path.
func (s *KuzuStore) hop(dir Direction) (neighborFunc, error) {
	var cypher string
	switch dir {
	case DirectionUpstream:
		cypher = "MATCH (:File {path: $path})-[:IMPORTS]->(f:File) RETURN f.path ORDER BY f.path"
	case DirectionDownstream:
		cypher = "MATCH (f:File)-[:IMPORTS]->(:File {path: $path}) RETURN f.path ORDER BY f.path"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	return func(id string) ([]string, error) {
		return s.paths(cypher, map[string]any{"path": id})
	}, nil
}

func (s *KuzuStore) AssessImpact(_ context.Context, changedFiles []string) (*ImpactResult, error) {
	total, err := s.count("MATCH (n:File) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	importers, err := s.hop(DirectionDownstream)
	if err != nil {
		return nil, err
	}
	return impactOf(changedFiles, importers, total)
}

// GetClusters returns every cluster with its members, sorted by name.
func (s *KuzuStore) GetClusters(_ context.Context) ([]ClusterNode, error) {
	rows, err := s.query(`MATCH (f:File)-[:BELONGS_TO]->(c:Cluster)
		RETURN c.name, c.cohesion, f.path ORDER BY c.name, f.path`, nil)
	if err != nil {
		return nil, err
	}
	out := []ClusterNode{}
	for _, r := range rows {
		name := col[string](r[0])
		if n := len(out); n == 0 || out[n-1].Name != name {
			out = append(out, ClusterNode{Name: name, CohesionScore: col[float64](r[1])})
		}
		last := &out[len(out)-1]
		last.Members = append(last.Members, col[string](r[2]))
	}
	return out, nil
}

// GetAllEdges returns the edges of every relationship table.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	var edges []Edge
	for _, r := range relTables {
		rows, err := s.query(r.list(), nil)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			edges = append(edges, Edge{SourceID: col[string](row[0]), TargetID: col[string](row[1]), Kind: r.kind})
		}
	}
	return edges, nil
}

func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	var st GraphStats
	for _, c := range []struct {
		dst    *int
		cypher string
	}{
		{&st.FileCount, "MATCH (n:File) RETURN count(n)"},
		{&st.PackageCount, "MATCH (n:Package) RETURN count(n)"},
		{&st.ClusterCount, "MATCH (n:Cluster) RETURN count(n)"},
		{&st.EdgeCount, "MATCH ()-[r]->() RETURN count(r)"},
	} {
		n, err := s.count(c.cypher)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return &st, nil
}

// ---------- Helpers ----------

// query runs a Cypher statement, prepared when it has parameters, and
// returns every row as a slice of column values.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, errKuzuClosed
	}

	var (
		res *kuzu.QueryResult
		err error
	)
	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		if stmt, err = s.conn.Prepare(cypher); err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// paths runs a single-column query of file paths.
func (s *KuzuStore) paths(cypher string, params map[string]any) ([]string, error) {
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, col[string](r[0]))
	}
	return out, nil
}

// count runs a query returning one count(...) value.
func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil || len(rows) == 0 || len(rows[0]) == 0 {
		return 0, err
	}
	return int(col[int64](rows[0][0])), nil
}

// col converts a KuzuDB column value to T, or the zero value. KuzuDB returns
// INT64 and count() as int64, DOUBLE as float64.
func col[T any](v any) T {
	t, _ := v.(T)
	return t
}

package docstore

import (
	"fmt"
	"strings"
)

// CollRef addresses a collection by its slash separated path,
// e.g. "courses/c1/progress".
type CollRef struct {
	Path string
}

// Ref addresses a single document inside a collection.
type Ref struct {
	CollPath string
	ID       string
}

func Collection(segments ...string) CollRef {
	return CollRef{Path: strings.Join(segments, "/")}
}

func (c CollRef) Doc(id string) Ref {
	return Ref{CollPath: c.Path, ID: id}
}

// Query starts a query over the documents directly inside the collection.
func (c CollRef) Query() Query {
	return Query{source: c.Path}
}

// Group is the last segment of the collection path. Collection-group
// queries match every collection sharing this name.
func (c CollRef) Group() string {
	idx := strings.LastIndex(c.Path, "/")
	return c.Path[idx+1:]
}

func (r Ref) Path() string {
	return r.CollPath + "/" + r.ID
}

// Collection returns a sub-collection of the document.
func (r Ref) Collection(name string) CollRef {
	return CollRef{Path: r.Path() + "/" + name}
}

func (r Ref) Group() string {
	return CollRef{Path: r.CollPath}.Group()
}

func (r Ref) String() string {
	return r.Path()
}

func (r Ref) validate() error {
	if r.CollPath == "" || r.ID == "" {
		return fmt.Errorf("invalid document ref %q", r.Path())
	}
	if strings.Contains(r.ID, "/") {
		return fmt.Errorf("document id %q must not contain '/'", r.ID)
	}
	return nil
}

// Package communitycar embeds the CommunityCar platform schema: identity,
// accounts, content, media, guides, vehicle reviews, Q&A, messaging,
// notifications and security tables.
package communitycar

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/communitycar/schemagraph/internal/schema"
)

//go:embed communitycar.yaml
var source []byte

var (
	once    sync.Once
	graph   *schema.Graph
	loadErr error
)

// Graph returns the validated CommunityCar graph. The embedded file is parsed
// once; later calls return the same immutable graph.
func Graph() (*schema.Graph, error) {
	once.Do(func() {
		graph, loadErr = schema.Load(bytes.NewReader(source))
		if loadErr != nil {
			loadErr = fmt.Errorf("built-in communitycar schema: %w", loadErr)
		}
	})
	return graph, loadErr
}

// Source returns a copy of the embedded schema file.
func Source() []byte {
	return bytes.Clone(source)
}

package sourcemap

// Composition with an upstream map: when the input CSS was itself generated
// by a preprocessor that handed us a source map, every position we are about
// to emit is first pushed through that map so the final map points at the
// pre-preprocessor sources.

import (
	"fmt"
	"strings"

	gosourcemap "github.com/go-sourcemap/sourcemap"
	"github.com/tidwall/gjson"
)

// UpstreamMap wraps a decoded upstream Source Map v3 object.
type UpstreamMap struct {
	// File is the upstream map's "file" key.
	File string

	// Sources is the upstream map's source list, sourceRoot applied, in the
	// upstream order. The final map references this list.
	Sources []string

	// SourcesContent is aligned with Sources; empty when the upstream map
	// carried none.
	SourcesContent []string

	consumer *gosourcemap.Consumer
	indexOf  map[string]int32
}

// ParseUpstream decodes upstream map JSON. The consumer handles the VLQ
// mappings; the source list and contents are pulled out of the JSON
// directly since the consumer does not expose them.
func ParseUpstream(data []byte) (*UpstreamMap, error) {
	consumer, err := gosourcemap.Parse("", data)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream source map: %w", err)
	}

	text := string(data)
	root := gjson.Get(text, "sourceRoot").String()
	up := &UpstreamMap{
		File:     gjson.Get(text, "file").String(),
		consumer: consumer,
		indexOf:  make(map[string]int32),
	}

	for i, source := range gjson.Get(text, "sources").Array() {
		resolved := joinSourceRoot(root, source.String())
		up.Sources = append(up.Sources, resolved)
		// Index both spellings so consumer results match no matter how it
		// resolved the root.
		up.indexOf[resolved] = int32(i)
		if _, seen := up.indexOf[source.String()]; !seen {
			up.indexOf[source.String()] = int32(i)
		}
	}

	if contents := gjson.Get(text, "sourcesContent").Array(); len(contents) > 0 {
		for _, content := range contents {
			up.SourcesContent = append(up.SourcesContent, content.String())
		}
	}

	return up, nil
}

func joinSourceRoot(root string, source string) string {
	if root == "" {
		return source
	}
	if strings.HasSuffix(root, "/") {
		return root + source
	}
	return root + "/" + source
}

// Resolve pushes a position in the intermediate CSS (1-based line, 0-based
// column) through the upstream map. It returns the upstream source index
// plus the original position in the same convention. ok is false when the
// upstream map has no mapping there; such positions are skipped rather than
// mapped wrongly.
func (up *UpstreamMap) Resolve(line int, column int) (sourceIndex int32, originalLine int, originalColumn int, ok bool) {
	source, _, origLine, origColumn, found := up.consumer.Source(line, column)
	if !found || source == "" {
		return 0, 0, 0, false
	}
	index, known := up.indexOf[source]
	if !known {
		// The consumer resolved to a spelling we did not predict. Keep the
		// map consistent by appending rather than guessing.
		index = int32(len(up.Sources))
		up.Sources = append(up.Sources, source)
		up.indexOf[source] = index
	}
	return index, origLine, origColumn, true
}

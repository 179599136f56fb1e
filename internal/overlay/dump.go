package overlay

import (
	"io"
	"strings"
	"text/template"
)

const pageContent = `
{{- $d := . -}}
==========
Node State

Table info:  size={{ $d.Size }} base={{ $d.Base }}
Node ID:     {{ $d.Self.ID.Digits $d.Size $d.Base }} ({{ $d.Self.ID }})
Address:     {{ $d.Self.Addr }}
Phase:       {{ $d.Phase }}

Predecessors: {{ range $item := $d.Predecessors }}
  - {{ $item.ID.Digits $d.Size $d.Base }} ({{ $item.Addr }})
{{ end }}
Successors: {{ range $item := $d.Successors }}
  - {{ $item.ID.Digits $d.Size $d.Base }} ({{ $item.Addr }})
{{ end }}
Routing Table:
{{ range $row := $d.Routing }}
||{{ range $entry := $row }} {{ $entry.ID.Digits $d.Size $d.Base }} |{{ end }}|
{{ end }}
Peer Health: {{ range $item, $health := $d.Statuses }}
  - {{ $item.Digits $d.Size $d.Base }}: {{ $health }}
{{ end }}
==========
`

var pageTemplate = template.Must(template.New("webpage").Parse(pageContent))

// DumpState writes a text rendering of a NodeState snapshot to w, used by
// the admin HTTP surface.
func DumpState(w io.Writer, d Dump) error {
	return pageTemplate.Execute(w, d)
}

// DumpEmptyMarker returns the placeholder used for unset routing-table
// cells, sized to line up with a populated entry's digit string.
func DumpEmptyMarker(size, base int) string {
	return strings.Repeat(" ", len(Descriptor{}.ID.Digits(size, base)))
}

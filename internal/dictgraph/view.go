package dictgraph

import (
	"sort"

	"github.com/google/uuid"
)

// View is the serializable form of a Graph. Asc trees hold parent pointers, so
// they are flattened into links.
type View struct {
	DictionaryID uuid.UUID                  `json:"dictionaryId" yaml:"dictionaryId"`
	Children     map[string][]ChildRelation `json:"children"     yaml:"children"`
	Desc         []*TreeNode                `json:"desc"         yaml:"desc"`
	Asc          []AscLink                  `json:"asc"          yaml:"asc"`
}

// AscLink is one node of the ascending hierarchy. Parent is empty on roots.
type AscLink struct {
	SchemaName      string `json:"schemaName"                yaml:"schemaName"`
	Parent          string `json:"parent,omitempty"          yaml:"parent,omitempty"`
	FieldName       string `json:"fieldName,omitempty"       yaml:"fieldName,omitempty"`
	ParentFieldName string `json:"parentFieldName,omitempty" yaml:"parentFieldName,omitempty"`
}

// View returns the serializable form of g, with links sorted by schema name.
func (g *Graph) View() View {
	links := make([]AscLink, 0, len(g.Asc))
	for _, n := range g.Asc {
		links = append(links, AscLink{
			SchemaName:      n.SchemaName,
			Parent:          n.ParentName(),
			FieldName:       n.FieldName,
			ParentFieldName: n.ParentFieldName,
		})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].SchemaName < links[j].SchemaName })

	return View{
		DictionaryID: g.DictionaryID,
		Children:     g.Children,
		Desc:         g.Desc,
		Asc:          links,
	}
}

// Package dictgraph derives the entity dependency graph of a dictionary from
// its foreign keys.
package dictgraph

import (
	"sort"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// ChildRelation says that records of SchemaName reference their parent through
// FieldName, which must equal the parent's ParentFieldName.
type ChildRelation struct {
	SchemaName      string `json:"schemaName"      yaml:"schemaName"`
	FieldName       string `json:"fieldName"       yaml:"fieldName"`
	ParentFieldName string `json:"parentFieldName" yaml:"parentFieldName"`
}

// TreeNode is a node of a hierarchy tree. FieldName and ParentFieldName describe
// the link from this node to its parent and are empty on roots.
type TreeNode struct {
	SchemaName      string      `json:"schemaName"                yaml:"schemaName"`
	FieldName       string      `json:"fieldName,omitempty"       yaml:"fieldName,omitempty"`
	ParentFieldName string      `json:"parentFieldName,omitempty" yaml:"parentFieldName,omitempty"`
	Parent          *TreeNode   `json:"-"                         yaml:"-"`
	Children        []*TreeNode `json:"children,omitempty"        yaml:"children,omitempty"`
}

// ParentName returns the parent schema name, or "" for a root.
func (n *TreeNode) ParentName() string {
	if n.Parent == nil {
		return ""
	}
	return n.Parent.SchemaName
}

// Order selects how a hierarchy is linked.
type Order int

const (
	// Desc links parents to their children, starting from root entities.
	Desc Order = iota
	// Asc links every entity to its single parent.
	Asc
)

// Graph is the dependency graph of one dictionary.
type Graph struct {
	DictionaryID uuid.UUID
	// Children maps every schema name to the relations of schemas that
	// reference it. Schemas without dependents map to an empty slice.
	Children map[string][]ChildRelation
	// Desc holds the root entities, each linked to its children.
	Desc []*TreeNode
	// Asc holds every linked entity, each pointing at its parent.
	Asc []*TreeNode
}

// Build derives the dependency graph of dict.
func Build(dict *domain.Dictionary) *Graph {
	return &Graph{
		DictionaryID: dict.ID,
		Children:     ChildrenMap(dict.Schemas),
		Desc:         Hierarchy(dict.Schemas, Desc),
		Asc:          Hierarchy(dict.Schemas, Asc),
	}
}

// ChildrenMap lists, for every schema, the relations of the schemas that hold a
// foreign key to it. Every mapping of every foreign key yields one relation.
func ChildrenMap(schemas []domain.Schema) map[string][]ChildRelation {
	children := make(map[string][]ChildRelation, len(schemas))
	for _, s := range schemas {
		if _, ok := children[s.Name]; !ok {
			children[s.Name] = []ChildRelation{}
		}
	}
	for _, s := range schemas {
		for _, fk := range s.ForeignKeys {
			for _, m := range fk.Mappings {
				children[fk.Schema] = append(children[fk.Schema], ChildRelation{
					SchemaName:      s.Name,
					FieldName:       m.Local,
					ParentFieldName: m.Foreign,
				})
			}
		}
	}
	return children
}

// ParentFields returns the fields of entity that some child relation reads.
// A change to any of them orphans the entity's dependents.
func (g *Graph) ParentFields(entity string) map[string]struct{} {
	fields := make(map[string]struct{})
	for _, rel := range g.Children[entity] {
		fields[rel.ParentFieldName] = struct{}{}
	}
	return fields
}

// Hierarchy links schemas into trees. Only the first mapping of each foreign
// key is used. Links that would duplicate an existing edge or close a cycle
// are skipped.
func Hierarchy(schemas []domain.Schema, order Order) []*TreeNode {
	sorted := append([]domain.Schema(nil), schemas...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if order == Desc {
			return len(sorted[i].ForeignKeys) < len(sorted[j].ForeignKeys)
		}
		return len(sorted[i].ForeignKeys) > len(sorted[j].ForeignKeys)
	})

	var nodes []*TreeNode
	for _, s := range sorted {
		linked := false
		for _, fk := range s.ForeignKeys {
			if len(fk.Mappings) == 0 || fk.Schema == s.Name {
				continue
			}
			linked = true
			if order == Desc {
				nodes = linkDesc(nodes, s.Name, fk.Schema, fk.Mappings[0])
			} else {
				nodes = linkAsc(nodes, s.Name, fk.Schema, fk.Mappings[0])
			}
		}
		if linked {
			continue
		}
		if order == Desc && findNode(nodes, s.Name) == nil {
			nodes = append(nodes, &TreeNode{SchemaName: s.Name})
		}
		if order == Asc && indexOf(nodes, s.Name) < 0 {
			nodes = append(nodes, &TreeNode{SchemaName: s.Name})
		}
	}
	return nodes
}

// linkDesc attaches child under parent, creating the parent as a root when it
// is not in any tree yet. A child that is currently a root is moved.
func linkDesc(roots []*TreeNode, child, parent string, m domain.ForeignKeyMapping) []*TreeNode {
	p := findNode(roots, parent)
	if p == nil {
		p = &TreeNode{SchemaName: parent}
		roots = append(roots, p)
	}
	if indexOf(p.Children, child) >= 0 {
		return roots
	}
	for _, ancestor := range pathTo(roots, p) {
		if ancestor.SchemaName == child {
			return roots
		}
	}

	var node *TreeNode
	if i := indexOf(roots, child); i >= 0 {
		node = roots[i]
		roots = append(roots[:i:i], roots[i+1:]...)
	} else {
		node = &TreeNode{SchemaName: child}
	}
	node.FieldName = m.Local
	node.ParentFieldName = m.Foreign
	node.Parent = p
	p.Children = append(p.Children, node)
	return roots
}

// linkAsc points child at parent unless child already has a parent.
func linkAsc(nodes []*TreeNode, child, parent string, m domain.ForeignKeyMapping) []*TreeNode {
	var c *TreeNode
	if i := indexOf(nodes, child); i >= 0 {
		c = nodes[i]
	} else {
		c = &TreeNode{SchemaName: child}
		nodes = append(nodes, c)
	}
	if c.Parent != nil {
		return nodes
	}

	var p *TreeNode
	if i := indexOf(nodes, parent); i >= 0 {
		p = nodes[i]
	} else {
		p = &TreeNode{SchemaName: parent}
		nodes = append(nodes, p)
	}
	for a := p; a != nil; a = a.Parent {
		if a == c {
			return nodes
		}
	}

	c.FieldName = m.Local
	c.ParentFieldName = m.Foreign
	c.Parent = p
	return nodes
}

func indexOf(nodes []*TreeNode, name string) int {
	for i, n := range nodes {
		if n.SchemaName == name {
			return i
		}
	}
	return -1
}

// findNode searches the trees depth-first.
func findNode(nodes []*TreeNode, name string) *TreeNode {
	for _, n := range nodes {
		if n.SchemaName == name {
			return n
		}
		if found := findNode(n.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// pathTo returns the chain of nodes from a root down to target, inclusive.
func pathTo(nodes []*TreeNode, target *TreeNode) []*TreeNode {
	for _, n := range nodes {
		if n == target {
			return []*TreeNode{n}
		}
		if sub := pathTo(n.Children, target); sub != nil {
			return append([]*TreeNode{n}, sub...)
		}
	}
	return nil
}

package readfiles

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/meshfit/mesh"
)

// MeshFile is the YAML description of a Lagrange mesh:
//
//	Label: quad
//	Dims: 3
//	Nodes:
//	  - {ID: 1, Values: [[0, 0, 0]]}
//	Elements:
//	  - {ID: 1, Basis: [L1, L1], Nodes: [1, 2, 3, 4]}
//	FixedNodes: [1]
type MeshFile struct {
	Label      string        `json:"Label"`
	Dims       int           `json:"Dims"`
	Nodes      []MeshNode    `json:"Nodes"`
	Elements   []MeshElement `json:"Elements"`
	FixedNodes []int         `json:"FixedNodes,omitempty"`
}

type MeshNode struct {
	ID     int         `json:"ID"`
	Values [][]float64 `json:"Values"`
}

type MeshElement struct {
	ID    int      `json:"ID"`
	Basis []string `json:"Basis"`
	Nodes []int    `json:"Nodes"`
}

func ReadMesh(filename string, verbose bool) (m *mesh.Mesh, err error) {
	var data []byte
	if data, err = os.ReadFile(filename); err != nil {
		return nil, fmt.Errorf("unable to read mesh file %q: %w", filename, err)
	}
	if m, err = ParseMesh(data); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if verbose {
		fmt.Printf("Read mesh [%s]: %d nodes, %d elements, %d parameters\n",
			filename, len(m.NodeIDs()), len(m.ElementIDs()), m.NumParameters())
	}
	return
}

// ParseMesh builds and generates a mesh from its YAML description
func ParseMesh(data []byte) (m *mesh.Mesh, err error) {
	var mf MeshFile
	if err = yaml.Unmarshal(data, &mf); err != nil {
		return
	}
	if mf.Dims == 0 && len(mf.Nodes) != 0 && len(mf.Nodes[0].Values) != 0 {
		mf.Dims = len(mf.Nodes[0].Values[0])
	}
	m = mesh.NewMesh(mf.Label, mf.Dims)
	for _, nd := range mf.Nodes {
		if err = m.AddNode(nd.ID, nd.Values...); err != nil {
			return nil, err
		}
	}
	for _, el := range mf.Elements {
		if err = m.AddElement(el.ID, el.Basis, el.Nodes); err != nil {
			return nil, err
		}
	}
	if err = m.Generate(); err != nil {
		return nil, err
	}
	for _, nid := range mf.FixedNodes {
		if err = m.FixNode(nid, 0); err != nil {
			return nil, err
		}
	}
	return
}

// MarshalMesh writes the current parameter values of m back out as YAML,
// with every node whose first field is fixed listed in FixedNodes
func MarshalMesh(m *mesh.Mesh) (data []byte, err error) {
	mf := MeshFile{Label: m.Label, Dims: m.Dims}
	for _, nid := range m.NodeIDs() {
		nd := MeshNode{ID: nid}
		for field := 0; ; field++ {
			vals, e := m.NodeValues(nid, field)
			if e != nil {
				break
			}
			nd.Values = append(nd.Values, vals)
		}
		mf.Nodes = append(mf.Nodes, nd)
		if fixed, _ := m.NodeFixed(nid, 0); fixed {
			mf.FixedNodes = append(mf.FixedNodes, nid)
		}
	}
	for _, eid := range m.ElementIDs() {
		el, e := m.Element(eid)
		if e != nil {
			return nil, e
		}
		mf.Elements = append(mf.Elements, MeshElement{ID: eid, Basis: el.Basis.Labels, Nodes: el.Nodes})
	}
	return yaml.Marshal(mf)
}

func WriteMesh(filename string, m *mesh.Mesh) (err error) {
	var data []byte
	if data, err = MarshalMesh(m); err != nil {
		return
	}
	return os.WriteFile(filename, data, 0644)
}

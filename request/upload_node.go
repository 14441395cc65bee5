package request

import (
	"sort"
	"strconv"
)

//UploadNode is a raw, pre-normalization upload descriptor node. It is either a
//scalar (one of tmp_name, size, error, name, type at some depth) or a branch of
//keyed children. A branch built from an ordered collection reports IsList.
type UploadNode struct {
	value    interface{}
	scalar   bool
	keys     []string
	children map[string]*UploadNode
	list     bool
}

//UploadDescriptor holds the five fields of a single uploaded file
type UploadDescriptor struct {
	TmpName string
	Size    int64
	Error   int
	Name    string
	Type    string
}

//UploadValue returns a scalar node
func UploadValue(v interface{}) *UploadNode {
	return &UploadNode{value: v, scalar: true}
}

//UploadMap returns an empty keyed branch, filled with Set
func UploadMap() *UploadNode {
	return &UploadNode{children: make(map[string]*UploadNode)}
}

//UploadList returns a branch whose children are keyed by their position
func UploadList(children ...*UploadNode) *UploadNode {
	n := &UploadNode{children: make(map[string]*UploadNode, len(children)), list: true}
	for i, c := range children {
		n.put(strconv.Itoa(i), c)
	}

	return n
}

//UploadLeaf returns the branch describing one file
func UploadLeaf(d UploadDescriptor) *UploadNode {
	return UploadMap().
		Set(fieldTmpName, UploadValue(d.TmpName)).
		Set(fieldSize, UploadValue(d.Size)).
		Set(fieldError, UploadValue(d.Error)).
		Set(fieldName, UploadValue(d.Name)).
		Set(fieldType, UploadValue(d.Type))
}

//Set adds or replaces the child under key and returns n. Setting on a scalar node
//turns it into a branch.
func (n *UploadNode) Set(key string, child *UploadNode) *UploadNode {
	if n.scalar {
		n.scalar, n.value = false, nil
	}

	if n.children == nil {
		n.children = make(map[string]*UploadNode)
	}

	n.put(key, child)

	return n
}

func (n *UploadNode) put(key string, child *UploadNode) {
	if _, ok := n.children[key]; !ok {
		n.keys = append(n.keys, key)
	}

	n.children[key] = child
}

func (n *UploadNode) IsScalar() bool     { return n != nil && n.scalar }
func (n *UploadNode) IsList() bool       { return n != nil && n.list }
func (n *UploadNode) Value() interface{} { return n.value }

//Keys returns the branch keys in insertion order
func (n *UploadNode) Keys() []string {
	if n == nil {
		return nil
	}

	out := make([]string, len(n.keys))
	copy(out, n.keys)

	return out
}

//Child returns the child stored under key, or nil
func (n *UploadNode) Child(key string) *UploadNode {
	if n == nil || n.scalar {
		return nil
	}

	return n.children[key]
}

//ParseUploadNode converts a generically decoded structure (nested
//map[string]interface{} / []interface{} / scalars, as produced by a JSON decoder)
//into an UploadNode. Map keys are ordered numerically when all of them are
//non-negative integers, lexically otherwise. nil yields nil.
func ParseUploadNode(v interface{}) *UploadNode {
	switch t := v.(type) {
	case nil:
		return nil

	case *UploadNode:
		return t

	case []interface{}:
		children := make([]*UploadNode, 0, len(t))
		for _, e := range t {
			children = append(children, ParseUploadNode(e))
		}
		return UploadList(children...)

	case map[string]interface{}:
		return parseUploadMap(t)

	case Params:
		return parseUploadMap(t)

	default:
		return UploadValue(v)
	}
}

func parseUploadMap(m map[string]interface{}) *UploadNode {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sortKeys(keys)

	n := UploadMap()
	for _, k := range keys {
		n.put(k, ParseUploadNode(m[k]))
	}

	return n
}

func sortKeys(keys []string) {
	numeric := true
	for _, k := range keys {
		if i, err := strconv.Atoi(k); err != nil || i < 0 {
			numeric = false
			break
		}
	}

	if !numeric {
		sort.Strings(keys)
		return
	}

	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])

		return a < b
	})
}

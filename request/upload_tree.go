package request

import "strconv"

//UploadTree is a node of the normalized upload tree: a leaf holding one
//UploadedFile, or a branch mirroring the shape of the raw upload structure.
type UploadTree struct {
	file     *UploadedFile
	keys     []string
	children map[string]*UploadTree
	list     bool
}

//UploadEntry is one keyed child handed to NewUploadTree
type UploadEntry struct {
	Key  string
	Tree *UploadTree
}

//NewUploadTree returns a keyed branch holding entries in the given order
func NewUploadTree(entries ...UploadEntry) *UploadTree {
	t := newUploadBranch(false)
	for _, e := range entries {
		t.add(e.Key, e.Tree)
	}

	return t
}

//NewUploadList returns a branch whose children are keyed by position
func NewUploadList(trees ...*UploadTree) *UploadTree {
	t := newUploadBranch(true)
	for i, c := range trees {
		t.add(strconv.Itoa(i), c)
	}

	return t
}

//NewUploadLeaf wraps a single file
func NewUploadLeaf(f *UploadedFile) *UploadTree {
	return &UploadTree{file: f}
}

func newUploadBranch(list bool) *UploadTree {
	return &UploadTree{children: make(map[string]*UploadTree), list: list}
}

//add appends child under key. A list whose keys stop being 0, 1, 2... becomes a
//keyed branch so every child keeps its original position.
func (t *UploadTree) add(key string, child *UploadTree) {
	if _, ok := t.children[key]; !ok {
		if t.list && key != strconv.Itoa(len(t.keys)) {
			t.list = false
		}
		t.keys = append(t.keys, key)
	}

	t.children[key] = child
}

func (t *UploadTree) IsLeaf() bool { return t != nil && t.file != nil }
func (t *UploadTree) IsList() bool { return t != nil && t.list }

//File returns the uploaded file of a leaf, nil for branches
func (t *UploadTree) File() *UploadedFile {
	if t == nil {
		return nil
	}

	return t.file
}

func (t *UploadTree) Len() int {
	if t == nil {
		return 0
	}

	return len(t.keys)
}

func (t *UploadTree) Keys() []string {
	if t == nil {
		return nil
	}

	out := make([]string, len(t.keys))
	copy(out, t.keys)

	return out
}

//Get returns the child under key, nil when there is none
func (t *UploadTree) Get(key string) *UploadTree {
	if t == nil || t.file != nil {
		return nil
	}

	return t.children[key]
}

//Index returns the i-th child in order, nil when out of range
func (t *UploadTree) Index(i int) *UploadTree {
	if t == nil || i < 0 || i >= len(t.keys) {
		return nil
	}

	return t.children[t.keys[i]]
}

//Walk calls fn for every file of the tree, depth first in key order. path is the
//form field name of the file, like "docs[0][scan]".
func (t *UploadTree) Walk(fn func(path string, f *UploadedFile)) {
	t.walk("", fn)
}

func (t *UploadTree) walk(path string, fn func(string, *UploadedFile)) {
	if t == nil {
		return
	}

	if t.file != nil {
		fn(path, t.file)
		return
	}

	for _, k := range t.keys {
		t.children[k].walk(fieldPath(path, k), fn)
	}
}

//Close closes every file stream of the tree and returns the first error
func (t *UploadTree) Close() (err error) {
	t.Walk(func(_ string, f *UploadedFile) {
		if cerr := f.close(); cerr != nil && err == nil {
			err = cerr
		}
	})

	return
}

func fieldPath(parent, key string) string {
	if parent == "" {
		return key
	}

	return parent + "[" + key + "]"
}

package request

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fcgi-request/stream"
)

//ErrUnreadableUploadSource is the cause of errors returned when the backing
//location of an uploaded file cannot be opened.
var ErrUnreadableUploadSource = errors.New("unreadable upload source")

const (
	fieldTmpName = "tmp_name"
	fieldSize    = "size"
	fieldError   = "error"
	fieldName    = "name"
	fieldType    = "type"
)

var uploadFields = [...]string{fieldTmpName, fieldSize, fieldError, fieldName, fieldType}

//normalizer turns one raw upload structure into an UploadTree, remembering the
//streams it opened so they can be released when a later leaf fails.
type normalizer struct {
	log    logrus.FieldLogger
	open   func(path string) (stream.Stream, error)
	opened []stream.Stream
}

func (n *normalizer) normalize(root *UploadNode) (*UploadTree, error) {
	if root == nil || root.scalar {
		return newUploadBranch(false), nil
	}

	tree, ok, err := n.node(root, "")
	if err != nil {
		n.release()
		return nil, err
	}

	if !ok {
		return newUploadBranch(root.list), nil
	}

	return tree, nil
}

//node returns ok false when nothing usable is found at this position
func (n *normalizer) node(raw *UploadNode, path string) (*UploadTree, bool, error) {
	if raw == nil || raw.scalar {
		return nil, false, nil
	}

	if !raw.hasUploadFields() {
		return n.branch(raw, path)
	}

	if d, ok := raw.descriptor(); ok {
		f, err := n.file(d, path)
		if err != nil {
			return nil, false, err
		}

		return NewUploadLeaf(f), true, nil
	}

	if names := raw.children[fieldTmpName]; !names.scalar {
		return n.group(raw, names, path)
	}

	n.log.WithField("field", path).Warn("malformed upload descriptor skipped")

	return nil, false, nil
}

//branch recurses over every child of a plain branch
func (n *normalizer) branch(raw *UploadNode, path string) (*UploadTree, bool, error) {
	tree := newUploadBranch(raw.list)

	for _, k := range raw.keys {
		child, ok, err := n.node(raw.children[k], fieldPath(path, k))
		if err != nil {
			return nil, false, err
		}

		if ok {
			tree.add(k, child)
		}
	}

	if len(raw.keys) > 0 && tree.Len() == 0 {
		return nil, false, nil
	}

	return tree, true, nil
}

//group descends one level into all five parallel fields at once, keyed by the
//keys of tmp_name
func (n *normalizer) group(raw *UploadNode, names *UploadNode, path string) (*UploadTree, bool, error) {
	tree := newUploadBranch(names.list)

	for _, k := range names.keys {
		child := UploadMap()
		for _, field := range uploadFields {
			if v := raw.children[field].Child(k); v != nil {
				child.put(field, v)
			}
		}

		sub, ok, err := n.node(child, fieldPath(path, k))
		if err != nil {
			return nil, false, err
		}

		if ok {
			tree.add(k, sub)
		} else {
			n.log.WithField("field", fieldPath(path, k)).Warn("inconsistent upload group entry skipped")
		}
	}

	if len(names.keys) > 0 && tree.Len() == 0 {
		return nil, false, nil
	}

	return tree, true, nil
}

func (n *normalizer) file(d UploadDescriptor, path string) (*UploadedFile, error) {
	if d.Error != UploadErrOK {
		n.log.WithFields(logrus.Fields{"field": path, "error": d.Error}).Debug("failed upload, no stream bound")
		return NewUploadedFile(nil, d.Size, d.Error, d.Name, d.Type), nil
	}

	s, err := n.open(d.TmpName)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableUploadSource, "%s: %q: %v", path, d.TmpName, err)
	}

	n.opened = append(n.opened, s)

	return NewUploadedFile(s, d.Size, d.Error, d.Name, d.Type), nil
}

func (n *normalizer) release() {
	for _, s := range n.opened {
		_ = s.Close()
	}

	n.opened = nil
}

//hasUploadFields reports whether all five descriptor fields are present
func (raw *UploadNode) hasUploadFields() bool {
	for _, field := range uploadFields {
		if raw.children[field] == nil {
			return false
		}
	}

	return true
}

//descriptor reads the five fields when all of them are scalars of the right form
func (raw *UploadNode) descriptor() (d UploadDescriptor, ok bool) {
	for _, field := range uploadFields {
		if !raw.children[field].scalar {
			return d, false
		}
	}

	if d.TmpName, ok = scalarString(raw.children[fieldTmpName].value); !ok {
		return d, false
	}

	if d.Size, ok = scalarInt(raw.children[fieldSize].value); !ok {
		return d, false
	}

	code, ok := scalarInt(raw.children[fieldError].value)
	if !ok {
		return d, false
	}
	d.Error = int(code)

	if d.Name, ok = scalarString(raw.children[fieldName].value); !ok {
		return d, false
	}

	if d.Type, ok = scalarString(raw.children[fieldType].value); !ok {
		return d, false
	}

	return d, true
}

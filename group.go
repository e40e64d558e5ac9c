package zarrs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bjoern234/zarrs/pkg/store"
)

// Group is the handle for one group node. Groups carry no data of their
// own; they exist to give arrays a hierarchy and to hold attributes.
type Group struct {
	store  store.Store
	path   string
	prefix string
	meta   GroupMetadata
}

// CreateGroup writes a group metadata document at path and returns a
// handle for it. An existing document at the path is overwritten.
func CreateGroup(ctx context.Context, s store.Store, path string, attributes map[string]any) (*Group, error) {
	path = normalizePath(path)
	g := &Group{
		store:  s,
		path:   path,
		prefix: keyPrefix(path),
		meta: GroupMetadata{
			ZarrFormat: zarrFormat,
			NodeType:   nodeTypeGroup,
			Attributes: attributes,
		},
	}
	raw, err := json.Marshal(g.meta)
	if err != nil {
		return nil, err
	}
	if err := s.Set(ctx, g.prefix+metadataFilename, raw); err != nil {
		return nil, err
	}
	return g, nil
}

// OpenGroup reads and validates the group metadata document at path.
func OpenGroup(ctx context.Context, s store.Store, path string) (*Group, error) {
	path = normalizePath(path)
	raw, found, err := s.Get(ctx, keyPrefix(path)+metadataFilename)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, path)
	}
	var meta GroupMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, &InvalidMetadataError{Path: path, Reason: "parse", Err: err}
	}
	if meta.ZarrFormat != zarrFormat {
		return nil, &InvalidMetadataError{Path: path, Reason: fmt.Sprintf("zarr_format %d, expected %d", meta.ZarrFormat, zarrFormat)}
	}
	if meta.NodeType != nodeTypeGroup {
		return nil, &InvalidMetadataError{Path: path, Reason: fmt.Sprintf("node_type %q, expected %q", meta.NodeType, nodeTypeGroup)}
	}
	return &Group{store: s, path: path, prefix: keyPrefix(path), meta: meta}, nil
}

// Path returns the normalized node path of the group.
func (g *Group) Path() string { return g.path }

// Attributes returns the group's attributes.
func (g *Group) Attributes() map[string]any { return g.meta.Attributes }

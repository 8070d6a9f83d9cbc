package enums

import "encoding/json"

// AssetType is the asset type assigned to migrated images.
type AssetType string

const AssetTypeGalleryImage AssetType = "Gallery Image"

// String returns the literal string for the asset type.
func (a AssetType) String() string {
	return string(a)
}

// Role values are stored on asset_relation.role as a JSON array.
type Role string

const RoleMain Role = "Main"

// String returns the literal string for the role.
func (r Role) String() string {
	return string(r)
}

// JSON renders the role the way the host stores it: a one-element JSON array.
func (r Role) JSON() string {
	return `["` + string(r) + `"]`
}

// In reports whether roles, the stored asset_relation.role value, holds r.
// A bare string counts as a one-element list.
func (r Role) In(roles *string) bool {
	if roles == nil || *roles == "" {
		return false
	}
	var list []string
	if err := json.Unmarshal([]byte(*roles), &list); err != nil {
		return *roles == string(r)
	}
	for _, candidate := range list {
		if candidate == string(r) {
			return true
		}
	}
	return false
}

// AttachmentRelatedType is written to attachment.related_type and parent_type
// once the file belongs to an asset.
const AttachmentRelatedType = "Asset"

package enums

import "fmt"

// EntityName identifies the parent side of an asset relation.
type EntityName string

const (
	EntityProduct  EntityName = "Product"
	EntityCategory EntityName = "Category"
)

var validEntityNames = []EntityName{
	EntityProduct,
	EntityCategory,
}

// EntityNames lists the parent types in processing order.
func EntityNames() []EntityName {
	out := make([]EntityName, len(validEntityNames))
	copy(out, validEntityNames)
	return out
}

// String returns the literal string for the entity name.
func (e EntityName) String() string {
	return string(e)
}

// IsValid reports whether the entity name is known.
func (e EntityName) IsValid() bool {
	for _, candidate := range validEntityNames {
		if candidate == e {
			return true
		}
	}
	return false
}

// Table returns the parent table holding the denormalized image pointer.
func (e EntityName) Table() string {
	switch e {
	case EntityProduct:
		return "product"
	case EntityCategory:
		return "category"
	}
	return ""
}

// LegacyColumn returns the pim_image column referencing this parent type.
func (e EntityName) LegacyColumn() string {
	switch e {
	case EntityProduct:
		return "product_id"
	case EntityCategory:
		return "category_id"
	}
	return ""
}

// ParseEntityName converts raw input into an EntityName.
func ParseEntityName(value string) (EntityName, error) {
	for _, candidate := range validEntityNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity name %q", value)
}

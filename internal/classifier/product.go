package classifier

import (
	"bytes"
	"encoding/json"
)

// Product is the subset of a product-database record the heuristic reads.
// Field names follow the lookup API's JSON.
type Product struct {
	ProductName    string      `json:"product_name,omitempty"`
	GenericName    string      `json:"generic_name,omitempty"`
	Packaging      string      `json:"packaging,omitempty"`
	PackagingEn    string      `json:"packaging_en,omitempty"`
	PackagingTags  []string    `json:"packaging_tags,omitempty"`
	CategoriesTags []string    `json:"categories_tags,omitempty"`
	Packagings     []Packaging `json:"packagings,omitempty"`
}

// Packaging is one structured packaging component.
type Packaging struct {
	Material TagValue `json:"material,omitempty"`
	Shape    TagValue `json:"shape,omitempty"`
}

// TagValue accepts both the legacy string form ("en:plastic") and the newer
// object form ({"id": "en:plastic", ...}) of a packaging attribute.
type TagValue string

func (v *TagValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TagValue(s)
		return nil
	}
	var obj struct {
		ID   string `json:"id"`
		Name string `json:"lc_name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.ID != "" {
		*v = TagValue(obj.ID)
	} else {
		*v = TagValue(obj.Name)
	}
	return nil
}

package crudguard

import (
	"maps"

	"github.com/goliatone/go-crud"
)

// DefaultFeatureMap maps the standard CRUD verbs to the supplied read/write
// feature keys. Create/Update/Delete (and their batch variants) map to the
// write key while list/show map to the read key.
func DefaultFeatureMap(readFeature, writeFeature string) map[crud.CrudOperation]string {
	return map[crud.CrudOperation]string{
		crud.OpRead:        readFeature,
		crud.OpList:        readFeature,
		crud.OpCreate:      writeFeature,
		crud.OpCreateBatch: writeFeature,
		crud.OpUpdate:      writeFeature,
		crud.OpUpdateBatch: writeFeature,
		crud.OpDelete:      writeFeature,
		crud.OpDeleteBatch: writeFeature,
	}
}

func cloneFeatureMap(in map[crud.CrudOperation]string) map[crud.CrudOperation]string {
	if len(in) == 0 {
		return nil
	}
	cp := make(map[crud.CrudOperation]string, len(in))
	maps.Copy(cp, in)
	return cp
}

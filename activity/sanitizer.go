package activity

import (
	"sync"

	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-timebank/pkg/types"
)

// SensitiveDataKeys are payload keys masked before a record is stored.
var SensitiveDataKeys = []string{
	"credential",
	"authorization",
	"secret",
	"idempotency_key",
}

const maskStrategy = "filled4"

var registerOnce sync.Once

// DefaultMasker returns masker.Default with SensitiveDataKeys registered.
func DefaultMasker() *masker.Masker {
	registerOnce.Do(func() {
		if masker.Default != nil {
			RegisterSensitiveKeys(masker.Default)
		}
	})
	return masker.Default
}

// RegisterSensitiveKeys adds SensitiveDataKeys, in lower and title case, to
// mask.
func RegisterSensitiveKeys(mask *masker.Masker) {
	if mask == nil {
		return
	}
	for _, key := range SensitiveDataKeys {
		mask.RegisterMaskField(key, maskStrategy)
		if title := titleKey(key); title != key {
			mask.RegisterMaskField(title, maskStrategy)
		}
	}
}

// SanitizeRecord returns record with its payload masked. A payload that
// cannot be masked is replaced by an empty map.
func SanitizeRecord(mask *masker.Masker, record types.ActivityRecord) types.ActivityRecord {
	if len(record.Data) == 0 {
		return record
	}
	if mask == nil {
		mask = DefaultMasker()
	}
	record.Data = maskPayload(mask, record.Data)
	return record
}

func maskPayload(mask *masker.Masker, data map[string]any) map[string]any {
	if mask == nil {
		return map[string]any{}
	}
	masked, err := mask.Mask(cloneMap(data))
	if err != nil {
		return map[string]any{}
	}
	if out, ok := masked.(map[string]any); ok {
		return out
	}
	return map[string]any{}
}

func titleKey(key string) string {
	if key == "" || key[0] < 'a' || key[0] > 'z' {
		return key
	}
	return string(key[0]-('a'-'A')) + key[1:]
}

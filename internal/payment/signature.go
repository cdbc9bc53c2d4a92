package payment

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

const macField = "mac"

// ComputeMAC signs webhook fields the way the provider does: values of every
// field except mac, ordered by lower-cased key, joined with "|", HMAC-SHA1 with the salt
func ComputeMAC(fields map[string]string, salt string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.EqualFold(k, macField) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if li == lj {
			return keys[i] < keys[j]
		}
		return li < lj
	})

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = fields[k]
	}

	mac := hmac.New(sha1.New, []byte(salt))
	mac.Write([]byte(strings.Join(values, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyMAC(fields map[string]string, salt, mac string) bool {
	if salt == "" || mac == "" {
		return false
	}
	expected := ComputeMAC(fields, salt)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(mac))))
}

package badger

import (
	"bytes"
	"strings"

	"github.com/fragstore/fragstore/pkg/store/index"
)

// Database Key Namespace Design
// =============================
//
// Badger is a flat key-value store, so metadata records are organized with a
// prefixed, owner-partitioned key scheme:
//
//	Data Type          Prefix   Key Format            Value Type
//	=============================================================
//	Fragment metadata  "m:"     m:<ownerID>:<id>      Metadata (JSON)
//
// Placing the owner before the fragment id makes every per-owner listing a
// single prefix scan over "m:<ownerID>:", mirroring the partition-key query
// the DynamoDB index performs. Point lookups remain O(1).
//
// Owner ids and fragment ids are opaque caller-supplied strings and may
// themselves contain ':', so each component is escaped ('%' -> "%25",
// ':' -> "%3A") before joining. The escaping is injective: the first raw ':'
// after the prefix is always the separator, and no owner's partition prefix
// extends into another's.

const recordPrefix = "m:"

var sep = []byte(":")

func escapeComponent(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	return strings.ReplaceAll(s, ":", "%3A")
}

func unescapeComponent(s string) string {
	s = strings.ReplaceAll(s, "%3A", ":")
	return strings.ReplaceAll(s, "%25", "%")
}

// recordKey builds the key for one metadata record.
func recordKey(ownerID, id string) []byte {
	return []byte(recordPrefix + escapeComponent(ownerID) + ":" + escapeComponent(id))
}

// ownerPrefix builds the scan prefix covering one owner's partition.
func ownerPrefix(ownerID string) []byte {
	return []byte(recordPrefix + escapeComponent(ownerID) + ":")
}

// parseRecordKey splits a record key back into its (owner, id) pair.
func parseRecordKey(key []byte) (index.Key, bool) {
	rest, ok := bytes.CutPrefix(key, []byte(recordPrefix))
	if !ok {
		return index.Key{}, false
	}
	owner, id, ok := bytes.Cut(rest, sep)
	if !ok || len(owner) == 0 || len(id) == 0 {
		return index.Key{}, false
	}
	return index.Key{
		OwnerID: unescapeComponent(string(owner)),
		ID:      unescapeComponent(string(id)),
	}, true
}

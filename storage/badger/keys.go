package badger

import "strconv"

// Key prefixes for different data types
const (
	indexInfoPrefix = "vidx"
	vectorPrefix    = "vrec"
)

// makeIndexKey generates the key holding an index definition.
// Format: vidx:name
func makeIndexKey(name string) []byte {
	return []byte(indexInfoPrefix + ":" + name)
}

// makeVectorPrefix generates the prefix shared by every record of an index.
// The name is length-prefixed so no index's prefix covers another's keys.
// Format: vrec:len(name):name:
func makeVectorPrefix(name string) []byte {
	return []byte(vectorPrefix + ":" + strconv.Itoa(len(name)) + ":" + name + ":")
}

// makeVectorKey generates the key for a record.
// Format: vrec:len(name):name:id
func makeVectorKey(name, id string) []byte {
	return append(makeVectorPrefix(name), id...)
}

package redis

// Key prefixes for primary entity storage.
const (
	prefixEvent      = "filer:evt:"
	prefixCredential = "filer:cred:" // + kind
)

// Key prefixes for unique indexes.
const (
	uniqueEventProtocol = "filer:u:evt:protocol:"
)

// Key prefixes for sorted set indexes. Scores are creation times.
const (
	zEventAll    = "filer:z:evt:all"
	zEventStatus = "filer:z:evt:status:" // + status
	zEventType   = "filer:z:evt:type:"   // + event type
)

// entityKey returns the primary key for an entity.
func entityKey(prefix, id string) string {
	return prefix + id
}

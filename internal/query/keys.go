package query

import (
	"slices"
	"strings"
)

// Key is a hierarchical cache key, e.g. [package detail 42].
type Key []string

var segmentEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// String joins the segments with ":"; colons inside a segment are escaped so
// Key{"a:b"} and Key{"a", "b"} never share a slot.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, segment := range k {
		parts[i] = segmentEscaper.Replace(segment)
	}
	return strings.Join(parts, ":")
}

// Entity returns the leading segment.
func (k Key) Entity() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

// HasPrefix reports whether prefix is an ancestor of (or equal to) k.
func (k Key) HasPrefix(prefix Key) bool {
	return len(prefix) <= len(k) && slices.Equal(k[:len(prefix)], prefix)
}

// KeyFactory builds the key family of one entity.
type KeyFactory struct {
	entity string
}

func Keys(entity string) KeyFactory {
	return KeyFactory{entity: entity}
}

func (f KeyFactory) All() Key {
	return Key{f.entity}
}

func (f KeyFactory) Lists() Key {
	return Key{f.entity, "list"}
}

// List appends filter segments to the list family; no filters is the unfiltered list.
func (f KeyFactory) List(filters ...string) Key {
	return append(f.Lists(), filters...)
}

func (f KeyFactory) Details() Key {
	return Key{f.entity, "detail"}
}

func (f KeyFactory) Detail(id string) Key {
	return append(f.Details(), id)
}

func (f KeyFactory) Histories() Key {
	return Key{f.entity, "history"}
}

func (f KeyFactory) History(id string) Key {
	return append(f.Histories(), id)
}

func (f KeyFactory) Searches() Key {
	return Key{f.entity, "search"}
}

func (f KeyFactory) Search(trackingID string) Key {
	return append(f.Searches(), trackingID)
}

func (f KeyFactory) Statuses() Key {
	return Key{f.entity, "status"}
}

func (f KeyFactory) Status(status string) Key {
	return append(f.Statuses(), status)
}

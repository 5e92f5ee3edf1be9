package wpmeta

import (
	"strconv"
	"strings"
)

// Relation identifies how a user is attached to a LearnDash group.
type Relation string

const (
	RelationLeader Relation = "leaders"
	RelationMember Relation = "users"
)

const groupKeyPrefix = "learndash_group_"

// GroupKey is a decoded group association meta key.
//
// Grammar: "learndash_group_" ("leaders" | "users") "_" <decimal group id greater than zero>.
type GroupKey struct {
	Relation Relation
	GroupID  uint64
}

// String renders the meta key exactly as the host platform stores it.
func (k GroupKey) String() string {
	return groupKeyPrefix + string(k.Relation) + "_" + strconv.FormatUint(k.GroupID, 10)
}

// GroupKeyFor builds the meta key for a relation to the given group.
func GroupKeyFor(relation Relation, groupID uint64) string {
	return GroupKey{Relation: relation, GroupID: groupID}.String()
}

// GroupKeyPattern returns a SQL LIKE pattern matching every key of the relation.
func GroupKeyPattern(relation Relation) string {
	return groupKeyPrefix + string(relation) + "_%"
}

// ParseGroupKey decodes a usermeta key into its relation and group id.
// Keys outside the grammar report ok=false.
func ParseGroupKey(key string) (GroupKey, bool) {
	rest, found := strings.CutPrefix(key, groupKeyPrefix)
	if !found {
		return GroupKey{}, false
	}

	var relation Relation
	switch {
	case strings.HasPrefix(rest, string(RelationLeader)+"_"):
		relation = RelationLeader
	case strings.HasPrefix(rest, string(RelationMember)+"_"):
		relation = RelationMember
	default:
		return GroupKey{}, false
	}

	digits := rest[len(relation)+1:]
	if digits == "" {
		return GroupKey{}, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return GroupKey{}, false
		}
	}

	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || id == 0 {
		return GroupKey{}, false
	}

	return GroupKey{Relation: relation, GroupID: id}, true
}

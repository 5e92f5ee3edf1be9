package wpmeta_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-dashboard-api/pkg/wpmeta"
)

func TestParseGroupKeyDecodesRelations(t *testing.T) {
	key, ok := wpmeta.ParseGroupKey("learndash_group_leaders_42")
	require.True(t, ok)
	require.Equal(t, wpmeta.RelationLeader, key.Relation)
	require.Equal(t, uint64(42), key.GroupID)

	key, ok = wpmeta.ParseGroupKey("learndash_group_users_7")
	require.True(t, ok)
	require.Equal(t, wpmeta.RelationMember, key.Relation)
	require.Equal(t, uint64(7), key.GroupID)
}

func TestParseGroupKeySkipsMalformedKeys(t *testing.T) {
	malformed := []string{
		"",
		"learndash_group_leaders_",
		"learndash_group_leaders_abc",
		"learndash_group_leaders_12x",
		"learndash_group_leaders_-3",
		"learndash_group_leaders_0",
		"learndash_group_owners_12",
		"learndash_group_users",
		"learndash_group_users_99999999999999999999999",
		"wp_capabilities",
		"learndash_group_enrolled_12",
	}
	for _, key := range malformed {
		_, ok := wpmeta.ParseGroupKey(key)
		require.False(t, ok, "expected %q to be rejected", key)
	}
}

func TestGroupKeyRoundTrip(t *testing.T) {
	key := wpmeta.GroupKeyFor(wpmeta.RelationMember, 315)
	require.Equal(t, "learndash_group_users_315", key)

	decoded, ok := wpmeta.ParseGroupKey(key)
	require.True(t, ok)
	require.Equal(t, key, decoded.String())
	require.Equal(t, "learndash_group_leaders_%", wpmeta.GroupKeyPattern(wpmeta.RelationLeader))
}

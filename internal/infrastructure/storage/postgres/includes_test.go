package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queryforge/internal/engine"
	"queryforge/internal/metadata"
)

func linesQuery(required bool) relationQuery {
	return relationQuery{
		node:      engine.InclusionNode{Relation: "lines", Required: required},
		rel:       metadata.RelationDef{Name: "lines", Kind: metadata.RelationHasMany},
		parentKey: "id",
		childKey:  "document_id",
	}
}

func TestAttachChildren(t *testing.T) {
	t.Run("HasManyGroupsPerParent", func(t *testing.T) {
		rows := []engine.Row{{"id": "a"}, {"id": "b"}}
		children := []engine.Row{
			{"document_id": "a", "n": 1},
			{"document_id": "a", "n": 2},
		}

		out := attachChildren(rows, linesQuery(false), children)
		require.Len(t, out, 2)

		attached, ok := out[0]["lines"].([]engine.Row)
		require.True(t, ok)
		assert.Len(t, attached, 2)
		assert.Equal(t, 1, attached[0]["n"])

		// No match still materializes an empty collection.
		empty, ok := out[1]["lines"].([]engine.Row)
		require.True(t, ok)
		assert.Empty(t, empty)
	})

	t.Run("RequiredDropsParentsWithoutMatch", func(t *testing.T) {
		rows := []engine.Row{{"id": "a"}, {"id": "b"}}
		children := []engine.Row{{"document_id": "b"}}

		out := attachChildren(rows, linesQuery(true), children)
		require.Len(t, out, 1)
		assert.Equal(t, "b", out[0]["id"])
	})

	t.Run("HasOneAttachesObjectOrNil", func(t *testing.T) {
		rq := relationQuery{
			node:      engine.InclusionNode{Relation: "warehouse"},
			rel:       metadata.RelationDef{Name: "warehouse", Kind: metadata.RelationBelongsTo},
			parentKey: "warehouse_id",
			childKey:  "id",
		}
		rows := []engine.Row{
			{"id": "d1", "warehouse_id": "w1"},
			{"id": "d2", "warehouse_id": "w9"},
		}
		children := []engine.Row{{"id": "w1", "name": "Main"}}

		out := attachChildren(rows, rq, children)
		require.Len(t, out, 2)

		obj, ok := out[0]["warehouse"].(engine.Row)
		require.True(t, ok)
		assert.Equal(t, "Main", obj["name"])
		assert.Nil(t, out[1]["warehouse"])
	})

	t.Run("AliasOverridesName", func(t *testing.T) {
		rq := linesQuery(false)
		rq.node.Alias = "items"

		out := attachChildren([]engine.Row{{"id": "a"}}, rq, nil)
		require.Len(t, out, 1)
		_, hasAlias := out[0]["items"]
		_, hasName := out[0]["lines"]
		assert.True(t, hasAlias)
		assert.False(t, hasName)
	})

	t.Run("ByteKeysMatchStrings", func(t *testing.T) {
		rows := []engine.Row{{"id": []byte("a")}}
		children := []engine.Row{{"document_id": "a", "n": 1}}

		out := attachChildren(rows, linesQuery(false), children)
		require.Len(t, out, 1)
		attached := out[0]["lines"].([]engine.Row)
		assert.Len(t, attached, 1)
	})
}

func TestCollectKeys(t *testing.T) {
	rows := []engine.Row{
		{"warehouse_id": "w1"},
		{"warehouse_id": "w2"},
		{"warehouse_id": "w1"},
		{"warehouse_id": nil},
		{},
	}

	keys := collectKeys(rows, "warehouse_id")
	assert.Equal(t, []any{"w1", "w2"}, keys)
}

func TestCollectKeysNormalizesBytes(t *testing.T) {
	rows := []engine.Row{
		{"id": []byte("x")},
		{"id": "x"},
	}

	keys := collectKeys(rows, "id")
	require.Len(t, keys, 1)
	assert.Equal(t, []byte("x"), keys[0])
}

func TestMapKey(t *testing.T) {
	k, ok := mapKey(nil)
	assert.False(t, ok)
	assert.Nil(t, k)

	k, ok = mapKey([]byte("id-1"))
	assert.True(t, ok)
	assert.Equal(t, "id-1", k)

	k, ok = mapKey(42)
	assert.True(t, ok)
	assert.Equal(t, 42, k)
}

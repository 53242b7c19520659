package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectSchemaComposition(t *testing.T) {
	schema := ObjectSchema(map[string]interface{}{
		"query":    StringProperty("Search query."),
		"limit":    IntegerProperty("Maximum results."),
		"min_rank": NumberProperty("Minimum relevance score."),
		"verbose":  BooleanProperty("Include match details."),
		"sort":     StringEnumProperty("Sort order.", "asc", "desc"),
		"fields":   ArrayProperty("Fields to return.", StringProperty("A field name.")),
	}, "query")

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"query"}, schema["required"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)

	for name, wantType := range map[string]string{
		"query":    "string",
		"limit":    "integer",
		"min_rank": "number",
		"verbose":  "boolean",
		"sort":     "string",
		"fields":   "array",
	} {
		prop, ok := props[name].(map[string]interface{})
		require.True(t, ok, name)
		assert.Equal(t, wantType, prop["type"], name)
		assert.NotEmpty(t, prop["description"], name)
	}

	sort := props["sort"].(map[string]interface{})
	assert.Equal(t, []string{"asc", "desc"}, sort["enum"])

	fields := props["fields"].(map[string]interface{})
	items, ok := fields["items"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "string", items["type"])
}

func TestObjectSchemaNoRequired(t *testing.T) {
	schema := ObjectSchema(map[string]interface{}{
		"note": StringProperty("Optional note."),
	})
	_, present := schema["required"]
	assert.False(t, present)
}

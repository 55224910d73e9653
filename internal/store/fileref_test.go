package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRefs(t *testing.T) {
	fields := map[string]any{
		"clientName": "Kiran",
		"panCard": map[string]any{
			"url":         "https://files.example/pan.png",
			"storagePath": "client-consents/abc/panCard-pan.png",
			"fileName":    "pan.png",
		},
		"aadhaarCard": map[string]any{
			"url":      "https://files.example/a.png",
			"fileName": "a.png",
		},
		"signature": map[string]any{"other": true},
	}

	refs := FileRefs(fields)
	require.Len(t, refs, 1)
	assert.Equal(t, "pan.png", refs["panCard"].FileName)
	assert.Equal(t, []string{"aadhaarCard"}, PartialFileRefs(fields))
	assert.Equal(t, []string{"aadhaarCard", "panCard"}, FileRefFields(fields))
}

func TestRecordJSONShape(t *testing.T) {
	r := Record{ID: "abc", Fields: map[string]any{"name": "Asha"}}
	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","name":"Asha"}`, string(out))

	var back Record
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "abc", back.ID)
	assert.NotContains(t, back.Fields, FieldID)
}

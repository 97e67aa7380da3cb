package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiContents_MapsRolesAndImages(t *testing.T) {
	contents, err := geminiContents(ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "my leaves curl"},
			{Role: RoleAssistant, Content: "Could be heat stress."},
			{Role: RoleUser, Content: "here is a photo"},
		},
		Images: []Image{{MIMEType: "image/png", Data: []byte{1, 2}}},
	})
	require.NoError(t, err)
	require.Len(t, contents, 3)

	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, string(genai.RoleUser), contents[2].Role)

	require.Len(t, contents[2].Parts, 2)
	assert.Equal(t, "here is a photo", contents[2].Parts[0].Text)
	require.NotNil(t, contents[2].Parts[1].InlineData)
	assert.Equal(t, "image/png", contents[2].Parts[1].InlineData.MIMEType)
	assert.Len(t, contents[0].Parts, 1)
}

func TestGeminiContents_ImageOnlyTurn(t *testing.T) {
	contents, err := geminiContents(ChatRequest{
		Images: []Image{{MIMEType: "image/jpeg", Data: []byte{9}}},
	})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, []byte{9}, contents[0].Parts[0].InlineData.Data)

	_, err = geminiContents(ChatRequest{})
	assert.Error(t, err)
}

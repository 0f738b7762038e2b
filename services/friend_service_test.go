package services

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInvite(t *testing.T) {
	id := uuid.MustParse("7b0c2f0e-3c55-4b1e-9a7d-0a4b1c2d3e4f")

	invite, err := buildInvite(id)
	require.NoError(t, err)

	assert.Equal(t, id.String(), invite.FriendID)
	assert.Equal(t, "neurotrack://friends/add/7b0c2f0e-3c55-4b1e-9a7d-0a4b1c2d3e4f", invite.Link)

	raw, err := base64.StdEncoding.DecodeString(invite.QrCodeBase64)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

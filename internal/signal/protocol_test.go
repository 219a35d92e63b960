package signal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	t.Run("offer", func(t *testing.T) {
		env, err := NewEnvelope("peer-1", Offer{SDP: "v=0..."})
		require.NoError(t, err)
		assert.Equal(t, TypeOffer, env.Type)
		assert.Equal(t, "peer-1", env.From)

		msg, err := env.Decode()
		require.NoError(t, err)
		offer, ok := msg.(Offer)
		require.True(t, ok)
		assert.Equal(t, "v=0...", offer.SDP)
	})

	t.Run("ice carries candidate fields", func(t *testing.T) {
		mid := "0"
		idx := uint16(0)
		env, err := NewEnvelope("peer-2", ICE{Candidate: ICECandidate{
			Candidate:     "candidate:1 1 UDP 2122252543 192.0.2.1 54321 typ host",
			SDPMid:        &mid,
			SDPMLineIndex: &idx,
		}})
		require.NoError(t, err)

		msg, err := env.Decode()
		require.NoError(t, err)
		ice := msg.(ICE)
		assert.Contains(t, ice.Candidate.Candidate, "typ host")
		require.NotNil(t, ice.Candidate.SDPMid)
		assert.Equal(t, "0", *ice.Candidate.SDPMid)
	})

	t.Run("draw packet shapes stay opaque", func(t *testing.T) {
		shapes := json.RawMessage(`[{"kind":"arrow","x":1,"y":2}]`)
		env, err := NewEnvelope("peer-1", DrawPacket{
			ID:        "dp-1",
			CreatedAt: 1700000000000,
			Shapes:    shapes,
		})
		require.NoError(t, err)

		msg, err := env.Decode()
		require.NoError(t, err)
		dp := msg.(DrawPacket)
		assert.JSONEq(t, string(shapes), string(dp.Shapes))
	})
}

func TestParseEnvelope(t *testing.T) {
	t.Run("accepts every known type", func(t *testing.T) {
		for _, typ := range []Type{
			TypeOffer, TypeAnswer, TypeICE, TypeHello,
			TypeQuality, TypeActiveSource, TypeDrawPacket, TypeCamPreview,
		} {
			raw := `{"type":"` + string(typ) + `","from":"p"}`
			env, err := ParseEnvelope([]byte(raw))
			require.NoError(t, err, "type %s", typ)
			assert.Equal(t, typ, env.Type)
		}
	})

	t.Run("rejects unknown tags", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`{"type":"renegotiate","from":"p"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown signal type")
	})

	t.Run("rejects non-json", func(t *testing.T) {
		_, err := ParseEnvelope([]byte("not json"))
		assert.Error(t, err)
	})
}

func TestEnvelopeDecodeUnknown(t *testing.T) {
	env := Envelope{Type: Type("mystery"), From: "p"}
	_, err := env.Decode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown signal type")
}

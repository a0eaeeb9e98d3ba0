package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelIndexRangeOrdering(t *testing.T) {
	idx := newChannelIndex()

	ids := []ShortChannelId{
		NewShortChannelId(500, 0, 0),
		NewShortChannelId(100, 2, 0),
		NewShortChannelId(100, 1, 0),
		NewShortChannelId(900, 0, 0),
	}
	for _, id := range ids {
		idx.Put(&ChannelAnnouncement{ShortChannelId: id})
	}

	require.Equal(t, 4, idx.Len())

	inRange := idx.Range(100, 500)
	require.Len(t, inRange, 3)
	require.Equal(t, NewShortChannelId(100, 1, 0), inRange[0])
	require.Equal(t, NewShortChannelId(100, 2, 0), inRange[1])
	require.Equal(t, NewShortChannelId(500, 0, 0), inRange[2])
}

func TestChannelIndexDeleteIdempotent(t *testing.T) {
	idx := newChannelIndex()
	id := NewShortChannelId(1, 0, 0)
	idx.Put(&ChannelAnnouncement{ShortChannelId: id})

	idx.Delete(id)
	require.False(t, idx.Has(id))

	// deleting again must not panic or corrupt the key slice.
	idx.Delete(id)
	require.Equal(t, 0, idx.Len())
}

func TestSyncProgressEmptyIsComplete(t *testing.T) {
	require.Equal(t, 1.0, syncProgress(map[Vertex]*Sync{}))
}

func TestSyncProgressPartial(t *testing.T) {
	peer := testVertex(1)
	syncs := map[Vertex]*Sync{
		peer: {
			Total: 100,
			Pending: []*QueryShortChannelIds{
				{ShortChannelIds: make([]ShortChannelId, 40)},
			},
		},
	}
	require.InDelta(t, 0.6, syncProgress(syncs), 1e-9)
}

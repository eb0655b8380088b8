package frameio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

const sampleLine = `{"frame":{"number":12,"timestamp":1700000000.5,"width":640,"height":480},` +
	`"inference":{"boxes":[[120,150,170,200],[0,0,50,45]],"classes":[0,0],"track_ids":[7,null],"extra":{"source":"cam0"}},` +
	`"trackable_objects":{"7":{"id":7,"bbox":[120,150,170,200],"centroids":[[145,175],[145,175]]},` +
	`"8":{"bbox":[0,0,50,45],"centroids":[[25,22.5]]}},"camera":{"id":3}}`

func TestDecode(t *testing.T) {
	f, err := Decode([]byte(sampleLine))
	require.NoError(t, err)

	assert.Equal(t, uint64(12), f.Info.Number)
	assert.Equal(t, 640, f.Info.Width)
	assert.Equal(t, 480, f.Info.Height)
	assert.InDelta(t, 1700000000.5, f.Info.UnixSeconds(), 1e-3)

	assert.Equal(t, []types.Box{{120, 150, 170, 200}, {0, 0, 50, 45}}, f.Inference.Boxes)
	assert.Equal(t, []int{0, 0}, f.Inference.Classes)
	require.Len(t, f.Inference.TrackIDs, 2)
	require.NotNil(t, f.Inference.TrackIDs[0])
	assert.Equal(t, types.IntID(7), *f.Inference.TrackIDs[0])
	assert.Nil(t, f.Inference.TrackIDs[1])
	assert.Equal(t, "cam0", f.Inference.Extra["source"])

	require.Len(t, f.Objects, 2)
	assert.Equal(t, types.IntID(7), f.Objects["7"].ID)
	assert.Equal(t, []types.Point{{145, 175}, {145, 175}}, f.Objects["7"].Centroids)
	assert.Equal(t, types.IntID(8), f.Objects["8"].ID, "id falls back to the key")
	assert.Equal(t, types.Box{0, 0, 50, 45}, f.Objects["8"].BBox)
}

func TestDecodeMinimal(t *testing.T) {
	f, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, f.Inference.Boxes)
	assert.NotNil(t, f.Objects)
	assert.Empty(t, f.Objects)
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"invalid json":   `{"frame":`,
		"array":          `[1,2]`,
		"short box":      `{"inference":{"boxes":[[1,2,3]]}}`,
		"string class":   `{"inference":{"classes":["person"]}}`,
		"fractional id":  `{"inference":{"track_ids":[1.5]}}`,
		"bool id":        `{"inference":{"track_ids":[true]}}`,
		"boxes object":   `{"inference":{"boxes":{"a":[1,2,3,4]}}}`,
		"classes object": `{"inference":{"classes":{"a":0}}}`,
		"ids object":     `{"inference":{"track_ids":{"a":7}}}`,
		"bad centroid":   `{"trackable_objects":{"1":{"centroids":[[1]]}}}`,
		"centroids map":  `{"trackable_objects":{"1":{"centroids":{"a":[1,2]}}}}`,
		"object id list": `{"trackable_objects":{"1":{"id":[1]}}}`,
		"record number":  `{"trackable_objects":{"1":5}}`,
		"objects string": `{"trackable_objects":"none"}`,
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(line))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestDecodeStringIDs(t *testing.T) {
	line := `{"inference":{"boxes":[[1,2,3,4],[5,6,7,8]],"classes":[0,0],"track_ids":["cam1-a","7"]},` +
		`"trackable_objects":{"cam1-a":{"id":"cam1-a","centroids":[[1,1],[2,2]]},` +
		`"cam1-b":{"centroids":[[3,3],[4,4]]},"9":{"id":"9"}}}`
	f, err := Decode([]byte(line))
	require.NoError(t, err)

	require.Len(t, f.Inference.TrackIDs, 2)
	assert.Equal(t, types.StringID("cam1-a"), *f.Inference.TrackIDs[0])
	assert.Equal(t, types.StringID("7"), *f.Inference.TrackIDs[1])
	assert.NotEqual(t, types.IntID(7), *f.Inference.TrackIDs[1])

	assert.Equal(t, types.StringID("cam1-a"), f.Objects["cam1-a"].ID)
	assert.Equal(t, types.StringID("cam1-b"), f.Objects["cam1-b"].ID, "non-numeric key is the id")
	assert.Equal(t, types.StringID("9"), f.Objects["9"].ID, "explicit string id wins over the key")
	assert.NotEqual(t, f.Objects["cam1-a"].ID, f.Objects["cam1-b"].ID)
}

func TestEncodeSplicesZoning(t *testing.T) {
	f, err := Decode([]byte(sampleLine))
	require.NoError(t, err)

	out, err := Encode(f, []byte(`{"rest":{"Person":[8],"Person_count":1}}`))
	require.NoError(t, err)

	doc := gjson.ParseBytes(out)
	assert.Equal(t, int64(1), doc.Get("inference.extra.zoning.rest.Person_count").Int())
	assert.Equal(t, "cam0", doc.Get("inference.extra.source").String())
	assert.Equal(t, int64(3), doc.Get("camera.id").Int())
	assert.Equal(t, int64(12), doc.Get("frame.number").Int())
}

func TestEncodeCreatesMissingPath(t *testing.T) {
	f, err := Decode([]byte(`{"frame":{"number":1}}`))
	require.NoError(t, err)

	out, err := Encode(f, []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(out, "inference.extra.zoning").IsObject())
}

func TestRunPassesThroughRejectedLines(t *testing.T) {
	in := strings.NewReader("{\"a\":1}\n\nbroken\n{\"a\":2}\n")
	var out bytes.Buffer
	var failed []int

	h := func(_ context.Context, line []byte) ([]byte, error) {
		f, err := Decode(line)
		if err != nil {
			return nil, err
		}
		return Encode(f, []byte(`{"ok":true}`))
	}
	err := Run(context.Background(), in, &out, h, func(n int, err error) {
		failed = append(failed, n)
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, gjson.Get(lines[0], "inference.extra.zoning.ok").Bool())
	assert.Equal(t, "broken", lines[1])
	assert.Equal(t, int64(2), gjson.Get(lines[2], "a").Int())
	assert.Equal(t, []int{3}, failed)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := Run(ctx, strings.NewReader("{}\n{}\n"), &out, func(_ context.Context, l []byte) ([]byte, error) {
		return l, nil
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}

package zoning

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/zoning/pkg/types"
)

var pentagon = []types.Point{{100, 100}, {200, 50}, {400, 100}, {400, 400}, {100, 400}, {100, 100}}

var (
	inside  = types.Point{145, 175}
	outside = types.Point{25, 22.5}
)

func newTestEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := Config{
		Zones:          [][]types.Point{pentagon},
		ClassNames:     []string{"Person"},
		FilterClassIDs: []int{0},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func tracked(id int64, box types.Box, centroids ...types.Point) *types.TrackableObject {
	return &types.TrackableObject{ID: types.IntID(id), BBox: box, Centroids: centroids}
}

func trackID(id int64) *types.ObjectID {
	v := types.IntID(id)
	return &v
}

func ids(n ...int64) []types.ObjectID {
	out := make([]types.ObjectID, len(n))
	for i, id := range n {
		out[i] = types.IntID(id)
	}
	return out
}

var (
	boxIn  = types.Box{120, 150, 170, 200}
	boxOut = types.Box{0, 0, 50, 45}
)

func count(t *testing.T, n Node, key string) int {
	t.Helper()
	c, ok := n.Count(key)
	require.True(t, ok, "missing count %q", key)
	return c
}

func TestObjectInsideZoneIsPresent(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{Boxes: []types.Box{boxIn}, Classes: []int{0}}
	objects := types.TrackedObjects{"1": tracked(1, boxIn, inside, inside)}

	res, err := e.PostProcess(inf, objects)
	require.NoError(t, err)

	z, ok := inf.Extra[ExtraKey].(Node)
	require.True(t, ok)
	assert.Equal(t, res.Zoning, z)

	zone := z.Child("zone_0")
	assert.Equal(t, ids(1), zone.IDs("Person"))
	assert.Equal(t, 1, count(t, zone, "Person_count"))
	assert.Empty(t, z.Child("rest").IDs("Person"))
	assert.Equal(t, 0, count(t, z.Child("rest"), "Person_count"))
	assert.Equal(t, Stats{Detections: 1}, res.Stats)
}

func TestObjectOutsideZoneGoesToRest(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{Boxes: []types.Box{boxIn, boxOut}, Classes: []int{0, 0}}
	objects := types.TrackedObjects{
		"1": tracked(1, boxIn, inside, inside),
		"2": tracked(2, boxOut, outside, outside),
	}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)

	zone := res.Zoning.Child("zone_0")
	rest := res.Zoning.Child("rest")
	assert.Equal(t, ids(1), zone.IDs("Person"))
	assert.Equal(t, 1, count(t, zone, "Person_count"))
	assert.Equal(t, ids(2), rest.IDs("Person"))
	assert.Equal(t, 1, count(t, rest, "Person_count"))
	assert.Nil(t, inf.Extra, "Zone must not write to the inference")
}

func TestEnteringObjectIsPresentAndEntered(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{Boxes: []types.Box{boxIn}, Classes: []int{0}}
	objects := types.TrackedObjects{"5": tracked(5, boxIn, outside, inside)}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)

	zone := res.Zoning.Child("zone_0")
	assert.Equal(t, ids(5), zone.IDs("Person"))
	assert.Equal(t, ids(5), zone.Child(KeyEntered).IDs("Person"))
	assert.Equal(t, 1, count(t, zone.Child(KeyEntered), "Person_count"))
	assert.Empty(t, zone.Child(KeyExited).IDs("Person"))
	assert.Empty(t, res.Zoning.Child("rest").IDs("Person"))
}

func TestExitingObjectIsOnlyExited(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{Boxes: []types.Box{boxOut}, Classes: []int{0}}
	objects := types.TrackedObjects{"9": tracked(9, boxOut, inside, outside)}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)

	zone := res.Zoning.Child("zone_0")
	assert.Equal(t, ids(9), zone.Child(KeyExited).IDs("Person"))
	assert.Empty(t, zone.IDs("Person"))
	assert.Empty(t, zone.Child(KeyEntered).IDs("Person"))
	assert.Empty(t, res.Zoning.Child("rest").IDs("Person"))
}

func TestStringIdentitiesStayDistinct(t *testing.T) {
	e := newTestEngine(t)
	boxB := types.Box{200, 200, 260, 260}
	inf := &types.Inference{Boxes: []types.Box{boxIn, boxB}, Classes: []int{0, 0}}
	objects := types.TrackedObjects{
		"cam1-a": {ID: types.StringID("cam1-a"), BBox: boxIn, Centroids: []types.Point{inside, inside}},
		"cam1-b": {ID: types.StringID("cam1-b"), BBox: boxB, Centroids: []types.Point{{230, 230}, {230, 230}}},
	}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)

	zone := res.Zoning.Child("zone_0")
	assert.Equal(t, []types.ObjectID{types.StringID("cam1-a"), types.StringID("cam1-b")}, zone.IDs("Person"))
	assert.Equal(t, 2, count(t, zone, "Person_count"))

	out, err := json.Marshal(zone["Person"])
	require.NoError(t, err)
	assert.JSONEq(t, `["cam1-a","cam1-b"]`, string(out))
	assert.Equal(t, []any{"cam1-a", "cam1-b"}, zone.AsMap()["Person"])
}

func TestOutputShape(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.ClassNames = []string{"Person", "Dog"}
		c.FilterClassIDs = []int{0, 16}
	})
	res, err := e.Zone(&types.Inference{}, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"zone_0", "zone_0_ids", "rest", "rest_ids"}, res.Zoning.Keys())

	zone := res.Zoning.Child("zone_0")
	assert.ElementsMatch(t, []string{
		"Person", "Person_count", "Dog", "Dog_count",
		"objects_entered", "objects_entered_ids",
		"objects_exited", "objects_exited_ids",
	}, zone.Keys())
	assert.ElementsMatch(t, []string{"Person", "Person_count", "Dog", "Dog_count"}, zone.Child(KeyEntered).Keys())
	assert.Equal(t, zone.AsMap(), res.Zoning.Child("zone_0_ids").AsMap())
	assert.Equal(t, res.Zoning.Child("rest").AsMap(), res.Zoning.Child("rest_ids").AsMap())
}

func TestClassesAreBucketedByName(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.ClassNames = []string{"Person", "Dog"}
		c.FilterClassIDs = []int{0, 16}
	})
	dogBox := types.Box{200, 200, 240, 260}
	inf := &types.Inference{Boxes: []types.Box{boxIn, dogBox}, Classes: []int{0, 16}}
	objects := types.TrackedObjects{
		"1": tracked(1, boxIn, inside, inside),
		"2": tracked(2, dogBox, types.Point{220, 230}, types.Point{220, 230}),
	}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)
	zone := res.Zoning.Child("zone_0")
	assert.Equal(t, ids(1), zone.IDs("Person"))
	assert.Equal(t, ids(2), zone.IDs("Dog"))
}

func TestUnknownClassFailsFrame(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{Boxes: []types.Box{boxIn}, Classes: []int{3}}
	objects := types.TrackedObjects{"1": tracked(1, boxIn, inside, inside)}

	_, err := e.PostProcess(inf, objects)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownClass))

	var uce *UnknownClassError
	require.ErrorAs(t, err, &uce)
	assert.Equal(t, 3, uce.ClassIndex)
	assert.Equal(t, 0, uce.Detection)
	assert.NotContains(t, inf.Extra, ExtraKey)
}

func TestSkippedDetectionsAreCounted(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{
		Boxes:   []types.Box{boxIn, boxOut, {300, 300, 310, 310}},
		Classes: []int{0, 0, 0},
	}
	objects := types.TrackedObjects{
		"1": tracked(1, boxIn, inside), // one centroid only
		"2": tracked(2, boxOut, outside, outside),
	}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)
	assert.Equal(t, Stats{Detections: 3, Unmatched: 1, MissingHistory: 1}, res.Stats)
	assert.Empty(t, res.Zoning.Child("zone_0").IDs("Person"))
	assert.Equal(t, ids(2), res.Zoning.Child("rest").IDs("Person"))
}

func TestSkippedUnknownClassDoesNotFail(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{Boxes: []types.Box{boxOut}, Classes: []int{42}}

	_, err := e.Zone(inf, types.TrackedObjects{})
	assert.NoError(t, err)
}

func TestMismatchedInferenceLists(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Zone(&types.Inference{Boxes: []types.Box{boxIn}}, nil)
	assert.Error(t, err)
}

func TestIdentityResolution(t *testing.T) {
	e := newTestEngine(t)
	// Both objects share a box; the track id picks the right one.
	inf := &types.Inference{
		Boxes:    []types.Box{boxIn},
		Classes:  []int{0},
		TrackIDs: []*types.ObjectID{trackID(3)},
	}
	objects := types.TrackedObjects{
		"3": tracked(3, boxIn, outside, inside),
		"4": tracked(4, boxIn, inside, inside),
	}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)
	zone := res.Zoning.Child("zone_0")
	assert.Equal(t, ids(3), zone.IDs("Person"))
	assert.Equal(t, ids(3), zone.Child(KeyEntered).IDs("Person"))
}

func TestPerZoneRestCountsOncePerZone(t *testing.T) {
	far := []types.Point{{500, 500}, {600, 500}, {600, 600}, {500, 600}}
	e := newTestEngine(t, func(c *Config) {
		c.Zones = [][]types.Point{pentagon, far}
	})
	inf := &types.Inference{Boxes: []types.Box{boxIn, boxOut}, Classes: []int{0, 0}}
	objects := types.TrackedObjects{
		"1": tracked(1, boxIn, inside, inside),
		"2": tracked(2, boxOut, outside, outside),
	}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)

	rest := res.Zoning.Child("rest")
	// Object 2 is outside both zones, object 1 is outside the second.
	assert.Equal(t, ids(2, 1, 2), rest.IDs("Person"))
	assert.Equal(t, 3, count(t, rest, "Person_count"))
	assert.Equal(t, ids(1), res.Zoning.Child("zone_0").IDs("Person"))
	assert.Empty(t, res.Zoning.Child("zone_1").IDs("Person"))
}

func TestGlobalRestCountsOnce(t *testing.T) {
	far := []types.Point{{500, 500}, {600, 500}, {600, 600}, {500, 600}}
	e := newTestEngine(t, func(c *Config) {
		c.Zones = [][]types.Point{pentagon, far}
		c.RestMode = RestGlobal
	})
	inf := &types.Inference{Boxes: []types.Box{boxIn, boxOut}, Classes: []int{0, 0}}
	objects := types.TrackedObjects{
		"1": tracked(1, boxIn, inside, inside),
		"2": tracked(2, boxOut, outside, outside),
	}

	res, err := e.Zone(inf, objects)
	require.NoError(t, err)
	assert.Equal(t, ids(2), res.Zoning.Child("rest").IDs("Person"))
}

func TestBucketedClassesAreInCatalog(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.ClassNames = []string{"Person", "Cat"}
		c.FilterClassIDs = []int{0, 15}
	})
	inf := &types.Inference{Boxes: []types.Box{boxIn, boxOut}, Classes: []int{15, 0}}
	objects := types.TrackedObjects{
		"1": tracked(1, boxIn, outside, inside),
		"2": tracked(2, boxOut, inside, outside),
	}
	res, err := e.Zone(inf, objects)
	require.NoError(t, err)

	catalog := map[string]bool{"Person": true, "Cat": true}
	var walk func(n Node)
	walk = func(n Node) {
		for k, v := range n {
			switch v.Kind() {
			case KindIDs:
				assert.True(t, catalog[k], "id list under non-catalog key %q", k)
			case KindNode:
				walk(v.Node())
			}
		}
	}
	walk(res.Zoning)
}

func TestEngineIsSafeForConcurrentUse(t *testing.T) {
	e := newTestEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			inf := &types.Inference{Boxes: []types.Box{boxIn}, Classes: []int{0}}
			objects := types.TrackedObjects{"x": tracked(id, boxIn, inside, inside)}
			res, err := e.PostProcess(inf, objects)
			assert.NoError(t, err)
			assert.Equal(t, ids(id), res.Zoning.Child("zone_0").IDs("Person"))
		}(int64(i))
	}
	wg.Wait()
}

func TestPreProcessBlursRemoveAreas(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Zones = nil
		c.RemoveAreas = [][]types.Point{{{4, 4}, {12, 4}, {12, 12}, {4, 12}}}
		c.BlurSigma = 2
	})
	frame := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if (x+y)%2 == 0 {
				frame.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				frame.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	corner := frame.RGBAAt(0, 0)
	centre := frame.RGBAAt(8, 8)

	out := e.PreProcess(frame)
	assert.Same(t, frame, out)
	assert.Equal(t, corner, frame.RGBAAt(0, 0))
	assert.NotEqual(t, centre, frame.RGBAAt(8, 8))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := map[string]Config{
		"nothing configured": {ClassNames: []string{"Person"}, FilterClassIDs: []int{0}},
		"length mismatch":    {Zones: [][]types.Point{pentagon}, ClassNames: []string{"Person", "Dog"}, FilterClassIDs: []int{0}},
		"duplicate id":       {Zones: [][]types.Point{pentagon}, ClassNames: []string{"Person", "Dog"}, FilterClassIDs: []int{0, 0}},
		"duplicate name":     {Zones: [][]types.Point{pentagon}, ClassNames: []string{"Person", "Person"}, FilterClassIDs: []int{0, 1}},
		"reserved name":      {Zones: [][]types.Point{pentagon}, ClassNames: []string{"objects_entered"}, FilterClassIDs: []int{0}},
		"derived name":       {Zones: [][]types.Point{pentagon}, ClassNames: []string{"Person_count"}, FilterClassIDs: []int{0}},
		"negative sigma":     {RemoveAreas: [][]types.Point{pentagon}, BlurSigma: -1},
		"bad rest mode":      {Zones: [][]types.Point{pentagon}, RestMode: RestMode(7)},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestNewAcceptsRemoveAreasOnly(t *testing.T) {
	e, err := New(Config{RemoveAreas: [][]types.Point{pentagon}})
	require.NoError(t, err)
	assert.Empty(t, e.ZoneIDs())

	res, err := e.Zone(&types.Inference{}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rest", "rest_ids"}, res.Zoning.Keys())
}

func TestConfigIsCopied(t *testing.T) {
	zones := [][]types.Point{{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}
	names := []string{"Person"}
	e, err := New(Config{Zones: zones, ClassNames: names, FilterClassIDs: []int{0}})
	require.NoError(t, err)

	zones[0][0] = types.Point{-100, -100}
	names[0] = "Changed"

	assert.Equal(t, []string{"Person"}, e.Catalog().Names())
	res, err := e.Zone(&types.Inference{
		Boxes:   []types.Box{{1, 1, 3, 3}},
		Classes: []int{0},
	}, types.TrackedObjects{"1": tracked(1, types.Box{1, 1, 3, 3}, types.Point{-5, 5}, types.Point{-5, 5})})
	require.NoError(t, err)
	assert.Equal(t, ids(1), res.Zoning.Child("rest").IDs("Person"))
}

func TestCounts(t *testing.T) {
	e := newTestEngine(t)
	inf := &types.Inference{Boxes: []types.Box{boxIn, boxOut}, Classes: []int{0, 0}}
	objects := types.TrackedObjects{
		"1": tracked(1, boxIn, outside, inside),
		"2": tracked(2, boxOut, outside, outside),
	}
	res, err := e.Zone(inf, objects)
	require.NoError(t, err)

	assert.Equal(t, []ZoneCount{
		{Zone: "zone_0", Class: "Person", Present: 1, Entered: 1},
		{Zone: "rest", Class: "Person", Present: 1},
	}, e.Counts(res.Zoning))
}

package indexer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tobias93/georocket/internal/chunk"
	"github.com/tobias93/georocket/internal/jsonstream"
	"github.com/tobias93/georocket/internal/query"
	"github.com/tobias93/georocket/internal/xmlstream"
)

// gmlCoordinateElements are the GML element local names whose character
// content holds one or more coordinate tuples.
var gmlCoordinateElements = map[string]struct{}{
	"pos":         {},
	"posList":     {},
	"coordinates": {},
}

// BoundingBoxIndexerFactory creates a BoundingBoxIndexer for both XML and
// JSON chunks. It claims PriorityOnly for a BboxQueryPart, which it compiles
// to an ElementsWithin term, and no priority for any other term.
type BoundingBoxIndexerFactory struct{}

func (BoundingBoxIndexerFactory) Name() string { return "bbox" }

func (BoundingBoxIndexerFactory) CreateIndexer(EventKind) (Indexer, bool) {
	return &BoundingBoxIndexer{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}, true
}

func (BoundingBoxIndexerFactory) QueryPriority(part query.QueryPart) query.Priority {
	if _, ok := part.(query.BboxQueryPart); ok {
		return query.PriorityOnly
	}
	return query.PriorityNone
}

func (BoundingBoxIndexerFactory) CompileQuery(part query.QueryPart) (query.IndexQuery, bool) {
	bbox, ok := part.(query.BboxQueryPart)
	if !ok {
		return nil, false
	}
	return query.ElementsWithinQuery{Bbox: [4]float64{bbox.MinX, bbox.MinY, bbox.MaxX, bbox.MaxY}}, true
}

// BoundingBoxIndexer accumulates the min/max coordinates seen across a
// chunk's geometry, in both the GML (XML) and GeoJSON representations.
type BoundingBoxIndexer struct {
	minX, minY, maxX, maxY float64
	seen                   bool

	inCoordElement bool

	tupleBuf      []float64
	arrayMarkers  []int
	inCoordinates bool
	coordDepth    int
}

func (idx *BoundingBoxIndexer) record(x, y float64) {
	idx.seen = true
	idx.minX = math.Min(idx.minX, x)
	idx.minY = math.Min(idx.minY, y)
	idx.maxX = math.Max(idx.maxX, x)
	idx.maxY = math.Max(idx.maxY, y)
}

func (idx *BoundingBoxIndexer) OnXMLEvent(ev xmlstream.Event) {
	switch ev.Kind {
	case xmlstream.StartElement:
		if _, ok := gmlCoordinateElements[ev.Local]; ok {
			idx.inCoordElement = true
		}
	case xmlstream.EndElement:
		if _, ok := gmlCoordinateElements[ev.Local]; ok {
			idx.inCoordElement = false
		}
	case xmlstream.Characters:
		if idx.inCoordElement {
			idx.consumeGMLText(string(ev.Text))
		}
	}
}

// consumeGMLText parses whitespace-separated coordinate tuples. Each tuple
// is either "x,y[,z]" (gml:coordinates convention) or bare "x y[ z]"
// (gml:pos / gml:posList convention, tuple size inferred as pairs).
func (idx *BoundingBoxIndexer) consumeGMLText(text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	if strings.Contains(fields[0], ",") {
		for _, f := range fields {
			parts := strings.Split(f, ",")
			if len(parts) < 2 {
				continue
			}
			x, errX := strconv.ParseFloat(parts[0], 64)
			y, errY := strconv.ParseFloat(parts[1], 64)
			if errX == nil && errY == nil {
				idx.record(x, y)
			}
		}
		return
	}
	var nums []float64
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		nums = append(nums, v)
	}
	for i := 0; i+1 < len(nums); i += 2 {
		idx.record(nums[i], nums[i+1])
	}
}

func (idx *BoundingBoxIndexer) OnJSONEvent(ev jsonstream.Event) {
	switch ev.Kind {
	case jsonstream.FieldName:
		idx.inCoordinates = ev.Value.(string) == "coordinates"

	case jsonstream.StartArray:
		if idx.inCoordinates || idx.coordDepth > 0 {
			idx.coordDepth++
			idx.arrayMarkers = append(idx.arrayMarkers, len(idx.tupleBuf))
		}

	case jsonstream.ValueNumber:
		if idx.coordDepth > 0 {
			if n, err := ev.Value.(json.Number).Float64(); err == nil {
				idx.tupleBuf = append(idx.tupleBuf, n)
			}
		}

	case jsonstream.EndArray:
		if idx.coordDepth > 0 {
			marker := idx.arrayMarkers[len(idx.arrayMarkers)-1]
			idx.arrayMarkers = idx.arrayMarkers[:len(idx.arrayMarkers)-1]
			tuple := idx.tupleBuf[marker:]
			if len(tuple) >= 2 {
				idx.record(tuple[0], tuple[1])
			}
			idx.tupleBuf = idx.tupleBuf[:marker]
			idx.coordDepth--
			if idx.coordDepth == 0 {
				idx.inCoordinates = false
			}
		}
	}
}

func (idx *BoundingBoxIndexer) MakeResult() chunk.Document {
	if !idx.seen {
		return nil
	}
	return chunk.Document{
		"bbox": []float64{idx.minX, idx.minY, idx.maxX, idx.maxY},
	}
}

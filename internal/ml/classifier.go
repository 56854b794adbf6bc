// Package ml wraps the land-cover segmentation sidecar.
package ml

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/Pranavrh53/Geo-Watch/internal/landcover"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const segmentMethod = "/geowatch.segmentation.v1.Segmentation/Segment"

// Tile is a multi-band image tile, band-major, ready for segmentation.
type Tile struct {
	Index  report.TileIndex
	Width  int
	Height int
	Bands  int
	Data   []float32
}

// Classifier maps an image tile to a per-pixel class-label mask.
type Classifier interface {
	Segment(ctx context.Context, tile Tile) (landcover.Mask, error)
}

type GRPCClassifier struct {
	conn    *grpc.ClientConn
	timeout time.Duration

	// Taxonomy, when set, limits the labels the sidecar may return. Other
	// labels are rewritten to NoData.
	Taxonomy landcover.Taxonomy
	NoData   landcover.ClassCode
}

func NewGRPCClassifier(address string, timeout time.Duration) (*GRPCClassifier, error) {
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(10*1024*1024),
			grpc.MaxCallSendMsgSize(10*1024*1024),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gRPC server: %w", err)
	}
	return &GRPCClassifier{conn: conn, timeout: timeout}, nil
}

func (c *GRPCClassifier) Close() error {
	return c.conn.Close()
}

func (c *GRPCClassifier) Segment(ctx context.Context, tile Tile) (landcover.Mask, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := EncodeTile(tile)
	if err != nil {
		return landcover.Mask{}, err
	}
	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, segmentMethod, req, resp); err != nil {
		return landcover.Mask{}, fmt.Errorf("error calling Segment for %s: %w", tile.Index, err)
	}

	mask, err := DecodeMask(resp)
	if err != nil {
		return landcover.Mask{}, fmt.Errorf("invalid Segment response for %s: %w", tile.Index, err)
	}
	if mask.Width != tile.Width || mask.Height != tile.Height {
		return landcover.Mask{}, &landcover.ShapeMismatchError{
			Before: landcover.Shape{Height: tile.Height, Width: tile.Width},
			After:  mask.Shape(),
			Detail: "classifier output does not match input tile",
		}
	}
	if len(c.Taxonomy) > 0 {
		var replaced int
		mask, replaced = landcover.Sanitize(mask, c.Taxonomy, c.NoData)
		if replaced > 0 {
			log.Printf("%s: classifier returned %d pixels outside the taxonomy, written as class %d", tile.Index, replaced, c.NoData)
		}
	}
	return mask, nil
}

// EncodeTile packs a tile as little-endian float32 data in a Struct.
func EncodeTile(tile Tile) (*structpb.Struct, error) {
	if len(tile.Data) != tile.Width*tile.Height*tile.Bands {
		return nil, fmt.Errorf("tile %s has %d values, expected %d", tile.Index, len(tile.Data), tile.Width*tile.Height*tile.Bands)
	}
	raw := make([]byte, 4*len(tile.Data))
	for i, v := range tile.Data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return structpb.NewStruct(map[string]interface{}{
		"row":    tile.Index.Row,
		"col":    tile.Index.Col,
		"width":  tile.Width,
		"height": tile.Height,
		"bands":  tile.Bands,
		"dtype":  "float32",
		"data":   base64.StdEncoding.EncodeToString(raw),
	})
}

// DecodeTile is the inverse of EncodeTile.
func DecodeTile(req *structpb.Struct) (Tile, error) {
	fields := req.GetFields()
	tile := Tile{
		Index: report.TileIndex{
			Row: int(fields["row"].GetNumberValue()),
			Col: int(fields["col"].GetNumberValue()),
		},
		Width:  int(fields["width"].GetNumberValue()),
		Height: int(fields["height"].GetNumberValue()),
		Bands:  int(fields["bands"].GetNumberValue()),
	}
	raw, err := base64.StdEncoding.DecodeString(fields["data"].GetStringValue())
	if err != nil {
		return Tile{}, fmt.Errorf("failed to decode tile data: %w", err)
	}
	if len(raw) != 4*tile.Width*tile.Height*tile.Bands {
		return Tile{}, fmt.Errorf("tile data has %d bytes, expected %d", len(raw), 4*tile.Width*tile.Height*tile.Bands)
	}
	tile.Data = make([]float32, len(raw)/4)
	for i := range tile.Data {
		tile.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return tile, nil
}

// DecodeMask reads the {width, height, mask} response of the sidecar.
func DecodeMask(resp *structpb.Struct) (landcover.Mask, error) {
	fields := resp.GetFields()
	width := int(fields["width"].GetNumberValue())
	height := int(fields["height"].GetNumberValue())
	if width <= 0 || height <= 0 {
		return landcover.Mask{}, fmt.Errorf("invalid mask size %dx%d", width, height)
	}
	raw, err := base64.StdEncoding.DecodeString(fields["mask"].GetStringValue())
	if err != nil {
		return landcover.Mask{}, fmt.Errorf("failed to decode mask: %w", err)
	}
	if len(raw) != width*height {
		return landcover.Mask{}, fmt.Errorf("mask has %d pixels, expected %d", len(raw), width*height)
	}
	mask := landcover.NewMask(width, height)
	for i, v := range raw {
		mask.Pix[i] = landcover.ClassCode(v)
	}
	return mask, nil
}

// EncodeMask is the response encoding, used by test doubles of the sidecar.
func EncodeMask(mask landcover.Mask) (*structpb.Struct, error) {
	raw := make([]byte, len(mask.Pix))
	for i, code := range mask.Pix {
		raw[i] = byte(code)
	}
	return structpb.NewStruct(map[string]interface{}{
		"width":  mask.Width,
		"height": mask.Height,
		"mask":   base64.StdEncoding.EncodeToString(raw),
	})
}
